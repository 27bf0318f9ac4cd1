// Package sniffer prepares uploaded exports for tokenizing.
// It repairs text encoding and fingerprints header rows so a reviewed
// column mapping can be recognized the next time the same export arrives.
package sniffer

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/FACorreiaa/smart-import/internal/domain/import/parser"
)

var ErrEmptyFile = errors.New("file is empty")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NormalizeEncoding returns the upload as UTF-8 text.
// A UTF-8 byte order mark is dropped; bytes that are not valid UTF-8 are
// decoded as ISO-8859-1, which covers most European bank exports.
func NormalizeEncoding(data []byte) (string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return "", ErrEmptyFile
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}

	decoded, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// Fingerprint creates a stable hash of a header row.
// Headers are accent-folded, lowercased and reduced to letters and digits;
// headers that end up empty are skipped.
func Fingerprint(headers []string) string {
	normalized := make([]string, 0, len(headers))
	for _, h := range headers {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, foldAccents(h))
		if clean != "" {
			normalized = append(normalized, clean)
		}
	}

	hash := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(hash[:])
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// SampleRows returns up to n leading data rows for preview.
func SampleRows(grid *parser.Grid, n int) [][]string {
	if grid == nil || n <= 0 {
		return nil
	}
	if len(grid.Rows) < n {
		n = len(grid.Rows)
	}
	rows := make([][]string, n)
	copy(rows, grid.Rows[:n])
	return rows
}
