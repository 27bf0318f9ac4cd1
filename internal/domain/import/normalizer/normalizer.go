// Package normalizer converts raw cell text into typed amounts and ISO dates.
// All functions are pure and safe for concurrent use.
package normalizer

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyValue    = errors.New("value is empty")
	ErrInvalidAmount = errors.New("invalid amount format")
	ErrInvalidDate   = errors.New("invalid date format")
)

// ISODateLayout is the canonical date representation of imported records.
const ISODateLayout = "2006-01-02"

// ParseAmount converts a money string to a float.
//
// Currency symbols ($ € £ ¥ ₹), thousands commas and whitespace are stripped.
// A value wrapped in parentheses is negative (accounting convention).
// Returns ErrEmptyValue for blank input and ErrInvalidAmount for anything
// that is not a plain number after cleaning (e.g. "N/A").
func ParseAmount(raw string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', '¥', '₹', ',':
			return -1
		}
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	if cleaned == "" {
		return 0, ErrEmptyValue
	}

	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		cleaned = "-" + strings.TrimSuffix(strings.TrimPrefix(cleaned, "("), ")")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, ErrInvalidAmount
	}

	return d.InexactFloat64(), nil
}

// ToMinorUnits converts an amount to cents, rounding half away from zero.
func ToMinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Shift(2).Round(0).IntPart()
}

// Layouts tried before the positional fallback. Numeric day/month layouts
// are left to the fallback, which owns the day/month ordering rule.
var calendarLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	ISODateLayout,
	"2006/01/02",
	time.RFC1123Z,
	time.RFC1123,
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02-Jan-2006",
	"Mon Jan 2 2006",
}

var (
	isoDatePattern      = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})`)
	numericDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4})`),
		regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{2,4})`),
		regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{2,4})`),
	}
)

// ParseDate converts a date string to YYYY-MM-DD.
//
// Calendar layouts (ISO, RFC 3339, RFC 1123, month names) are tried first.
// Otherwise the value is matched positionally as YYYY-MM-DD or as a
// separated triple (/, -, .) whose last group is the year. Two-digit years
// below 50 land in the 2000s, the rest in the 1900s.
//
// For triples a leading value above 12 must be a day; a second value above
// 12 must be a day as well, so the first is the month. When both are 12 or
// below the value is read month first (US order): 03/04/2024 is 4 March.
func ParseDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyValue
	}

	for _, layout := range calendarLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(ISODateLayout), nil
		}
	}

	if m := isoDatePattern.FindStringSubmatch(raw); m != nil {
		return formatDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}

	for _, pattern := range numericDatePatterns {
		m := pattern.FindStringSubmatch(raw)
		if m == nil {
			continue
		}

		first, second := atoi(m[1]), atoi(m[2])
		year := expandYear(m[3])

		month, day := first, second
		switch {
		case first > 12:
			month, day = second, first
		case second > 12:
			month, day = first, second
		}

		return formatDate(year, month, day)
	}

	return "", ErrInvalidDate
}

func formatDate(year, month, day int) (string, error) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", ErrInvalidDate
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), nil
}

func expandYear(s string) int {
	year := atoi(s)
	if len(s) <= 2 {
		if year < 50 {
			return 2000 + year
		}
		return 1900 + year
	}
	return year
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

var spacePattern = regexp.MustCompile(`\s+`)

// CleanText trims a cell and collapses internal whitespace runs.
func CleanText(raw string) string {
	return spacePattern.ReplaceAllString(strings.TrimSpace(raw), " ")
}

// ParsePercent reads a probability such as "40", "40%" or "0.4" as a 0-100 value.
func ParsePercent(raw string) (float64, error) {
	cleaned := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	if cleaned == "" {
		return 0, ErrEmptyValue
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.GreaterThan(decimal.Zero) && d.LessThanOrEqual(decimal.NewFromInt(1)) && strings.Contains(cleaned, ".") {
		d = d.Shift(2)
	}
	if d.LessThan(decimal.Zero) || d.GreaterThan(decimal.NewFromInt(100)) {
		return 0, ErrInvalidAmount
	}
	return d.InexactFloat64(), nil
}
