// Package parser turns delimited text exports into a rectangular grid of cells.
// It never fails: ragged rows are padded or truncated to the header width.
package parser

import (
	"regexp"
	"strings"
)

var lineBreak = regexp.MustCompile(`\r?\n`)

// Grid is the tokenized form of a CSV upload.
// Every row has exactly len(Headers) cells.
type Grid struct {
	Headers []string   `json:"headers" yaml:"headers"`
	Rows    [][]string `json:"rows" yaml:"rows"`
}

// Parse splits raw CSV text into headers and rows.
//
// Lines may end in \n or \r\n, blank lines are dropped and every cell is trimmed.
// Quoted values may contain commas and doubled quotes, but not line breaks.
// Empty input yields a single empty header and no rows.
func Parse(text string) *Grid {
	text = strings.TrimSpace(text)

	var lines []string
	for _, line := range lineBreak.Split(text, -1) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		return &Grid{Headers: []string{""}, Rows: [][]string{}}
	}

	headers := SplitLine(lines[0])
	rows := make([][]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		rows = append(rows, fitRow(SplitLine(line), len(headers)))
	}

	return &Grid{Headers: headers, Rows: rows}
}

// SplitLine splits a single CSV line on unquoted commas and trims each field.
func SplitLine(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				current.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	fields = append(fields, strings.TrimSpace(current.String()))

	return fields
}

// fitRow pads short rows with empty cells and drops cells past width.
func fitRow(cells []string, width int) []string {
	if len(cells) == width {
		return cells
	}
	row := make([]string, width)
	copy(row, cells)
	return row
}

// ColumnIndex returns the position of the first header equal to name, or -1.
func (g *Grid) ColumnIndex(name string) int {
	if name == "" {
		return -1
	}
	for i, h := range g.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// HasHeader reports whether name is one of the grid's headers.
func (g *Grid) HasHeader(name string) bool {
	return g.ColumnIndex(name) >= 0
}
