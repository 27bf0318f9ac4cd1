package normalizer

import (
	"errors"
	"math"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"$1,234.56", 1234.56},
		{"(100.00)", -100},
		{"-29.99", -29.99},
		{"45.23", 45.23},
		{"  45.23  ", 45.23},
		{"€ 1 000.00", 1000},
		{"£12", 12},
		{"¥500", 500},
		{"₹ 2,50,000", 250000},
		{"($5.40)", -5.4},
		{"0", 0},
	}

	for _, tc := range tests {
		got, err := ParseAmount(tc.input)
		if err != nil {
			t.Errorf("ParseAmount(%q) error: %v", tc.input, err)
			continue
		}
		if math.Abs(got-tc.expected) > 1e-9 {
			t.Errorf("ParseAmount(%q) = %v, want %v", tc.input, got, tc.expected)
		}
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	tests := []struct {
		input string
		err   error
	}{
		{"", ErrEmptyValue},
		{"   ", ErrEmptyValue},
		{"$", ErrEmptyValue},
		{"abc", ErrInvalidAmount},
		{"N/A", ErrInvalidAmount},
		{"12abc", ErrInvalidAmount},
		{"()", ErrInvalidAmount},
	}

	for _, tc := range tests {
		_, err := ParseAmount(tc.input)
		if !errors.Is(err, tc.err) {
			t.Errorf("ParseAmount(%q) error = %v, want %v", tc.input, err, tc.err)
		}
	}
}

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		amount   float64
		expected int64
	}{
		{1234.56, 123456},
		{-100, -10000},
		{0.1 + 0.2, 30},
		{19.999, 2000},
		{-0.005, -1},
	}

	for _, tc := range tests {
		if got := ToMinorUnits(tc.amount); got != tc.expected {
			t.Errorf("ToMinorUnits(%v) = %d, want %d", tc.amount, got, tc.expected)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// ISO and calendar layouts
		{"2024-01-15", "2024-01-15"},
		{" 2024-01-15 ", "2024-01-15"},
		{"2024-01-15T10:30:00Z", "2024-01-15"},
		{"2024-01-15 10:30:00", "2024-01-15"},
		{"2024/01/15", "2024-01-15"},
		{"Jan 15, 2024", "2024-01-15"},
		{"15 January 2024", "2024-01-15"},
		{"2024-1-5", "2024-01-05"},

		// Separated triples
		{"01/15/2024", "2024-01-15"},
		{"25-12-2024", "2024-12-25"},
		{"15.01.2024", "2024-01-15"},
		{"1/2/2024", "2024-01-02"},
		{"03/04/2024", "2024-03-04"}, // ambiguous, month first
		{"15/01/2024 10:30", "2024-01-15"},

		// Two-digit years
		{"01/15/24", "2024-01-15"},
		{"01/15/49", "2049-01-15"},
		{"01/15/50", "1950-01-15"},
		{"31.12.99", "1999-12-31"},
	}

	for _, tc := range tests {
		got, err := ParseDate(tc.input)
		if err != nil {
			t.Errorf("ParseDate(%q) error: %v", tc.input, err)
			continue
		}
		if got != tc.expected {
			t.Errorf("ParseDate(%q) = %s, want %s", tc.input, got, tc.expected)
		}
	}
}

func TestParseDate_Invalid(t *testing.T) {
	tests := []struct {
		input string
		err   error
	}{
		{"", ErrEmptyValue},
		{"  ", ErrEmptyValue},
		{"not-a-date", ErrInvalidDate},
		{"13/13/2024", ErrInvalidDate},
		{"00/10/2024", ErrInvalidDate},
		{"2024-13-01", ErrInvalidDate},
		{"2024-01-32", ErrInvalidDate},
		{"32/01/2024", ErrInvalidDate},
	}

	for _, tc := range tests {
		got, err := ParseDate(tc.input)
		if !errors.Is(err, tc.err) {
			t.Errorf("ParseDate(%q) = %q, %v; want error %v", tc.input, got, err, tc.err)
		}
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  Compra   MB  -  Pingo Doce  ", "Compra MB - Pingo Doce"},
		{"Netflix", "Netflix"},
		{"\tTab\tSeparated\t", "Tab Separated"},
		{"", ""},
	}

	for _, tc := range tests {
		if got := CleanText(tc.input); got != tc.expected {
			t.Errorf("CleanText(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		wantErr  bool
	}{
		{"40", 40, false},
		{"40%", 40, false},
		{"0.4", 40, false},
		{"100", 100, false},
		{"150", 0, true},
		{"-5", 0, true},
		{"high", 0, true},
		{"", 0, true},
	}

	for _, tc := range tests {
		got, err := ParsePercent(tc.input)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParsePercent(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && math.Abs(got-tc.expected) > 1e-9 {
			t.Errorf("ParsePercent(%q) = %v, want %v", tc.input, got, tc.expected)
		}
	}
}
