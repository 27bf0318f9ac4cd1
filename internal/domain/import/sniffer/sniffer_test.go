package sniffer

import (
	"errors"
	"testing"

	"github.com/FACorreiaa/smart-import/internal/domain/import/parser"
)

// Sample American bank CSV
const sampleAmericanCSV = `Date,Description,Amount,Category
01/02/2024,Starbucks,-5.40,Food & Dining
01/03/2024,Amazon,-29.99,Shopping
01/05/2024,Payroll,2500.00,Income
`

func TestNormalizeEncoding_UTF8(t *testing.T) {
	text, err := NormalizeEncoding([]byte(sampleAmericanCSV))
	if err != nil {
		t.Fatalf("NormalizeEncoding failed: %v", err)
	}
	if text != sampleAmericanCSV {
		t.Error("expected UTF-8 input to pass through unchanged")
	}
}

func TestNormalizeEncoding_StripsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Date,Amount\n")...)
	text, err := NormalizeEncoding(data)
	if err != nil {
		t.Fatalf("NormalizeEncoding failed: %v", err)
	}
	if text != "Date,Amount\n" {
		t.Errorf("unexpected text %q", text)
	}

	grid := parser.Parse(text)
	if grid.Headers[0] != "Date" {
		t.Errorf("BOM leaked into first header: %q", grid.Headers[0])
	}
}

func TestNormalizeEncoding_Latin1(t *testing.T) {
	// "Descrição;Débito" in ISO-8859-1
	data := []byte{'D', 'e', 's', 'c', 'r', 'i', 0xE7, 0xE3, 'o', ';', 'D', 0xE9, 'b', 'i', 't', 'o'}
	text, err := NormalizeEncoding(data)
	if err != nil {
		t.Fatalf("NormalizeEncoding failed: %v", err)
	}
	if text != "Descrição;Débito" {
		t.Errorf("unexpected decoded text %q", text)
	}
}

func TestNormalizeEncoding_Empty(t *testing.T) {
	for _, data := range [][]byte{nil, {}, []byte(" \n\t")} {
		if _, err := NormalizeEncoding(data); !errors.Is(err, ErrEmptyFile) {
			t.Errorf("NormalizeEncoding(%q) error = %v, want ErrEmptyFile", data, err)
		}
	}
}

func TestFingerprint_Consistency(t *testing.T) {
	headers1 := []string{"Date", "Description", "Amount", "Category"}
	headers2 := []string{"DATE", "description", "Amount", "category"}
	headers3 := []string{"Date ", " Description", "Amount", "Category"}

	fp1 := Fingerprint(headers1)
	fp2 := Fingerprint(headers2)
	fp3 := Fingerprint(headers3)

	if fp1 != fp2 {
		t.Error("Expected same fingerprint for case-different headers")
	}
	if fp1 != fp3 {
		t.Error("Expected same fingerprint for whitespace-different headers")
	}
	if len(fp1) != 64 {
		t.Errorf("Expected 64-char hex fingerprint, got %d", len(fp1))
	}
}

func TestFingerprint_AccentsAndOrder(t *testing.T) {
	if Fingerprint([]string{"Descrição", "Débito"}) != Fingerprint([]string{"Descricao", "Debito"}) {
		t.Error("expected accent-folded headers to share a fingerprint")
	}
	if Fingerprint([]string{"Date", "Amount"}) == Fingerprint([]string{"Amount", "Date"}) {
		t.Error("expected column order to change the fingerprint")
	}
	if Fingerprint([]string{"Date", "", "Amount"}) != Fingerprint([]string{"Date", "Amount"}) {
		t.Error("expected empty headers to be ignored")
	}
}

func TestSampleRows(t *testing.T) {
	grid := parser.Parse(sampleAmericanCSV)

	rows := SampleRows(grid, 2)
	if len(rows) != 2 {
		t.Fatalf("expected 2 sample rows, got %d", len(rows))
	}
	if rows[0][1] != "Starbucks" {
		t.Errorf("unexpected first sample %v", rows[0])
	}

	if got := len(SampleRows(grid, 10)); got != 3 {
		t.Errorf("expected sample to be capped at 3 rows, got %d", got)
	}
	if SampleRows(nil, 3) != nil {
		t.Error("expected nil sample for nil grid")
	}
}
