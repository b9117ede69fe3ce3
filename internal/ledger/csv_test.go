package ledger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const bomText = "\ufeff"

// TestRead tests parsing of ledger files.
func TestRead(t *testing.T) {
	t.Parallel()

	t.Run("sku ledger with bom", func(t *testing.T) {
		t.Parallel()

		input := bomText + "sku,category,car_name,image_url,2025-01-02,2025-01-01\n" +
			"HYY72,MainLine,Skyline HYY72,https://img/1.jpg,200,\n" +
			"JBM19,Premium,\"Fast, Car JBM19\",,,650\n"

		l, err := Read(strings.NewReader(input))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !l.HasSKU {
			t.Error("expected sku ledger")
		}
		dates := l.Dates()
		if len(dates) != 2 || dates[0] != "2025-01-01" || dates[1] != "2025-01-02" {
			t.Errorf("unexpected dates %v", dates)
		}
		if l.Len() != 2 {
			t.Fatalf("expected 2 rows, got %d", l.Len())
		}
		r := l.Rows[1]
		if r.SKU != "JBM19" || r.Name != "Fast, Car JBM19" || r.Category != "Premium" {
			t.Errorf("unexpected row %+v", r)
		}
		if r.Price("2025-01-01") != "650" || r.Price("2025-01-02") != "" {
			t.Errorf("unexpected prices %v", r.Prices)
		}
		if _, ok := r.Prices["2025-01-02"]; ok {
			t.Error("empty cells must not create price entries")
		}
	})

	t.Run("legacy ledger without sku or image columns", func(t *testing.T) {
		t.Parallel()

		l, err := Read(strings.NewReader("category,car_name,2025-03-01\nMainLine,Skyline,150\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if l.HasSKU {
			t.Error("expected legacy ledger")
		}
		if l.Rows[0].Name != "Skyline" || l.Rows[0].Price("2025-03-01") != "150" {
			t.Errorf("unexpected row %+v", l.Rows[0])
		}
	})

	t.Run("missing required column", func(t *testing.T) {
		t.Parallel()

		_, err := Read(strings.NewReader("sku,car_name\nHYY72,Skyline\n"))
		if !errors.Is(err, ErrMissingColumn) {
			t.Errorf("expected ErrMissingColumn, got %v", err)
		}
	})

	t.Run("duplicate column", func(t *testing.T) {
		t.Parallel()

		_, err := Read(strings.NewReader("category,car_name,car_name\n"))
		if !errors.Is(err, ErrDuplicateColumn) {
			t.Errorf("expected ErrDuplicateColumn, got %v", err)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		if _, err := Read(strings.NewReader("")); !errors.Is(err, ErrEmptyLedger) {
			t.Errorf("expected ErrEmptyLedger, got %v", err)
		}
	})

	t.Run("blank and short lines", func(t *testing.T) {
		t.Parallel()

		l, err := Read(strings.NewReader("category,car_name,image_url,2025-01-01\n,,,\nMainLine,Skyline\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if l.Len() != 1 {
			t.Fatalf("expected 1 row, got %d", l.Len())
		}
		if l.Rows[0].ImageURL != "" || l.Rows[0].HasPrices() {
			t.Errorf("unexpected row %+v", l.Rows[0])
		}
	})
}

// TestWriteRoundTrip tests that writing preserves cells and unknown columns.
func TestWriteRoundTrip(t *testing.T) {
	t.Parallel()

	input := "sku,category,car_name,image_url,notes,2025-01-01,2025-02-01\n" +
		"HYY72,MainLine,Skyline HYY72,https://img/1.jpg,keep me,150.0,199\n" +
		"JBM19,Premium,\"Quoted \"\"Car\"\" JBM19\",,,,650\n"

	l, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := l.Write(&buf); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, bomText) {
		t.Error("expected byte-order mark")
	}
	if got := strings.TrimPrefix(out, bomText); got != input {
		t.Errorf("round trip mismatch\n got: %q\nwant: %q", got, input)
	}
}

// TestWriteFile tests atomic file replacement.
func TestWriteFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "prices.csv")

	l := New(true)
	r := NewRow()
	r.SKU, r.Category, r.Name = "HYY72", "MainLine", "Skyline HYY72"
	r.Prices["2025-01-01"] = "150"
	l.Append(r)

	if err := WriteFile(path, l); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got.Len() != 1 || got.Rows[0].Price("2025-01-01") != "150" {
		t.Errorf("unexpected ledger %+v", got.Rows)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the ledger file, got %d entries", len(entries))
	}

	if _, err := ReadFile(filepath.Join(dir, "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}
