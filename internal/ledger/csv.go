package ledger

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Read parses a ledger. A leading byte-order mark is skipped.
func Read(r io.Reader) (*Ledger, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(bom)); err == nil && bytes.Equal(head, bom) {
		if _, err := br.Discard(len(bom)); err != nil {
			return nil, fmt.Errorf("failed to skip byte-order mark: %w", err)
		}
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyLedger
		}
		return nil, fmt.Errorf("failed to read ledger header: %w", err)
	}

	cols, l, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read ledger line %d: %w", line, err)
		}
		if isBlank(record) {
			continue
		}
		l.Rows = append(l.Rows, parseRow(cols, record))
	}
	return l, nil
}

type columnKind int

const (
	kindSKU columnKind = iota
	kindCategory
	kindName
	kindImage
	kindDate
	kindExtra
)

type column struct {
	kind columnKind
	name string
}

func parseHeader(header []string) ([]column, *Ledger, error) {
	l := New(false)
	cols := make([]column, len(header))
	seen := make(map[string]bool, len(header))

	for i, h := range header {
		name := strings.TrimSpace(h)
		if seen[name] {
			return nil, nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
		}
		seen[name] = true

		switch {
		case name == ColumnSKU:
			cols[i] = column{kind: kindSKU, name: name}
			l.HasSKU = true
		case name == ColumnCategory:
			cols[i] = column{kind: kindCategory, name: name}
		case name == ColumnName:
			cols[i] = column{kind: kindName, name: name}
		case name == ColumnImage:
			cols[i] = column{kind: kindImage, name: name}
		case isDateColumn(name):
			cols[i] = column{kind: kindDate, name: name}
			l.AddDate(name)
		default:
			cols[i] = column{kind: kindExtra, name: name}
			l.Extra = append(l.Extra, name)
		}
	}

	for _, required := range []string{ColumnCategory, ColumnName} {
		if !seen[required] {
			return nil, nil, fmt.Errorf("%w: %q", ErrMissingColumn, required)
		}
	}
	return cols, l, nil
}

func parseRow(cols []column, record []string) *Row {
	r := NewRow()
	for i, col := range cols {
		if i >= len(record) {
			break
		}
		v := record[i]
		switch col.kind {
		case kindSKU:
			r.SKU = strings.TrimSpace(v)
		case kindCategory:
			r.Category = v
		case kindName:
			r.Name = v
		case kindImage:
			r.ImageURL = v
		case kindDate:
			if v != "" {
				r.Prices[col.name] = v
			}
		case kindExtra:
			r.Extra[col.name] = v
		}
	}
	return r
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Write encodes the ledger with a byte-order mark. Dates are written in
// chronological order and rows in slice order.
func (l *Ledger) Write(w io.Writer) error {
	if _, err := w.Write(bom); err != nil {
		return fmt.Errorf("failed to write byte-order mark: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(l.Header()); err != nil {
		return fmt.Errorf("failed to write ledger header: %w", err)
	}

	record := make([]string, 0, len(l.Header()))
	for _, r := range l.Rows {
		record = record[:0]
		if l.HasSKU {
			record = append(record, r.SKU)
		}
		record = append(record, r.Category, r.Name, r.ImageURL)
		for _, name := range l.Extra {
			record = append(record, r.Extra[name])
		}
		for _, d := range l.dates {
			record = append(record, r.Prices[d])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write ledger row %q: %w", r.Name, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush ledger: %w", err)
	}
	return nil
}

// ReadFile reads the ledger at path. A missing file yields an error that
// matches os.ErrNotExist.
func ReadFile(path string) (*Ledger, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	l, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// WriteFile writes the ledger to path through a temporary file in the same
// directory that is renamed into place.
func WriteFile(path string, l *Ledger) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary ledger: %w", err)
	}
	tmpName := tmp.Name()

	bw := bufio.NewWriter(tmp)
	if err := l.Write(bw); err != nil {
		_ = tmp.Close()        //nolint:errcheck // already failing
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()        //nolint:errcheck // already failing
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("failed to close ledger: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return fmt.Errorf("failed to replace ledger: %w", err)
	}
	return nil
}
