package core

// dataset.go holds the in-memory sheet representation and its copy-on-write
// editing helpers. Validators only read ParsedData; fixers build modified
// copies through WithCell, WithRenamedHeader and WithColumn so the caller's
// data is never touched.

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrHeaderNotFound is returned when an edit names a header the sheet lacks.
	ErrHeaderNotFound = errors.New("header not found")

	// ErrColumnExists is returned when an edit would create a duplicate header.
	ErrColumnExists = errors.New("column already exists")

	// ErrRowOutOfRange is returned when an edit names a row the sheet lacks.
	ErrRowOutOfRange = errors.New("row out of range")
)

// Row maps header names to cell values. Values are usually strings or
// float64, as produced by the sheet loaders or a JSON decoder.
type Row map[string]any

// ParsedData is one sheet: an ordered header list plus data rows keyed by
// header name.
type ParsedData struct {
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// NewParsedData builds a sheet from headers and rows, copying both.
func NewParsedData(headers []string, rows []Row) ParsedData {
	return ParsedData{Headers: headers, Rows: rows}.Clone()
}

// Clone returns a deep copy of the header list and every row map.
func (d ParsedData) Clone() ParsedData {
	out := ParsedData{
		Headers: append([]string(nil), d.Headers...),
		Rows:    make([]Row, len(d.Rows)),
	}
	for i, r := range d.Rows {
		cp := make(Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out
}

// Len returns the number of data rows.
func (d ParsedData) Len() int {
	return len(d.Rows)
}

// IsEmpty reports whether the sheet has neither headers nor rows.
func (d ParsedData) IsEmpty() bool {
	return len(d.Headers) == 0 && len(d.Rows) == 0
}

// HasHeader reports whether a header with exactly this text exists.
func (d ParsedData) HasHeader(name string) bool {
	for _, h := range d.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// FindHeader resolves name to the actual header text. An exact match wins,
// otherwise the first case-insensitive match after trimming is returned.
func (d ParsedData) FindHeader(name string) (string, bool) {
	if d.HasHeader(name) {
		return name, true
	}
	want := strings.TrimSpace(name)
	for _, h := range d.Headers {
		if strings.EqualFold(strings.TrimSpace(h), want) {
			return h, true
		}
	}
	return "", false
}

// Value returns the cell at row under the header matching column.
// Missing headers, rows and cells all yield nil.
func (d ParsedData) Value(row int, column string) any {
	if row < 0 || row >= len(d.Rows) {
		return nil
	}
	h, ok := d.FindHeader(column)
	if !ok {
		return nil
	}
	return d.Rows[row][h]
}

// Column returns every value under the header matching column, in row order.
func (d ParsedData) Column(column string) []any {
	h, ok := d.FindHeader(column)
	if !ok {
		return nil
	}
	out := make([]any, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r[h]
	}
	return out
}

// WithCell returns a copy of the sheet with one cell replaced.
func (d ParsedData) WithCell(row int, column string, value any) (ParsedData, error) {
	if row < 0 || row >= len(d.Rows) {
		return ParsedData{}, fmt.Errorf("%w: %d", ErrRowOutOfRange, row)
	}
	h, ok := d.FindHeader(column)
	if !ok {
		return ParsedData{}, fmt.Errorf("%w: %q", ErrHeaderNotFound, column)
	}
	out := d.Clone()
	out.Rows[row][h] = value
	return out, nil
}

// WithRenamedHeader returns a copy of the sheet where the first header equal
// to oldName is renamed to newName, moving the matching key in every row.
func (d ParsedData) WithRenamedHeader(oldName, newName string) (ParsedData, error) {
	pos := -1
	for i, h := range d.Headers {
		if h == oldName {
			pos = i
			break
		}
	}
	if pos < 0 {
		return ParsedData{}, fmt.Errorf("%w: %q", ErrHeaderNotFound, oldName)
	}
	if oldName == newName {
		return d.Clone(), nil
	}
	if d.HasHeader(newName) {
		return ParsedData{}, fmt.Errorf("%w: %q", ErrColumnExists, newName)
	}

	out := d.Clone()
	out.Headers[pos] = newName
	for _, r := range out.Rows {
		if v, ok := r[oldName]; ok {
			r[newName] = v
			delete(r, oldName)
		}
	}
	return out, nil
}

// WithColumn returns a copy of the sheet with a new header appended and fill
// written into every row. Existing headers are matched case-insensitively.
func (d ParsedData) WithColumn(name string, fill any) (ParsedData, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ParsedData{}, errors.New("column name is empty")
	}
	if _, ok := d.FindHeader(name); ok {
		return ParsedData{}, fmt.Errorf("%w: %q", ErrColumnExists, name)
	}
	out := d.Clone()
	out.Headers = append(out.Headers, name)
	for _, r := range out.Rows {
		r[name] = fill
	}
	return out, nil
}

// HeaderIndex maps lowercase, trimmed header names to column positions.
type HeaderIndex map[string]int

// MakeHeaderIndex indexes headers case-insensitively. The first occurrence
// of a duplicated header wins.
func MakeHeaderIndex(headers []string) HeaderIndex {
	idx := make(HeaderIndex, len(headers))
	for i, h := range headers {
		key := strings.ToLower(CleanCell(h))
		if _, exists := idx[key]; !exists {
			idx[key] = i
		}
	}
	return idx
}

// Has reports whether name is present, ignoring case.
func (h HeaderIndex) Has(name string) bool {
	_, ok := h[strings.ToLower(strings.TrimSpace(name))]
	return ok
}
