// Package sheets loads and writes the three-sheet workbook.
//
// Uploads arrive either as a single .xlsx workbook with clients, workers and
// tasks sheets, or as one CSV file per sheet. Both paths go through the
// readers in reader.go so a BOM, stray bytes and oversized files are handled
// the same way. Every cell is loaded as text; validators parse numbers and
// lists themselves.
package sheets

import (
	"errors"
)

var (
	// ErrFileTooLarge is returned once an upload exceeds Options.MaxBytes.
	ErrFileTooLarge = errors.New("file too large")

	// ErrUnsupportedFileType is returned for extensions other than .xlsx and .csv.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrSheetNotFound is returned when a workbook lacks one of the three sheets.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrEmptyFile is returned when a CSV file has no header row.
	ErrEmptyFile = errors.New("empty file")
)

// DefaultMaxBytes bounds a single upload when Options.MaxBytes is zero.
const DefaultMaxBytes int64 = 10 << 20

// Options controls loading.
type Options struct {
	// MaxBytes is the largest accepted file. Negative disables the limit.
	MaxBytes int64
}

func (o Options) maxBytes() int64 {
	switch {
	case o.MaxBytes < 0:
		return 0
	case o.MaxBytes == 0:
		return DefaultMaxBytes
	}
	return o.MaxBytes
}
