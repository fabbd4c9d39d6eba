package sheets

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

// LoadCSV reads one sheet from CSV. The first non-blank record is the
// header row. Short rows are padded with empty cells and cells beyond the
// last header are dropped.
func LoadCSV(r io.Reader, opts Options) (core.ParsedData, error) {
	text, guard := newTextReader(r, opts.maxBytes())

	cr := csv.NewReader(text)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return core.ParsedData{}, err
		}
		return core.ParsedData{}, fmt.Errorf("read csv after %d bytes: %w", guard.BytesRead(), err)
	}
	return fromRecords(records)
}

// fromRecords turns raw records into a sheet. It is shared by the CSV and
// workbook loaders.
func fromRecords(records [][]string) (core.ParsedData, error) {
	start := 0
	for start < len(records) && blankRecord(records[start]) {
		start++
	}
	if start == len(records) {
		return core.ParsedData{}, ErrEmptyFile
	}

	headers := headerNames(records[start])
	rows := make([]core.Row, 0, len(records)-start-1)
	for _, rec := range records[start+1:] {
		if blankRecord(rec) {
			continue
		}
		row := make(core.Row, len(headers))
		for i, h := range headers {
			cell := ""
			if i < len(rec) {
				cell = strings.TrimSpace(rec[i])
			}
			row[h] = cell
		}
		rows = append(rows, row)
	}
	return core.ParsedData{Headers: headers, Rows: rows}, nil
}

// headerNames trims header cells, names blank ones "Column N" and makes
// repeated names unique with a numeric suffix.
func headerNames(rec []string) []string {
	// Trailing blank headers are usually formatting leftovers.
	end := len(rec)
	for end > 0 && strings.TrimSpace(rec[end-1]) == "" {
		end--
	}

	out := make([]string, 0, end)
	seen := make(map[string]int, end)
	for i, h := range rec[:end] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Column " + strconv.Itoa(i+1)
		}
		if n := seen[h]; n > 0 {
			seen[h] = n + 1
			h = fmt.Sprintf("%s_%d", h, n+1)
		} else {
			seen[h] = 1
		}
		out = append(out, h)
	}
	return out
}

func blankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// WriteCSV writes one sheet as CSV, header row first.
func WriteCSV(w io.Writer, data core.ParsedData) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(data.Headers); err != nil {
		return err
	}
	rec := make([]string, len(data.Headers))
	for _, row := range data.Rows {
		for i, h := range data.Headers {
			rec[i] = cellText(row[h])
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
