package sheets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

// Workbook holds the three sheets of one dataset.
type Workbook struct {
	Clients core.ParsedData `json:"clients"`
	Workers core.ParsedData `json:"workers"`
	Tasks   core.ParsedData `json:"tasks"`
}

// Sheet returns the dataset for s.
func (w Workbook) Sheet(s core.Sheet) core.ParsedData {
	switch s {
	case core.SheetClients:
		return w.Clients
	case core.SheetWorkers:
		return w.Workers
	case core.SheetTasks:
		return w.Tasks
	}
	return core.ParsedData{}
}

// Set replaces one sheet.
func (w *Workbook) Set(s core.Sheet, d core.ParsedData) {
	switch s {
	case core.SheetClients:
		w.Clients = d
	case core.SheetWorkers:
		w.Workers = d
	case core.SheetTasks:
		w.Tasks = d
	}
}

// Context builds a validation context over the workbook.
func (w Workbook) Context(rules []core.BusinessRule, cfg core.ValidationConfig) *core.ValidationContext {
	return core.NewValidationContext(w.Clients, w.Workers, w.Tasks, rules, cfg)
}

// FromContext extracts the sheets of a validation context.
func FromContext(vctx *core.ValidationContext) Workbook {
	return Workbook{Clients: vctx.Clients, Workers: vctx.Workers, Tasks: vctx.Tasks}
}

// LoadWorkbook reads an .xlsx workbook. Sheet names are matched with
// core.ParseSheet, so "Clients" and "client" both work; other sheets are
// ignored. An empty sheet loads as an empty dataset.
func LoadWorkbook(r io.Reader, opts Options) (Workbook, error) {
	guard := &sizeGuard{r: r, max: opts.maxBytes()}
	f, err := excelize.OpenReader(guard)
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return Workbook{}, err
		}
		return Workbook{}, fmt.Errorf("%w: not an xlsx workbook: %w", ErrUnsupportedFileType, err)
	}
	defer f.Close()

	var wb Workbook
	found := make(map[core.Sheet]bool, len(core.Sheets))
	for _, name := range f.GetSheetList() {
		s, ok := core.ParseSheet(name)
		if !ok || found[s] {
			continue
		}
		rows, err := f.GetRows(name)
		if err != nil {
			return Workbook{}, fmt.Errorf("read sheet %q: %w", name, err)
		}
		data, err := fromRecords(rows)
		if err != nil && !errors.Is(err, ErrEmptyFile) {
			return Workbook{}, fmt.Errorf("sheet %q: %w", name, err)
		}
		wb.Set(s, data)
		found[s] = true
	}

	for _, s := range core.Sheets {
		if !found[s] {
			return Workbook{}, fmt.Errorf("%w: %s", ErrSheetNotFound, s)
		}
	}
	return wb, nil
}

// LoadCSVSet reads one CSV per sheet. Every sheet must be present.
func LoadCSVSet(files map[core.Sheet]io.Reader, opts Options) (Workbook, error) {
	var wb Workbook
	for _, s := range core.Sheets {
		r, ok := files[s]
		if !ok || r == nil {
			return Workbook{}, fmt.Errorf("%w: %s", ErrSheetNotFound, s)
		}
		data, err := LoadCSV(r, opts)
		if err != nil {
			return Workbook{}, fmt.Errorf("%s: %w", s, err)
		}
		wb.Set(s, data)
	}
	return wb, nil
}

// OpenWorkbook loads an .xlsx file from disk.
func OpenWorkbook(path string, opts Options) (Workbook, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".xlsx" {
		return Workbook{}, fmt.Errorf("%w: %q", ErrUnsupportedFileType, ext)
	}
	f, err := os.Open(path)
	if err != nil {
		return Workbook{}, err
	}
	defer f.Close()
	return LoadWorkbook(f, opts)
}

// OpenCSVSet loads one CSV file per sheet from disk.
func OpenCSVSet(paths map[core.Sheet]string, opts Options) (Workbook, error) {
	files := make(map[core.Sheet]io.Reader, len(paths))
	for s, p := range paths {
		if ext := strings.ToLower(filepath.Ext(p)); ext != ".csv" {
			return Workbook{}, fmt.Errorf("%w: %q", ErrUnsupportedFileType, ext)
		}
		f, err := os.Open(p)
		if err != nil {
			return Workbook{}, err
		}
		defer f.Close()
		files[s] = f
	}
	return LoadCSVSet(files, opts)
}

// WriteWorkbook writes the three sheets as an .xlsx workbook with a bold
// header row. Object and array cells are written as JSON text.
func WriteWorkbook(w io.Writer, wb Workbook) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for _, s := range core.Sheets {
		if err := writeSheet(f, string(s), wb.Sheet(s), headerStyle); err != nil {
			return err
		}
	}

	f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex(string(core.SheetClients)); err == nil {
		f.SetActiveSheet(idx)
	}
	return f.Write(w)
}

func writeSheet(f *excelize.File, name string, data core.ParsedData, headerStyle int) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	if len(data.Headers) == 0 {
		return nil
	}

	header := make([]any, len(data.Headers))
	for i, h := range data.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", name, err)
	}
	last, err := excelize.CoordinatesToCellName(len(data.Headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(name, "A1", last, headerStyle); err != nil {
		return err
	}

	for r, row := range data.Rows {
		cells := make([]any, len(data.Headers))
		for c, h := range data.Headers {
			cells[c] = cellValue(row[h])
		}
		start, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, start, &cells); err != nil {
			return fmt.Errorf("write %s row %d: %w", name, r+1, err)
		}
	}
	return nil
}

// cellValue keeps numbers numeric in the workbook.
func cellValue(v any) any {
	switch t := v.(type) {
	case float64, int, int64, bool:
		return t
	}
	return cellText(v)
}

// cellText renders a cell for text output.
func cellText(v any) string {
	switch t := v.(type) {
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return core.CellString(v)
		}
		return string(b)
	}
	return core.CellString(v)
}
