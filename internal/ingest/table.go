package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is a header row plus data rows read from an upload.
type Table struct {
	Headers []string
	Records [][]string
}

// Row wraps record i with the resolved columns.
func (t *Table) Row(i int, cols Columns) Row {
	return Row{Index: i, cells: t.Records[i], cols: cols}
}

// SupportedExtensions lists the accepted upload extensions.
var SupportedExtensions = []string{".xlsx", ".csv"}

// CheckExtension validates the file name against SupportedExtensions.
func CheckExtension(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	for _, ok := range SupportedExtensions {
		if ext == ok {
			return nil
		}
	}
	return fmt.Errorf("%w: %q, supported extensions are %s",
		ErrUnsupportedFormat, ext, strings.Join(SupportedExtensions, ", "))
}

// ReadTable reads the first sheet of an xlsx workbook or a CSV file,
// chosen by the extension of name.
func ReadTable(name string, r io.Reader) (*Table, error) {
	if err := CheckExtension(name); err != nil {
		return nil, err
	}

	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		rows, err = readXLSX(r)
	case ".csv":
		rows, err = readCSV(r)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no header row", ErrUnreadableFile)
	}

	t := &Table{Headers: make([]string, len(rows[0]))}
	for i, h := range rows[0] {
		t.Headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	for _, rec := range rows[1:] {
		if blank(rec) {
			continue
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	// Raw values keep date cells as serials instead of their display text.
	return f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr.ReadAll()
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
