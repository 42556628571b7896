// Package ingest turns uploaded spreadsheets into store records.
package ingest

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrUnreadableFile    = errors.New("file could not be read")
	ErrCustomerNotFound  = errors.New("customer not found")
)

// SchemaError reports a required column that no header resolves to.
type SchemaError struct {
	Field   string
	Headers []string
}

func (e *SchemaError) Error() string {
	quoted := make([]string, len(e.Headers))
	for i, h := range e.Headers {
		quoted[i] = "'" + h + "'"
	}
	return fmt.Sprintf("Missing required column: %s. Available columns: [%s]", e.Field, strings.Join(quoted, ", "))
}

// Field is a canonical column and the literal headers accepted for it.
type Field struct {
	Name     string
	Aliases  []string
	Required bool
}

// Schema is the ordered list of fields a file type expects.
type Schema []Field

// Columns maps canonical field names to column indexes.
type Columns map[string]int

var reHeaderSep = regexp.MustCompile(`[\s_]+`)

func normalizeHeader(s string) string {
	return reHeaderSep.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "_")
}

// Resolve maps every field to a header index. For each field the first
// exact match wins, then a normalized match, then an alias. A missing
// required field fails the whole file.
func (s Schema) Resolve(headers []string) (Columns, error) {
	cols := make(Columns, len(s))
	for _, f := range s {
		idx := findHeader(f, headers)
		if idx < 0 {
			if f.Required {
				return nil, &SchemaError{Field: f.Name, Headers: headers}
			}
			continue
		}
		cols[f.Name] = idx
	}
	return cols, nil
}

func findHeader(f Field, headers []string) int {
	for i, h := range headers {
		if h == f.Name {
			return i
		}
	}
	want := normalizeHeader(f.Name)
	for i, h := range headers {
		if normalizeHeader(h) == want {
			return i
		}
	}
	for _, alias := range f.Aliases {
		for i, h := range headers {
			if h == alias {
				return i
			}
		}
	}
	return -1
}

// Row is one data row viewed through resolved columns.
type Row struct {
	Index int
	cells []string
	cols  Columns
}

// Value returns the trimmed cell for field, or "" when the column is
// absent or the cell is blank.
func (r Row) Value(field string) string {
	idx, ok := r.cols[field]
	if !ok || idx >= len(r.cells) {
		return ""
	}
	v := strings.TrimSpace(r.cells[idx])
	switch strings.ToLower(v) {
	case "nan", "nat", "none", "null":
		return ""
	}
	return v
}

// Has reports whether field has a non-blank value in this row.
func (r Row) Has(field string) bool {
	return r.Value(field) != ""
}
