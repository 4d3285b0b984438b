// Package sheet holds the row store contract the task list is kept in and
// its spreadsheet-backed implementation.
package sheet

import (
	"context"
	"errors"
)

// HeaderRow is the 1-based index of the row holding column names.
const HeaderRow = 1

// ErrNoHeader is returned when a sheet has no header row to address by.
var ErrNoHeader = errors.New("sheet has no header row")

// Row maps column names to cell text for a single data row.
type Row map[string]string

// Table is a row-oriented store addressed like a spreadsheet: row 1 is the
// header, data starts at row 2, and row and column indexes are 1-based.
type Table interface {
	// ReadAllRows returns every data row in sheet order, keyed by header.
	ReadAllRows(ctx context.Context) ([]Row, error)
	// AppendRow writes values after the last row.
	AppendRow(ctx context.Context, values []string) error
	// WriteCell overwrites a single cell.
	WriteCell(ctx context.Context, row, col int, value string) error
	// ReadHeaderRow returns the column names in sheet order.
	ReadHeaderRow(ctx context.Context) ([]string, error)
}

// Records turns raw sheet values (header first) into keyed rows. Short rows
// are padded with empty cells and unnamed columns are dropped. Empty rows in
// the middle of the sheet are kept so that position i maps to sheet row i+2.
func Records(values [][]string) []Row {
	if len(values) == 0 {
		return nil
	}
	header := values[0]
	rows := make([]Row, 0, len(values)-1)
	for _, raw := range values[1:] {
		row := make(Row, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(raw) {
				row[name] = raw[i]
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// ColumnIndex returns the 1-based position of name in header.
func ColumnIndex(header []string, name string) (int, bool) {
	for i, h := range header {
		if h == name {
			return i + 1, true
		}
	}
	return 0, false
}

// RowIndex converts a position in ReadAllRows output to its sheet row.
func RowIndex(position int) int {
	return position + HeaderRow + 1
}
