package service

import (
	"context"
	"fmt"

	"daily-todo/internal/model"
	"daily-todo/internal/sheet"
)

type cellWrite struct {
	row, col int
	value    string
}

// fakeTable is an in-memory worksheet. Row 0 of values is the header.
type fakeTable struct {
	values  [][]string
	appends [][]string
	writes  []cellWrite

	readErr   error
	appendErr error
	// writeErrAt fails the n-th WriteCell call (1-based); 0 never fails.
	writeErrAt int
	writeErr   error
}

func newFakeTable() *fakeTable {
	header := make([]string, len(model.Columns))
	copy(header, model.Columns)
	return &fakeTable{values: [][]string{header}}
}

func (f *fakeTable) addRow(cells []string) {
	f.values = append(f.values, cells)
}

func (f *fakeTable) cell(row, col int) string {
	r := f.values[row-1]
	if col > len(r) {
		return ""
	}
	return r[col-1]
}

func (f *fakeTable) ReadAllRows(context.Context) ([]sheet.Row, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return sheet.Records(f.values), nil
}

func (f *fakeTable) AppendRow(_ context.Context, values []string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	row := make([]string, len(values))
	copy(row, values)
	f.values = append(f.values, row)
	f.appends = append(f.appends, row)
	return nil
}

func (f *fakeTable) WriteCell(_ context.Context, row, col int, value string) error {
	if f.writeErrAt > 0 && len(f.writes)+1 == f.writeErrAt {
		return f.writeErr
	}
	if row < 1 || row > len(f.values) {
		return fmt.Errorf("row %d out of range", row)
	}
	r := f.values[row-1]
	for len(r) < col {
		r = append(r, "")
	}
	r[col-1] = value
	f.values[row-1] = r
	f.writes = append(f.writes, cellWrite{row: row, col: col, value: value})
	return nil
}

func (f *fakeTable) ReadHeaderRow(context.Context) ([]string, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	header := make([]string, len(f.values[0]))
	copy(header, f.values[0])
	return header, nil
}
