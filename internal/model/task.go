package model

import "time"

// Header names of the task sheet, in the order a fresh sheet is laid out.
const (
	ColumnID           = "ID"
	ColumnTitle        = "Titel"
	ColumnLink         = "Link"
	ColumnCompleted    = "Voltooid"
	ColumnDate         = "Datum"
	ColumnLastModified = "Laatst Gewijzigd"
	ColumnDeleted      = "Verwijderd"
)

// Columns is the header row of a freshly prepared task sheet.
var Columns = []string{
	ColumnID,
	ColumnTitle,
	ColumnLink,
	ColumnCompleted,
	ColumnDate,
	ColumnLastModified,
	ColumnDeleted,
}

const (
	// DateLayout is the ISO date stored in the Datum column.
	DateLayout = "2006-01-02"
	// TimestampLayout is the ISO datetime written to Laatst Gewijzigd.
	TimestampLayout = "2006-01-02T15:04:05.000000"
)

// Task is one row of the daily list.
type Task struct {
	ID           int
	Title        string
	Link         string
	Completed    bool
	Date         string // YYYY-MM-DD, set once at creation
	LastModified time.Time
	Deleted      bool
}

// HasLink reports whether the task points somewhere.
func (t Task) HasLink() bool {
	return t.Link != ""
}
