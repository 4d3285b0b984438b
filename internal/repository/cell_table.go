package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"daily-todo/internal/model"
	"daily-todo/internal/sheet"
)

// CellTable keeps a sheet in SQLite as addressed cells. It behaves like a
// spreadsheet worksheet: row 1 is the header and data rows follow in order.
type CellTable struct {
	db    *gorm.DB
	sheet string
}

func NewCellTable(db *gorm.DB, sheetName string) *CellTable {
	return &CellTable{db: db, sheet: sheetName}
}

// EnsureHeader writes header into row 1 when the sheet has none yet.
func (t *CellTable) EnsureHeader(ctx context.Context, header []string) error {
	var count int64
	db := t.db.WithContext(ctx)
	if err := db.Model(&model.Cell{}).Where("sheet = ? AND row_num = ?", t.sheet, sheet.HeaderRow).Count(&count).Error; err != nil {
		return fmt.Errorf("check header: %w", err)
	}
	if count > 0 {
		return nil
	}
	cells := make([]model.Cell, 0, len(header))
	now := time.Now()
	for i, name := range header {
		cells = append(cells, model.Cell{Sheet: t.sheet, Row: sheet.HeaderRow, Col: i + 1, Value: name, UpdatedAt: now})
	}
	if err := db.Create(&cells).Error; err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

func (t *CellTable) ReadAllRows(ctx context.Context) ([]sheet.Row, error) {
	var cells []model.Cell
	if err := t.db.WithContext(ctx).Where("sheet = ?", t.sheet).Order("row_num ASC, col_num ASC").Find(&cells).Error; err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return sheet.Records(grid(cells)), nil
}

func (t *CellTable) ReadHeaderRow(ctx context.Context) ([]string, error) {
	var cells []model.Cell
	if err := t.db.WithContext(ctx).Where("sheet = ? AND row_num = ?", t.sheet, sheet.HeaderRow).Order("col_num ASC").Find(&cells).Error; err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	rows := grid(cells)
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// AppendRow places values on the row after the last used one.
func (t *CellTable) AppendRow(ctx context.Context, values []string) error {
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int
		if err := tx.Model(&model.Cell{}).Where("sheet = ?", t.sheet).Select("COALESCE(MAX(row_num), 0)").Scan(&last).Error; err != nil {
			return err
		}
		now := time.Now()
		cells := make([]model.Cell, 0, len(values))
		for i, v := range values {
			cells = append(cells, model.Cell{Sheet: t.sheet, Row: last + 1, Col: i + 1, Value: v, UpdatedAt: now})
		}
		if len(cells) == 0 {
			return nil
		}
		return tx.Create(&cells).Error
	})
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}

func (t *CellTable) WriteCell(ctx context.Context, row, col int, value string) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("write cell: (%d,%d) out of range", row, col)
	}
	cell := model.Cell{Sheet: t.sheet, Row: row, Col: col, Value: value, UpdatedAt: time.Now()}
	err := t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sheet"}, {Name: "row_num"}, {Name: "col_num"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&cell).Error
	if err != nil {
		return fmt.Errorf("write cell (%d,%d): %w", row, col, err)
	}
	return nil
}

// grid lays cells out as a dense 2D slice starting at row 1, column 1.
// Cells must be ordered by row then column.
func grid(cells []model.Cell) [][]string {
	if len(cells) == 0 {
		return nil
	}
	lastRow := cells[len(cells)-1].Row
	out := make([][]string, lastRow)
	for _, c := range cells {
		row := out[c.Row-1]
		for len(row) < c.Col {
			row = append(row, "")
		}
		row[c.Col-1] = c.Value
		out[c.Row-1] = row
	}
	return out
}
