package model

import "time"

// Cell is one addressed value of a locally stored sheet. Rows and columns
// are 1-based, row 1 holds the header.
type Cell struct {
	Sheet     string `gorm:"primaryKey"`
	Row       int    `gorm:"column:row_num;primaryKey;autoIncrement:false"`
	Col       int    `gorm:"column:col_num;primaryKey;autoIncrement:false"`
	Value     string
	UpdatedAt time.Time
}
