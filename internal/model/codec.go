package model

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	cellTrue  = "TRUE"
	cellFalse = "FALSE"
)

// FormatBool renders a flag the way the sheet stores it.
func FormatBool(v bool) string {
	if v {
		return cellTrue
	}
	return cellFalse
}

// ParseBool reads a TRUE/FALSE cell. ok is false for anything else,
// including an empty cell.
func ParseBool(cell string) (value bool, ok bool) {
	switch strings.ToUpper(strings.TrimSpace(cell)) {
	case cellTrue:
		return true, true
	case cellFalse:
		return false, true
	default:
		return false, false
	}
}

// NormalizeID turns an ID cell into its canonical text so that 7, "7",
// " 7 " and "7.0" all compare equal.
func NormalizeID(cell string) string {
	trimmed := strings.TrimSpace(cell)
	if id, ok := ParseID(trimmed); ok {
		return strconv.Itoa(id)
	}
	return trimmed
}

// ParseID reads an integer ID cell. Spreadsheets sometimes hand numbers
// back as floats, so integral floats are accepted too.
func ParseID(cell string) (int, bool) {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return 0, false
	}
	if id, err := strconv.Atoi(trimmed); err == nil {
		return id, true
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) >= 1<<53 {
		return 0, false
	}
	return int(f), true
}

// FormatTimestamp renders t for the Laatst Gewijzigd column.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp reads a Laatst Gewijzigd cell in loc. Fractional seconds
// are optional. An unreadable cell yields the zero time.
func ParseTimestamp(cell string, loc *time.Location) time.Time {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02T15:04:05.999999999", time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if ts, err := time.ParseInLocation(layout, trimmed, loc); err == nil {
			return ts
		}
	}
	return time.Time{}
}
