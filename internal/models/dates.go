package models

import "time"

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// FormatDate renders a date column as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatDatePtr renders an optional date column
func FormatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatDate(*t)
	return &s
}
