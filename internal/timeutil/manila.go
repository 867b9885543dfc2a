package timeutil

import (
	"time"
)

// Manila is the Philippine Standard Time location (UTC+8)
var Manila *time.Location

func init() {
	var err error
	Manila, err = time.LoadLocation("Asia/Manila")
	if err != nil {
		// Fallback: create fixed zone if tzdata is not available
		Manila = time.FixedZone("PST", 8*60*60)
	}
}

// Now returns the current time in Manila
func Now() time.Time {
	return time.Now().In(Manila)
}

// Day truncates t to its Manila calendar day, returned as midnight UTC.
// Calendar days are compared and stored (DATE columns) in this form.
func Day(t time.Time) time.Time {
	m := t.In(Manila)
	return time.Date(m.Year(), m.Month(), m.Day(), 0, 0, 0, 0, time.UTC)
}

// Today is the current Manila calendar day
func Today() time.Time {
	return Day(time.Now())
}

// ParseDate parses a YYYY-MM-DD calendar date
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, value)
}

// DaysBetween counts calendar days in [start, end)
func DaysBetween(start, end time.Time) int {
	return int(Day(end).Sub(Day(start)).Hours() / 24)
}

// MonthsFor is the billed month count for a stay: ceil(days/30)
func MonthsFor(days int) int {
	if days <= 0 {
		return 0
	}
	return (days + 29) / 30
}

// FormatManila formats a time in Manila using the given layout
func FormatManila(t time.Time, layout string) string {
	return t.In(Manila).Format(layout)
}

// Common layouts
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
	DisplayLayout  = "02 Jan 2006, 03:04 PM"
)
