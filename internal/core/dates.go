package core

// dates.go handles the two date representations the tracker deals with:
//
//  1. The persisted form, DD-Mon-YY text ("05-Mar-25"). Reports parse this
//     strictly, anything else counts as an invalid date.
//  2. Whatever an uploaded workbook contains. Excel may hand back its own
//     display format or a raw serial number, so uploads go through
//     ParseUploadDate which tries a list of layouts before giving up.

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// DateLayout is the persisted date format.
const DateLayout = "02-Jan-06"

// MonthLayout labels a monthly bucket ("Mar 2025").
const MonthLayout = "Jan 2006"

// TwoDigitYearPivot bounds how far into the future a two-digit year may land
// before it is moved back a century.
var TwoDigitYearPivot = 20

var (
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006-01-02 15:04:05", "2006-01-02T15:04:05Z07:00",
		"02-Jan-2006", "2-Jan-2006", "02 Jan 2006", "2 Jan 2006", "Jan 2, 2006",
		"1/2/2006", "01/02/2006",
	}
	twoDigitYearLayouts = []string{
		DateLayout, "2-Jan-06", "01-02-06", "1-2-06", "1/2/06", "01/02/06",
	}
)

// FormatDate renders t in the persisted layout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a persisted DD-Mon-YY value.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return pivotYear(t, time.Now()), true
}

// ParseUploadDate accepts the date shapes found in uploaded workbooks:
// the persisted layout, ISO dates, slash and dash layouts, and Excel
// serial day numbers.
func ParseUploadDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), true
		}
	}

	now := time.Now()
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return pivotYear(t, now), true
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return truncateDay(t), true
		}
	}

	return time.Time{}, false
}

// pivotYear moves a parsed two-digit year back a century when it lands too
// far in the future.
func pivotYear(t, now time.Time) time.Time {
	if t.Year() > now.Year()+TwoDigitYearPivot {
		return t.AddDate(-100, 0, 0)
	}
	return t
}

// truncateDay drops the clock part, keeping the calendar date in UTC.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(truncateDay(b).Sub(truncateDay(a)).Hours() / 24)
}

// monthStart returns the first day of t's month.
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
