package domain

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: malformed date %q", ErrInvalidInput, s)
	}
	return d, nil
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonths moves d by n calendar months. When the day-of-month does not exist
// in the target month it is clamped to that month's last day, so Jan 31 + 1
// is Feb 28 (or 29), never Mar 3.
func AddMonths(d civil.Date, n int) civil.Date {
	idx := int(d.Month) - 1 + n
	year := d.Year + floorDiv(idx, 12)
	month := time.Month(idx - floorDiv(idx, 12)*12 + 1)

	day := d.Day
	if last := DaysIn(year, month); day > last {
		day = last
	}
	return civil.Date{Year: year, Month: month, Day: day}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// DateTime converts a calendar date to midnight UTC.
func DateTime(d civil.Date) time.Time {
	return d.In(time.UTC)
}

// MonthBounds returns the first and last day of the month containing d.
func MonthBounds(d civil.Date) (civil.Date, civil.Date) {
	first := civil.Date{Year: d.Year, Month: d.Month, Day: 1}
	last := civil.Date{Year: d.Year, Month: d.Month, Day: DaysIn(d.Year, d.Month)}
	return first, last
}
