package domain

import (
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name string
		in   civil.Date
		n    int
		want civil.Date
	}{
		{"zero months", date(2025, time.March, 15), 0, date(2025, time.March, 15)},
		{"plain increment", date(2025, time.January, 27), 1, date(2025, time.February, 27)},
		{"clamp to february", date(2025, time.January, 31), 1, date(2025, time.February, 28)},
		{"clamp to leap february", date(2024, time.January, 31), 1, date(2024, time.February, 29)},
		{"clamp to thirty day month", date(2025, time.March, 31), 1, date(2025, time.April, 30)},
		{"original day restored", date(2025, time.January, 31), 2, date(2025, time.March, 31)},
		{"year rollover", date(2025, time.December, 28), 1, date(2026, time.January, 28)},
		{"multi year", date(2025, time.November, 30), 15, date(2027, time.February, 28)},
		{"negative months", date(2025, time.March, 31), -1, date(2025, time.February, 28)},
		{"negative across year", date(2025, time.January, 10), -2, date(2024, time.November, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddMonths(tt.in, tt.n)
			if got != tt.want {
				t.Errorf("AddMonths(%v, %d) = %v, want %v", tt.in, tt.n, got, tt.want)
			}
			if !got.IsValid() {
				t.Errorf("AddMonths(%v, %d) produced invalid date %v", tt.in, tt.n, got)
			}
		})
	}
}

func TestDaysIn(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2025, time.February, 28},
		{2024, time.February, 29},
		{1900, time.February, 28},
		{2000, time.February, 29},
		{2025, time.April, 30},
		{2025, time.December, 31},
	}

	for _, tt := range tests {
		if got := DaysIn(tt.year, tt.month); got != tt.want {
			t.Errorf("DaysIn(%d, %s) = %d, want %d", tt.year, tt.month, got, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 2025-01-31 ")
	if err != nil {
		t.Fatalf("ParseDate returned error: %v", err)
	}
	if got != date(2025, time.January, 31) {
		t.Errorf("ParseDate = %v", got)
	}

	for _, bad := range []string{"", "2025-02-30", "31/01/2025", "yesterday"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ParseDate(%q) error = %v, want ErrInvalidInput", bad, err)
		}
	}
}

func TestMonthBounds(t *testing.T) {
	tests := []struct {
		in          civil.Date
		first, last civil.Date
	}{
		{date(2025, 3, 15), date(2025, 3, 1), date(2025, 3, 31)},
		{date(2024, 2, 29), date(2024, 2, 1), date(2024, 2, 29)},
		{date(2025, 2, 1), date(2025, 2, 1), date(2025, 2, 28)},
	}

	for _, tt := range tests {
		first, last := MonthBounds(tt.in)
		if first != tt.first || last != tt.last {
			t.Errorf("MonthBounds(%s) = %s..%s, want %s..%s", tt.in, first, last, tt.first, tt.last)
		}
	}
}
