package amortization

import (
	"time"

	"cloud.google.com/go/civil"
)

// AddMonths adds n calendar months to d. The day of month is kept when the
// target month has it and clamped to the month's last day otherwise, so
// Jan 31 + 1 month is Feb 29 in a leap year.
func AddMonths(d civil.Date, n int) civil.Date {
	idx := d.Year*12 + int(d.Month) - 1 + n
	year, month := idx/12, time.Month(idx%12+1)
	if idx < 0 && idx%12 != 0 {
		year--
		month = time.Month(idx%12 + 13)
	}

	day := d.Day
	if last := daysIn(year, month); day > last {
		day = last
	}
	return civil.Date{Year: year, Month: month, Day: day}
}

// DayCount returns the actual number of calendar days from a to b, never
// negative.
func DayCount(a, b civil.Date) int {
	days := b.DaysSince(a)
	if days < 0 {
		return 0
	}
	return days
}

// ReferenceDate is the date interest starts accruing and rates are looked up
// at: the explicit interest start date when set, the plan start otherwise.
func ReferenceDate(start civil.Date, interestStart *civil.Date) civil.Date {
	if interestStart != nil {
		return *interestStart
	}
	return start
}

// ToTime converts a calendar date to midnight UTC for persistence.
func ToTime(d civil.Date) time.Time {
	return d.In(time.UTC)
}

// ToTimePtr converts an optional calendar date.
func ToTimePtr(d *civil.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := ToTime(*d)
	return &t
}

// FromTimePtr converts an optional persisted date.
func FromTimePtr(t *time.Time) *civil.Date {
	if t == nil {
		return nil
	}
	d := civil.DateOf(*t)
	return &d
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
