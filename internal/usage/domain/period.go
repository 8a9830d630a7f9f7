package domain

import "time"

const periodLayout = "2006-01"

// PeriodKey is the calendar-month key of t in loc. A nil loc uses t's own
// location.
func PeriodKey(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(periodLayout)
}

// ValidPeriod reports whether key is a well-formed YYYY-MM period.
func ValidPeriod(key string) bool {
	_, err := time.Parse(periodLayout, key)
	return err == nil
}
