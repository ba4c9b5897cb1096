package utils

import "time"

// IsBusinessDay reports whether t falls on a weekday. Exchange holidays are
// not modeled; contract expiry rules only need weekend adjustment.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// SubBusinessDays steps t back by n business days. Starting from a weekend,
// the first step lands on the preceding Friday, matching the usual
// business-day offset convention.
func SubBusinessDays(t time.Time, n int) time.Time {
	for i := 0; i < n; i++ {
		t = t.AddDate(0, 0, -1)
		for !IsBusinessDay(t) {
			t = t.AddDate(0, 0, -1)
		}
	}
	return t
}

// Day truncates t to midnight UTC so dates can be compared at day
// granularity regardless of their original clock time or zone.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FirstOfMonth reports whether t is the first calendar day of its month.
func FirstOfMonth(t time.Time) bool {
	return t.Day() == 1
}
