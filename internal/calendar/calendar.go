// Package calendar holds the date and time-of-day conventions shared by the
// catalog and the appointment store. A calendar day is a time.Time at
// midnight UTC; a time of day is the clinic's "03:04 PM" label.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimeOfDayLayout = "03:04 PM"
)

// Day truncates t to its calendar day as seen in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a calendar day.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be YYYY-MM-DD", s)
	}
	return d, nil
}

func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// Normalize drops any clock component so that dates coming from the
// database or from callers compare with ==.
func Normalize(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// MinuteOfDay returns the minutes since midnight for a "03:04 PM" label.
func MinuteOfDay(label string) (int, bool) {
	t, err := time.Parse(TimeOfDayLayout, strings.TrimSpace(label))
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// CompareTimeOfDay orders labels chronologically. Labels that do not parse
// sort after the ones that do, then lexically.
func CompareTimeOfDay(a, b string) int {
	ma, oka := MinuteOfDay(a)
	mb, okb := MinuteOfDay(b)
	switch {
	case oka && okb:
		return ma - mb
	case oka:
		return -1
	case okb:
		return 1
	default:
		return strings.Compare(a, b)
	}
}
