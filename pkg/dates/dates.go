package dates

import (
	"fmt"
	"iter"
	"strings"
	"time"
)

// Source publishes rankings Monday to Thursday only.
var DefaultWeekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday}

const (
	ISOLayout  = "2006-01-02"
	pathLayout = "2006/01/02"
)

// Candidates yields every day from start to today (inclusive) that falls on
// one of weekdays, or DefaultWeekdays when none are given. now is read once
// each time iteration starts, so the sequence can be ranged over again.
func Candidates(start time.Time, now func() time.Time, weekdays ...time.Weekday) iter.Seq[time.Time] {
	if len(weekdays) == 0 {
		weekdays = DefaultWeekdays
	}
	var keep [7]bool
	for _, wd := range weekdays {
		keep[wd] = true
	}
	first := civil(start)

	return func(yield func(time.Time) bool) {
		today := civil(now())
		for d := first; !d.After(today); d = d.AddDate(0, 0, 1) {
			if !keep[d.Weekday()] {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

// Path formats d the way the ranking site lays out its URLs: YYYY/MM/DD.
func Path(d time.Time) string {
	return d.Format(pathLayout)
}

// ParseISO reads a YYYY-MM-DD date.
func ParseISO(s string) (time.Time, error) {
	t, err := time.Parse(ISOLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWeekdays reads a comma separated list such as "mon,tue,wed,thu".
func ParseWeekdays(s string) ([]time.Weekday, error) {
	var out []time.Weekday
	for _, name := range strings.Split(s, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		wd, ok := weekdayNames[name]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		out = append(out, wd)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no weekdays in %q", s)
	}
	return out, nil
}

// civil drops the clock part, keeping the calendar day as seen in t's location.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
