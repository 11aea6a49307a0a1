package recurrence

import "time"

// StartOfDay truncates t to local midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay compares calendar days. b is converted into a's location first.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Tomorrow returns midnight of the day after now, in now's location.
func Tomorrow(now time.Time) time.Time {
	return StartOfDay(now).AddDate(0, 0, 1)
}

// WeekStart returns midnight of the Monday of t's week.
func WeekStart(t time.Time) time.Time {
	offset := int(t.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	return StartOfDay(t).AddDate(0, 0, -offset)
}

// ShouldSpawnTomorrow reports whether p selects the day after now.
func ShouldSpawnTomorrow(p Pattern, now time.Time) bool {
	return p.Matches(Tomorrow(now))
}

// NextMatch returns the first day in [from, from+horizon) selected by p.
func NextMatch(p Pattern, from time.Time, horizon int) (time.Time, bool) {
	day := StartOfDay(from)
	for i := 0; i < horizon; i++ {
		if p.Matches(day) {
			return day, true
		}
		day = day.AddDate(0, 0, 1)
	}
	return time.Time{}, false
}
