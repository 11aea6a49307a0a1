package recurrence

import (
	"strings"
	"time"
)

// Kind identifies the variant of a Pattern.
type Kind int

// KindCustom is the zero value so that an unset Pattern is an empty custom
// set and matches nothing.
const (
	KindCustom Kind = iota
	KindDaily
	KindWeekdays
	KindWeekends
)

const (
	literalDaily    = "daily"
	literalWeekdays = "weekdays"
	literalWeekends = "weekends"
)

var dayByName = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var nameByDay = map[time.Weekday]string{
	time.Sunday:    "sunday",
	time.Monday:    "monday",
	time.Tuesday:   "tuesday",
	time.Wednesday: "wednesday",
	time.Thursday:  "thursday",
	time.Friday:    "friday",
	time.Saturday:  "saturday",
}

// Pattern is a recurrence rule: Daily, Weekdays, Weekends or a custom set of
// weekdays. Days of a custom pattern keep the order they were supplied in.
type Pattern struct {
	kind Kind
	days []time.Weekday
}

func Daily() Pattern    { return Pattern{kind: KindDaily} }
func Weekdays() Pattern { return Pattern{kind: KindWeekdays} }
func Weekends() Pattern { return Pattern{kind: KindWeekends} }

// Custom builds a custom-days pattern. Duplicates are dropped, first
// occurrence wins.
func Custom(days ...time.Weekday) Pattern {
	p := Pattern{kind: KindCustom}
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday || p.has(d) {
			continue
		}
		p.days = append(p.days, d)
	}
	return p
}

// Parse reads the persisted form of a pattern. It never fails: anything not
// exactly equal to one of the three literals is treated as a comma-separated
// list of weekday names, and tokens that are not exactly a lower-case weekday
// name are skipped.
func Parse(raw string) Pattern {
	switch raw {
	case literalDaily:
		return Daily()
	case literalWeekdays:
		return Weekdays()
	case literalWeekends:
		return Weekends()
	}

	var days []time.Weekday
	for _, token := range strings.Split(raw, ",") {
		if d, ok := dayByName[token]; ok {
			days = append(days, d)
		}
	}
	return Custom(days...)
}

func (p Pattern) Kind() Kind { return p.kind }

// IsEmpty reports whether the pattern can never match.
func (p Pattern) IsEmpty() bool {
	return p.kind == KindCustom && len(p.days) == 0
}

// Matches reports whether the pattern selects the calendar day of date. The
// weekday is taken in date's own location.
func (p Pattern) Matches(date time.Time) bool {
	wd := date.Weekday()
	switch p.kind {
	case KindDaily:
		return true
	case KindWeekdays:
		return wd >= time.Monday && wd <= time.Friday
	case KindWeekends:
		return wd == time.Saturday || wd == time.Sunday
	default:
		return p.has(wd)
	}
}

// String serializes the pattern to its persisted form.
func (p Pattern) String() string {
	switch p.kind {
	case KindDaily:
		return literalDaily
	case KindWeekdays:
		return literalWeekdays
	case KindWeekends:
		return literalWeekends
	}
	names := make([]string, 0, len(p.days))
	for _, d := range p.days {
		names = append(names, nameByDay[d])
	}
	return strings.Join(names, ",")
}

// Describe returns a short human-readable label used in chat messages.
func (p Pattern) Describe() string {
	switch p.kind {
	case KindDaily:
		return "каждый день"
	case KindWeekdays:
		return "по будням"
	case KindWeekends:
		return "по выходным"
	}
	if len(p.days) == 0 {
		return "никогда"
	}
	short := make([]string, 0, len(p.days))
	for _, d := range p.days {
		short = append(short, shortRu[d])
	}
	return "по дням: " + strings.Join(short, ", ")
}

var shortRu = map[time.Weekday]string{
	time.Monday:    "пн",
	time.Tuesday:   "вт",
	time.Wednesday: "ср",
	time.Thursday:  "чт",
	time.Friday:    "пт",
	time.Saturday:  "сб",
	time.Sunday:    "вс",
}

func (p Pattern) has(d time.Weekday) bool {
	for _, x := range p.days {
		if x == d {
			return true
		}
	}
	return false
}
