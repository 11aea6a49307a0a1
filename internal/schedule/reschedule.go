package schedule

import (
	"time"

	"family-tasks/internal/recurrence"
)

// RescheduleResult is the instance before and after a move.
type RescheduleResult struct {
	Prior Instance
	Next  Instance
}

// Reschedule moves inst to the calendar day of newDate (midnight in newDate's
// location) and, when newTime is given, to that start time.
//
// OriginalDate keeps the first known schedule: it is set to the pre-move date
// on the first move, left alone on later moves, and cleared once the instance
// lands back on that day.
func Reschedule(inst Instance, newDate time.Time, newTime *TimeOfDay) RescheduleResult {
	day := recurrence.StartOfDay(newDate)
	next := inst
	next.ScheduledAt = day
	if newTime != nil {
		tod := *newTime
		next.StartTime = &tod
	}

	switch {
	case inst.OriginalDate != nil && recurrence.SameDay(day, *inst.OriginalDate):
		next.OriginalDate = nil
	case inst.OriginalDate != nil:
		orig := *inst.OriginalDate
		next.OriginalDate = &orig
	default:
		orig := inst.ScheduledAt
		next.OriginalDate = &orig
	}
	return RescheduleResult{Prior: inst, Next: next}
}
