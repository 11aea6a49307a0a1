// Package schedule holds the recurring-task rules: spawning the next
// instance of a template, flipping completion with its points delta, and
// moving an instance to another day while keeping the original-date baseline.
// Everything here is pure; callers persist the results.
package schedule

import (
	"time"

	"family-tasks/internal/model"
	"family-tasks/internal/recurrence"
)

// Template is a recurring rule. It is never shown to the child and never
// completed.
type Template struct {
	ID          string
	ChildID     string
	Title       string
	Description string
	Points      int
	Pattern     recurrence.Pattern
	SprintID    *string
}

// Instance is one concrete, completable task for a single day.
type Instance struct {
	ID           string
	ChildID      string
	Title        string
	Description  string
	Points       int
	Completed    bool
	CompletedAt  *time.Time
	SprintID     *string
	TemplateID   *string
	ScheduledAt  time.Time
	OriginalDate *time.Time
	StartTime    *TimeOfDay
}

// TemplateFromTask converts a task row into a Template. It returns false when
// the row is an instance or has no recurrence pattern stored.
func TemplateFromTask(t model.Task) (Template, bool) {
	if t.Kind() != model.KindTemplate || t.RecurrencePattern == nil {
		return Template{}, false
	}
	return Template{
		ID:          t.ID,
		ChildID:     t.ChildID,
		Title:       t.Title,
		Description: t.Description,
		Points:      t.Points,
		Pattern:     recurrence.Parse(*t.RecurrencePattern),
		SprintID:    t.SprintID,
	}, true
}

// InstanceFromTask converts a task row into an Instance. Templates are
// rejected. A start time that does not parse is dropped.
func InstanceFromTask(t model.Task) (Instance, bool) {
	if t.Kind() != model.KindInstance {
		return Instance{}, false
	}
	inst := Instance{
		ID:           t.ID,
		ChildID:      t.ChildID,
		Title:        t.Title,
		Description:  t.Description,
		Points:       t.Points,
		Completed:    t.IsCompleted,
		CompletedAt:  t.CompletedAt,
		SprintID:     t.SprintID,
		TemplateID:   t.ParentTaskID,
		ScheduledAt:  t.CreatedAt,
		OriginalDate: t.OriginalDate,
	}
	if t.StartTime != nil {
		if tod, err := ParseTimeOfDay(*t.StartTime); err == nil {
			inst.StartTime = &tod
		}
	}
	return inst, true
}

// Apply copies the instance's mutable fields back onto a task row.
func (i Instance) Apply(t *model.Task) {
	t.IsCompleted = i.Completed
	t.CompletedAt = i.CompletedAt
	t.CreatedAt = i.ScheduledAt
	t.OriginalDate = i.OriginalDate
	if i.StartTime != nil {
		s := i.StartTime.String()
		t.StartTime = &s
	} else {
		t.StartTime = nil
	}
}

// IsRescheduled reports whether the instance sits on a different day than the
// one it was originally planned for.
func (i Instance) IsRescheduled() bool {
	return i.OriginalDate != nil && !recurrence.SameDay(i.ScheduledAt, *i.OriginalDate)
}

// IsRescheduled is the row-level form of Instance.IsRescheduled.
func IsRescheduled(t model.Task) bool {
	return t.OriginalDate != nil && !recurrence.SameDay(t.CreatedAt, *t.OriginalDate)
}
