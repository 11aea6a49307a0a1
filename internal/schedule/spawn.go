package schedule

import (
	"time"

	"family-tasks/internal/model"
	"family-tasks/internal/recurrence"
)

// FirstInstanceHorizon is how many days ahead a freshly saved template looks
// for the day of its first instance.
const FirstInstanceHorizon = 7

// NewInstanceRequest asks the caller to insert a task instance. Nothing is
// written by this package.
type NewInstanceRequest struct {
	ChildID     string
	TemplateID  string
	Title       string
	Description string
	Points      int
	SprintID    *string
	Date        time.Time
}

// Task builds the row to insert. OriginalDate equals the scheduled day so a
// fresh instance does not count as moved.
func (r NewInstanceRequest) Task() model.Task {
	templateID := r.TemplateID
	original := r.Date
	var sprintID *string
	if r.SprintID != nil {
		s := *r.SprintID
		sprintID = &s
	}
	return model.Task{
		ChildID:      r.ChildID,
		SprintID:     sprintID,
		Title:        r.Title,
		Description:  r.Description,
		Points:       r.Points,
		IsCompleted:  false,
		IsRecurring:  false,
		ParentTaskID: &templateID,
		CreatedAt:    r.Date,
		OriginalDate: &original,
	}
}

func requestFor(tmpl Template, date time.Time) NewInstanceRequest {
	return NewInstanceRequest{
		ChildID:     tmpl.ChildID,
		TemplateID:  tmpl.ID,
		Title:       tmpl.Title,
		Description: tmpl.Description,
		Points:      tmpl.Points,
		SprintID:    tmpl.SprintID,
		Date:        date,
	}
}

// ShouldSpawnTomorrow reports whether the template's pattern selects the day
// after now.
func ShouldSpawnTomorrow(tmpl Template, now time.Time) bool {
	return recurrence.ShouldSpawnTomorrow(tmpl.Pattern, now)
}

// OnInstanceCompleted decides whether completing inst should create
// tomorrow's instance of its template. tmpl is the owning template as loaded
// by the caller, or nil when it no longer exists. One-off instances, missing
// templates and templates whose pattern skips tomorrow produce nothing.
func OnInstanceCompleted(inst Instance, tmpl *Template, now time.Time) (NewInstanceRequest, bool) {
	if inst.TemplateID == nil || tmpl == nil || tmpl.ID != *inst.TemplateID {
		return NewInstanceRequest{}, false
	}
	if !ShouldSpawnTomorrow(*tmpl, now) {
		return NewInstanceRequest{}, false
	}
	return requestFor(*tmpl, recurrence.Tomorrow(now)), true
}

// FirstInstance picks the first day within FirstInstanceHorizon days from now
// that the template's pattern selects. Templates that never match get no
// instance.
func FirstInstance(tmpl Template, now time.Time) (NewInstanceRequest, bool) {
	date, ok := recurrence.NextMatch(tmpl.Pattern, now, FirstInstanceHorizon)
	if !ok {
		return NewInstanceRequest{}, false
	}
	return requestFor(tmpl, date), true
}
