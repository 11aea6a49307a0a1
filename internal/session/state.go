// Package session holds the in-memory view of one child's data: the child,
// every task row and the active sprint. Services mutate it optimistically and
// replace it wholesale on reload.
package session

import (
	"sort"
	"time"

	"family-tasks/internal/achievement"
	"family-tasks/internal/model"
	"family-tasks/internal/recurrence"
	"family-tasks/internal/schedule"
)

// State is owned by the caller and passed into every task operation.
// It is not safe for concurrent use.
type State struct {
	Child        model.Child
	Tasks        []model.Task
	ActiveSprint *model.Sprint
}

// ActiveSprintID returns the active sprint's id or "".
func (s *State) ActiveSprintID() string {
	if s.ActiveSprint == nil {
		return ""
	}
	return s.ActiveSprint.ID
}

// FindTask returns a copy of the task row with the given id.
func (s *State) FindTask(id string) (model.Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// ReplaceTask swaps in t by id. It reports false when the id is unknown.
func (s *State) ReplaceTask(t model.Task) bool {
	for i := range s.Tasks {
		if s.Tasks[i].ID == t.ID {
			s.Tasks[i] = t
			return true
		}
	}
	return false
}

// Visible lists the instances the child sees: everything scheduled for today
// or earlier. Templates and future instances are hidden.
func (s *State) Visible(now time.Time) []model.Task {
	today := recurrence.StartOfDay(now)
	var out []model.Task
	for _, t := range s.Tasks {
		if t.Kind() != model.KindInstance {
			continue
		}
		day := recurrence.StartOfDay(t.CreatedAt.In(now.Location()))
		if day.After(today) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SprintTasks splits Visible by the active sprint.
func (s *State) SprintTasks(now time.Time) []model.Task {
	id := s.ActiveSprintID()
	if id == "" {
		return nil
	}
	var out []model.Task
	for _, t := range s.Visible(now) {
		if t.SprintID != nil && *t.SprintID == id {
			out = append(out, t)
		}
	}
	return out
}

// OtherTasks is the complement of SprintTasks within Visible.
func (s *State) OtherTasks(now time.Time) []model.Task {
	id := s.ActiveSprintID()
	var out []model.Task
	for _, t := range s.Visible(now) {
		if id == "" || t.SprintID == nil || *t.SprintID != id {
			out = append(out, t)
		}
	}
	return out
}

// ForDate lists the instances scheduled on day's calendar day, ordered by
// start time. Instances without a start time sort as DefaultStartTime.
func (s *State) ForDate(day time.Time) []model.Task {
	var out []model.Task
	for _, t := range s.Tasks {
		if t.Kind() != model.KindInstance {
			continue
		}
		if recurrence.SameDay(day, t.CreatedAt) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return startOf(out[i]).Before(startOf(out[j]))
	})
	return out
}

// Day is one column of the calendar week.
type Day struct {
	Date  time.Time
	Tasks []model.Task
}

// WeekOf returns the Monday-based week containing day.
func (s *State) WeekOf(day time.Time) []Day {
	start := recurrence.WeekStart(day)
	week := make([]Day, 7)
	for i := range week {
		d := start.AddDate(0, 0, i)
		week[i] = Day{Date: d, Tasks: s.ForDate(d)}
	}
	return week
}

// Achievements evaluates the badge catalog against the loaded tasks.
func (s *State) Achievements() []achievement.Progress {
	return achievement.EvaluateAll(achievement.Collect(s.Child, s.Tasks, s.ActiveSprintID()))
}

func startOf(t model.Task) schedule.TimeOfDay {
	if t.StartTime != nil {
		if tod, err := schedule.ParseTimeOfDay(*t.StartTime); err == nil {
			return tod
		}
	}
	return schedule.DefaultStartTime
}
