// Package achievement evaluates the fixed badge catalog against a child's
// tasks. Nothing is stored: progress is recomputed from current data.
package achievement

import (
	"math"

	"family-tasks/internal/model"
)

type Scope int

const (
	// ScopeGlobal counts lifetime totals.
	ScopeGlobal Scope = iota
	// ScopeSprint counts only instances of the active sprint.
	ScopeSprint
)

type Metric int

const (
	MetricTasks Metric = iota
	MetricPoints
)

// Definition is one badge in the catalog.
type Definition struct {
	ID          string
	Title       string
	Description string
	Scope       Scope
	Metric      Metric
	Threshold   int
}

// Progress is a definition evaluated against a Stats value.
type Progress struct {
	Definition
	Current  int
	Unlocked bool
	Percent  int
}

// Stats are the counters achievements are measured against.
type Stats struct {
	CompletedTasks       int
	TotalPoints          int
	SprintCompletedTasks int
	SprintPoints         int
	HasActiveSprint      bool
}

var catalog = []Definition{
	{ID: "first-steps", Title: "Первые шаги", Description: "Выполни 1 задачу", Scope: ScopeGlobal, Metric: MetricTasks, Threshold: 1},
	{ID: "task-master", Title: "Мастер задач", Description: "Выполни 5 задач", Scope: ScopeGlobal, Metric: MetricTasks, Threshold: 5},
	{ID: "super-achiever", Title: "Супер исполнитель", Description: "Выполни 10 задач", Scope: ScopeGlobal, Metric: MetricTasks, Threshold: 10},
	{ID: "point-collector", Title: "Коллекционер баллов", Description: "Набери 50 баллов", Scope: ScopeGlobal, Metric: MetricPoints, Threshold: 50},
	{ID: "point-master", Title: "Мастер баллов", Description: "Набери 100 баллов", Scope: ScopeGlobal, Metric: MetricPoints, Threshold: 100},
	{ID: "champion", Title: "Чемпион", Description: "Набери 200 баллов", Scope: ScopeGlobal, Metric: MetricPoints, Threshold: 200},
	{ID: "sprint-starter", Title: "Старт спринта", Description: "Выполни 3 задачи за спринт", Scope: ScopeSprint, Metric: MetricTasks, Threshold: 3},
	{ID: "sprint-hero", Title: "Герой спринта", Description: "Выполни 10 задач за спринт", Scope: ScopeSprint, Metric: MetricTasks, Threshold: 10},
	{ID: "sprint-points", Title: "Баллы спринта", Description: "Набери 30 баллов за спринт", Scope: ScopeSprint, Metric: MetricPoints, Threshold: 30},
}

// Collect derives Stats from a child's task rows. Templates are skipped.
// Lifetime points come from the child's stored total; sprint points are summed
// from completed instances whose sprint is activeSprintID. An empty
// activeSprintID leaves the sprint counters at zero.
func Collect(child model.Child, tasks []model.Task, activeSprintID string) Stats {
	s := Stats{TotalPoints: child.TotalPoints, HasActiveSprint: activeSprintID != ""}
	for _, t := range tasks {
		if t.Kind() != model.KindInstance || !t.IsCompleted {
			continue
		}
		s.CompletedTasks++
		if s.HasActiveSprint && t.SprintID != nil && *t.SprintID == activeSprintID {
			s.SprintCompletedTasks++
			s.SprintPoints += t.Points
		}
	}
	return s
}

// Value picks the counter a definition is measured against.
func (s Stats) Value(d Definition) int {
	switch {
	case d.Scope == ScopeGlobal && d.Metric == MetricTasks:
		return s.CompletedTasks
	case d.Scope == ScopeGlobal:
		return s.TotalPoints
	case d.Metric == MetricTasks:
		return s.SprintCompletedTasks
	default:
		return s.SprintPoints
	}
}

// Evaluate measures a single definition.
func Evaluate(d Definition, current int) Progress {
	return Progress{
		Definition: d,
		Current:    current,
		Unlocked:   current >= d.Threshold,
		Percent:    percent(current, d.Threshold),
	}
}

// EvaluateAll measures the whole catalog. Sprint-scoped badges are left out
// when there is no active sprint.
func EvaluateAll(s Stats) []Progress {
	out := make([]Progress, 0, len(catalog))
	for _, d := range catalog {
		if d.Scope == ScopeSprint && !s.HasActiveSprint {
			continue
		}
		out = append(out, Evaluate(d, s.Value(d)))
	}
	return out
}

// Unlocked counts unlocked entries.
func Unlocked(ps []Progress) int {
	n := 0
	for _, p := range ps {
		if p.Unlocked {
			n++
		}
	}
	return n
}

func percent(current, threshold int) int {
	if threshold <= 0 {
		return 100
	}
	if current <= 0 {
		return 0
	}
	p := int(math.Round(100 * float64(current) / float64(threshold)))
	if p > 100 {
		return 100
	}
	return p
}
