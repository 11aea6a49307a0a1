package achievement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"family-tasks/internal/model"
)

func strPtr(s string) *string { return &s }

func TestEvaluateThresholdBoundary(t *testing.T) {
	d := Definition{ID: "task-master", Threshold: 5}

	p := Evaluate(d, 4)
	assert.False(t, p.Unlocked)
	assert.Equal(t, 80, p.Percent)

	p = Evaluate(d, 5)
	assert.True(t, p.Unlocked)
	assert.Equal(t, 100, p.Percent)

	p = Evaluate(d, 50)
	assert.True(t, p.Unlocked)
	assert.Equal(t, 100, p.Percent, "clamped")

	p = Evaluate(d, 0)
	assert.Equal(t, 0, p.Percent)
}

func TestEvaluateRounds(t *testing.T) {
	d := Definition{Threshold: 3}
	assert.Equal(t, 33, Evaluate(d, 1).Percent)
	assert.Equal(t, 67, Evaluate(d, 2).Percent)
}

func TestCatalogHasGlobalBadges(t *testing.T) {
	ids := map[string]Definition{}
	for _, d := range catalog {
		ids[d.ID] = d
	}
	for id, threshold := range map[string]int{
		"first-steps": 1, "task-master": 5, "super-achiever": 10,
		"point-collector": 50, "point-master": 100, "champion": 200,
	} {
		d, ok := ids[id]
		require.True(t, ok, id)
		assert.Equal(t, ScopeGlobal, d.Scope)
		assert.Equal(t, threshold, d.Threshold)
	}
}

func TestCollectSprintIsolation(t *testing.T) {
	child := model.Child{TotalPoints: 42}
	tasks := []model.Task{
		{ID: "a", IsCompleted: true, Points: 5, SprintID: strPtr("s1")},
		{ID: "b", IsCompleted: true, Points: 7, SprintID: strPtr("s0")},
		{ID: "c", IsCompleted: true, Points: 3},
		{ID: "d", IsCompleted: false, Points: 9, SprintID: strPtr("s1")},
		// Templates never count, even if the flag is set.
		{ID: "t", IsRecurring: true, IsCompleted: true, Points: 100, SprintID: strPtr("s1")},
	}

	s := Collect(child, tasks, "s1")
	assert.Equal(t, 3, s.CompletedTasks)
	assert.Equal(t, 42, s.TotalPoints)
	assert.Equal(t, 1, s.SprintCompletedTasks)
	assert.Equal(t, 5, s.SprintPoints)

	none := Collect(child, tasks, "")
	assert.Zero(t, none.SprintCompletedTasks)
	assert.False(t, none.HasActiveSprint)
}

func TestEvaluateAll(t *testing.T) {
	s := Stats{CompletedTasks: 5, TotalPoints: 60, SprintCompletedTasks: 3, SprintPoints: 10, HasActiveSprint: true}
	all := EvaluateAll(s)
	require.Len(t, all, len(catalog))

	byID := map[string]Progress{}
	for _, p := range all {
		byID[p.ID] = p
	}
	assert.True(t, byID["task-master"].Unlocked)
	assert.False(t, byID["super-achiever"].Unlocked)
	assert.Equal(t, 50, byID["super-achiever"].Percent)
	assert.True(t, byID["point-collector"].Unlocked)
	assert.True(t, byID["sprint-starter"].Unlocked)
	assert.Equal(t, 33, byID["sprint-points"].Percent)
	assert.Equal(t, 4, Unlocked(all))

	s.HasActiveSprint = false
	for _, p := range EvaluateAll(s) {
		assert.Equal(t, ScopeGlobal, p.Scope)
	}
}
