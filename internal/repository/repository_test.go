package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"family-tasks/internal/model"
)

func setupRepositoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDB(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedChild(t *testing.T, db *gorm.DB) (*model.Parent, *model.Child) {
	t.Helper()
	ctx := context.Background()
	parent := &model.Parent{AccessCode: "PARENT01"}
	require.NoError(t, NewParentRepository(db).Create(ctx, parent))
	child := &model.Child{ParentID: parent.ID, Name: "Петя", AccessCode: "CHILD001"}
	require.NoError(t, NewChildRepository(db).Create(ctx, child))
	return parent, child
}

func TestParentAndChildLookup(t *testing.T) {
	db := setupRepositoryTestDB(t)
	ctx := context.Background()
	parent, child := seedChild(t, db)

	assert.Len(t, parent.ID, 36)
	assert.Equal(t, "#8b5cf6", child.AvatarColor)

	parents := NewParentRepository(db)
	got, err := parents.FindByAccessCode(ctx, "PARENT01")
	require.NoError(t, err)
	assert.Equal(t, parent.ID, got.ID)

	_, err = parents.FindByAccessCode(ctx, "NOPE")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	children := NewChildRepository(db)
	exists, err := children.CodeExists(ctx, "CHILD001")
	require.NoError(t, err)
	assert.True(t, exists)

	list, err := children.ListByParent(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, child.ID, list[0].ID)
}

func TestChildPointsAndAvatar(t *testing.T) {
	db := setupRepositoryTestDB(t)
	ctx := context.Background()
	_, child := seedChild(t, db)
	children := NewChildRepository(db)

	require.NoError(t, children.SetTotalPoints(ctx, child.ID, 25))
	require.NoError(t, children.UpdateAvatar(ctx, child.ID, "🦊"))

	got, err := children.FindByID(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, got.TotalPoints)
	require.NotNil(t, got.AvatarEmoji)
	assert.Equal(t, "🦊", *got.AvatarEmoji)

	err = children.SetTotalPoints(ctx, "missing", 1)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestTaskScheduleWritesNulls(t *testing.T) {
	db := setupRepositoryTestDB(t)
	ctx := context.Background()
	_, child := seedChild(t, db)
	tasks := NewTaskRepository(db)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	task := &model.Task{ChildID: child.ID, Title: "Уборка", Points: 5, CreatedAt: day}
	require.NoError(t, tasks.Create(ctx, task))

	moved := day.AddDate(0, 0, 2)
	start := "15:00:00"
	require.NoError(t, tasks.ApplySchedule(ctx, task.ID, moved, &day, &start))

	got, err := tasks.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(moved))
	require.NotNil(t, got.OriginalDate)
	assert.True(t, got.OriginalDate.Equal(day))
	require.NotNil(t, got.StartTime)
	assert.Equal(t, "15:00:00", *got.StartTime)

	require.NoError(t, tasks.ApplySchedule(ctx, task.ID, day, nil, &start))
	got, err = tasks.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got.OriginalDate)
}

func TestTaskCompletionAndPattern(t *testing.T) {
	db := setupRepositoryTestDB(t)
	ctx := context.Background()
	_, child := seedChild(t, db)
	tasks := NewTaskRepository(db)

	pattern := "weekdays"
	tmpl := &model.Task{ChildID: child.ID, Title: "Зарядка", IsRecurring: true, RecurrencePattern: &pattern}
	require.NoError(t, tasks.Create(ctx, tmpl))
	inst := &model.Task{ChildID: child.ID, Title: "Зарядка", ParentTaskID: &tmpl.ID}
	require.NoError(t, tasks.Create(ctx, inst))

	now := time.Now()
	require.NoError(t, tasks.SetCompletion(ctx, inst.ID, true, &now))
	got, err := tasks.FindByID(ctx, inst.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	assert.NotNil(t, got.CompletedAt)

	require.NoError(t, tasks.SetCompletion(ctx, inst.ID, false, nil))
	got, err = tasks.FindByID(ctx, inst.ID)
	require.NoError(t, err)
	assert.False(t, got.IsCompleted)
	assert.Nil(t, got.CompletedAt)

	require.NoError(t, tasks.UpdatePattern(ctx, tmpl.ID, "saturday,sunday"))
	got, err = tasks.FindByID(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "saturday,sunday", *got.RecurrencePattern)

	err = tasks.SetCompletion(ctx, "missing", true, &now)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	require.NoError(t, tasks.DeleteByChild(ctx, child.ID))
	all, err := tasks.ListByChild(ctx, child.ID)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSprintStartNewDeactivatesPrevious(t *testing.T) {
	db := setupRepositoryTestDB(t)
	ctx := context.Background()
	_, child := seedChild(t, db)
	sprints := NewSprintRepository(db)

	none, err := sprints.ActiveForChild(ctx, child.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	start := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	first := &model.Sprint{ChildID: child.ID, Name: "Неделя 1", StartDate: start, EndDate: start.AddDate(0, 0, 7)}
	require.NoError(t, sprints.StartNew(ctx, first))
	second := &model.Sprint{ChildID: child.ID, Name: "Неделя 2", StartDate: start.AddDate(0, 0, 7), EndDate: start.AddDate(0, 0, 14)}
	require.NoError(t, sprints.StartNew(ctx, second))

	active, err := sprints.ActiveForChild(ctx, child.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)

	old, err := sprints.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, old.IsActive)

	ending, err := sprints.ActiveEndingBetween(ctx, start.AddDate(0, 0, 14), start.AddDate(0, 0, 15))
	require.NoError(t, err)
	require.Len(t, ending, 1)
	assert.Equal(t, second.ID, ending[0].ID)

	goal := "Читать каждый день"
	require.NoError(t, sprints.UpdateDetails(ctx, second.ID, "Книжная неделя", &goal))
	require.NoError(t, sprints.Deactivate(ctx, second.ID))
	active, err = sprints.ActiveForChild(ctx, child.ID)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestTelegramUpsertReplacesLinks(t *testing.T) {
	db := setupRepositoryTestDB(t)
	ctx := context.Background()
	parent, _ := seedChild(t, db)
	other := &model.Parent{AccessCode: "PARENT02"}
	require.NoError(t, NewParentRepository(db).Create(ctx, other))
	links := NewTelegramRepository(db)

	_, err := links.Upsert(ctx, parent.ID, 100, 100, "Анна", "anna")
	require.NoError(t, err)
	link, err := links.Upsert(ctx, parent.ID, 100, 555, "Анна", "anna")
	require.NoError(t, err)
	assert.Equal(t, int64(555), link.ChatID)

	// The same account moves to another parent.
	_, err = links.Upsert(ctx, other.ID, 100, 555, "Анна", "anna")
	require.NoError(t, err)
	_, err = links.FindByParent(ctx, parent.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	got, err := links.FindByTelegramID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, other.ID, got.ParentID)

	all, err := links.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	removed, err := links.DeleteByParent(ctx, other.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = links.DeleteByParent(ctx, other.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}
