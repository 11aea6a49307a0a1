package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"family-tasks/internal/metrics"
	"family-tasks/internal/model"
	"family-tasks/internal/repository"
	"family-tasks/internal/schedule"
)

var errBoom = errors.New("store unavailable")

// Monday.
var testNow = time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

func day(d int) time.Time {
	return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC)
}

type flakyTasks struct {
	*repository.TaskRepository
	failCompletion bool
	failSchedule   bool
	failCreate     bool

	// createBudget, when set, lets that many creates through and fails the rest.
	createBudget *int
}

func (f *flakyTasks) SetCompletion(ctx context.Context, id string, completed bool, at *time.Time) error {
	if f.failCompletion {
		return errBoom
	}
	return f.TaskRepository.SetCompletion(ctx, id, completed, at)
}

func (f *flakyTasks) ApplySchedule(ctx context.Context, id string, at time.Time, orig *time.Time, start *string) error {
	if f.failSchedule {
		return errBoom
	}
	return f.TaskRepository.ApplySchedule(ctx, id, at, orig, start)
}

func (f *flakyTasks) Create(ctx context.Context, task *model.Task) error {
	if f.failCreate {
		return errBoom
	}
	if f.createBudget != nil {
		if *f.createBudget == 0 {
			return errBoom
		}
		*f.createBudget--
	}
	return f.TaskRepository.Create(ctx, task)
}

type flakyChildren struct {
	*repository.ChildRepository
	failPoints bool
}

func (f *flakyChildren) SetTotalPoints(ctx context.Context, id string, total int) error {
	if f.failPoints {
		return errBoom
	}
	return f.ChildRepository.SetTotalPoints(ctx, id, total)
}

type testEnv struct {
	db       *gorm.DB
	tasks    *flakyTasks
	children *flakyChildren
	metrics  *metrics.Metrics

	family    *FamilyService
	taskSvc   *TaskService
	sprintSvc *SprintService
	telegram  *TelegramService
	reminders *ReminderService

	parent *model.Parent
	child  *model.Child
}

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repository.NewDB(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupServiceTestDB(t)
	log := zap.NewNop()

	parentRepo := repository.NewParentRepository(db)
	childRepo := repository.NewChildRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	sprintRepo := repository.NewSprintRepository(db)
	telegramRepo := repository.NewTelegramRepository(db)

	env := &testEnv{
		db:       db,
		tasks:    &flakyTasks{TaskRepository: taskRepo},
		children: &flakyChildren{ChildRepository: childRepo},
		metrics:  metrics.New(),
	}
	env.telegram = NewTelegramService(telegramRepo, parentRepo, log)
	env.family = NewFamilyService(parentRepo, childRepo, taskRepo, sprintRepo, env.telegram, log)
	env.taskSvc = NewTaskService(env.tasks, env.children, sprintRepo, log, env.metrics).WithClock(clock)
	env.sprintSvc = NewSprintService(sprintRepo, childRepo, log).WithClock(clock)
	env.reminders = NewReminderService(childRepo, env.taskSvc, env.sprintSvc)

	ctx := context.Background()
	parent, err := env.family.RegisterParent(ctx)
	require.NoError(t, err)
	child, err := env.family.AddChild(ctx, parent, "Маша")
	require.NoError(t, err)
	env.parent, env.child = parent, child
	return env
}

func (e *testEnv) storedTask(t *testing.T, id string) *model.Task {
	t.Helper()
	task, err := e.tasks.TaskRepository.FindByID(context.Background(), id)
	require.NoError(t, err)
	return task
}

func (e *testEnv) storedPoints(t *testing.T) int {
	t.Helper()
	child, err := e.children.ChildRepository.FindByID(context.Background(), e.child.ID)
	require.NoError(t, err)
	return child.TotalPoints
}

func (e *testEnv) createOneOff(t *testing.T, title string, points int, date time.Time) model.Task {
	t.Helper()
	created, err := e.taskSvc.CreateTask(context.Background(), e.parent, TaskInput{
		ChildID: e.child.ID, Title: title, Points: points, Date: &date,
	})
	require.NoError(t, err)
	return created.Task
}

func (e *testEnv) createTemplate(t *testing.T, title string, points int, pattern string) *Created {
	t.Helper()
	created, err := e.taskSvc.CreateTask(context.Background(), e.parent, TaskInput{
		ChildID: e.child.ID, Title: title, Points: points, Pattern: pattern,
	})
	require.NoError(t, err)
	return created
}

func assertMetric(t *testing.T, env *testEnv, line string) {
	t.Helper()
	rec := httptest.NewRecorder()
	env.metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), line)
}

func tod(h, m int) *schedule.TimeOfDay {
	return &schedule.TimeOfDay{Hour: h, Minute: m}
}
