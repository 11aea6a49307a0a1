package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"family-tasks/internal/metrics"
	"family-tasks/internal/model"
	"family-tasks/internal/recurrence"
	"family-tasks/internal/schedule"
	"family-tasks/internal/session"
)

// TaskStore is the persistence TaskService needs. *repository.TaskRepository
// implements it.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id string) (*model.Task, error)
	ListByChild(ctx context.Context, childID string) ([]model.Task, error)
	SetCompletion(ctx context.Context, id string, completed bool, completedAt *time.Time) error
	ApplySchedule(ctx context.Context, id string, scheduledAt time.Time, originalDate *time.Time, startTime *string) error
	UpdatePattern(ctx context.Context, id, pattern string) error
	Delete(ctx context.Context, id string) error
}

// ChildStore is implemented by *repository.ChildRepository.
type ChildStore interface {
	FindByAccessCode(ctx context.Context, code string) (*model.Child, error)
	FindByID(ctx context.Context, id string) (*model.Child, error)
	SetTotalPoints(ctx context.Context, id string, total int) error
}

// SprintStore is implemented by *repository.SprintRepository.
type SprintStore interface {
	ActiveForChild(ctx context.Context, childID string) (*model.Sprint, error)
}

// TaskInput represents data required to create a task. A non-empty Pattern
// makes it a recurring template.
type TaskInput struct {
	ChildID     string
	Title       string
	Description string
	Points      int
	Date        *time.Time
	StartTime   *schedule.TimeOfDay
	Pattern     string
}

// Created is the result of CreateTask. FirstInstance is set only for
// templates whose first instance was stored.
type Created struct {
	Task          model.Task
	FirstInstance *model.Task
}

// ToggleOutcome reports what ToggleCompletion did.
type ToggleOutcome struct {
	Task        model.Task
	Completed   bool
	PointsDelta int
	// Spawned is tomorrow's instance when completion created one.
	Spawned *model.Task
	// Reloaded means the state was replaced from the store.
	Reloaded bool
}

// TaskService wraps task-related business logic.
type TaskService struct {
	tasks    TaskStore
	children ChildStore
	sprints  SprintStore
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewTaskService(tasks TaskStore, children ChildStore, sprints SprintStore, log *zap.Logger, m *metrics.Metrics) *TaskService {
	return &TaskService{
		tasks:    tasks,
		children: children,
		sprints:  sprints,
		log:      log.Named("tasks"),
		metrics:  m,
		now:      time.Now,
	}
}

// WithClock replaces the time source. The clock's location is the family's
// local time.
func (s *TaskService) WithClock(now func() time.Time) *TaskService {
	s.now = now
	return s
}

// Load builds the session state for the child with the given access code.
func (s *TaskService) Load(ctx context.Context, childCode string) (*session.State, error) {
	child, err := s.children.FindByAccessCode(ctx, normalizeCode(childCode))
	if err != nil {
		return nil, lookup(err, "child")
	}
	return s.load(ctx, child)
}

// LoadChild is Load by child id.
func (s *TaskService) LoadChild(ctx context.Context, childID string) (*session.State, error) {
	child, err := s.children.FindByID(ctx, childID)
	if err != nil {
		return nil, lookup(err, "child")
	}
	return s.load(ctx, child)
}

// Reload replaces st with the store's current data for the same child.
func (s *TaskService) Reload(ctx context.Context, st *session.State) error {
	fresh, err := s.LoadChild(ctx, st.Child.ID)
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	*st = *fresh
	return nil
}

func (s *TaskService) load(ctx context.Context, child *model.Child) (*session.State, error) {
	tasks, err := s.tasks.ListByChild(ctx, child.ID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	sprint, err := s.sprints.ActiveForChild(ctx, child.ID)
	if err != nil {
		return nil, err
	}
	return &session.State{Child: *child, Tasks: tasks, ActiveSprint: sprint}, nil
}

// CreateTask stores a one-off instance or a recurring template for one of the
// parent's children. New tasks join the child's active sprint. Saving a
// template also stores its first instance on the first matching day of the
// coming week; failing that insert is logged and the template is kept.
func (s *TaskService) CreateTask(ctx context.Context, parent *model.Parent, input TaskInput) (*Created, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, invalid("title is required")
	}
	if input.Points < 0 {
		return nil, invalid("points must not be negative")
	}

	child, err := s.children.FindByID(ctx, input.ChildID)
	if err != nil {
		return nil, lookup(err, "child")
	}
	if child.ParentID != parent.ID {
		return nil, ErrForbidden
	}

	sprint, err := s.sprints.ActiveForChild(ctx, child.ID)
	if err != nil {
		return nil, err
	}
	var sprintID *string
	if sprint != nil {
		sprintID = &sprint.ID
	}

	now := s.now()
	task := model.Task{
		ChildID:     child.ID,
		SprintID:    sprintID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Points:      input.Points,
	}

	if input.Pattern == "" {
		day := recurrence.StartOfDay(now)
		if input.Date != nil {
			day = recurrence.StartOfDay(input.Date.In(now.Location()))
		}
		task.CreatedAt = day
		if input.StartTime != nil {
			st := input.StartTime.String()
			task.StartTime = &st
		}
		if err := s.tasks.Create(ctx, &task); err != nil {
			return nil, err
		}
		return &Created{Task: task}, nil
	}

	pattern := input.Pattern
	task.IsRecurring = true
	task.RecurrencePattern = &pattern
	task.CreatedAt = now
	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, err
	}
	out := &Created{Task: task}

	tmpl, ok := schedule.TemplateFromTask(task)
	if !ok {
		return out, nil
	}
	req, ok := schedule.FirstInstance(tmpl, now)
	if !ok {
		msg := "template matches no day this week"
		if tmpl.Pattern.IsEmpty() {
			msg = "template pattern names no weekday"
		}
		s.log.Warn(msg, zap.String("template_id", task.ID), zap.String("pattern", pattern))
		return out, nil
	}
	first := req.Task()
	if err := s.tasks.Create(ctx, &first); err != nil {
		s.metrics.SpawnFailed("template")
		s.log.Error("create first instance", zap.String("template_id", task.ID), zap.Error(err))
		return out, nil
	}
	s.metrics.Spawned("template")
	out.FirstInstance = &first
	return out, nil
}

// UpdateTemplatePattern changes a template's recurrence. Instances already
// created keep their dates.
func (s *TaskService) UpdateTemplatePattern(ctx context.Context, parent *model.Parent, templateID, pattern string) (*model.Task, error) {
	task, err := s.ownedTask(ctx, parent, templateID)
	if err != nil {
		return nil, err
	}
	if task.Kind() != model.KindTemplate {
		return nil, ErrNotTemplate
	}
	if err := s.tasks.UpdatePattern(ctx, task.ID, pattern); err != nil {
		return nil, err
	}
	task.RecurrencePattern = &pattern
	return task, nil
}

// DeleteTask removes one row. Deleting a template leaves its instances.
func (s *TaskService) DeleteTask(ctx context.Context, parent *model.Parent, taskID string) error {
	task, err := s.ownedTask(ctx, parent, taskID)
	if err != nil {
		return err
	}
	return s.tasks.Delete(ctx, task.ID)
}

// ToggleCompletion flips an instance in st and persists it.
//
// The state is updated first. If the task write fails the state is restored
// and the error returned. If the points write fails the state is reloaded
// from the store. A completion whose template selects tomorrow stores
// tomorrow's instance and reloads the state.
func (s *TaskService) ToggleCompletion(ctx context.Context, st *session.State, taskID string) (*ToggleOutcome, error) {
	row, ok := st.FindTask(taskID)
	if !ok {
		return nil, fmt.Errorf("task: %w", ErrNotFound)
	}
	inst, ok := schedule.InstanceFromTask(row)
	if !ok {
		return nil, ErrNotInstance
	}

	res := schedule.Toggle(inst, s.now())
	priorRow := row
	priorPoints := st.Child.TotalPoints
	nextRow := row
	res.Next.Apply(&nextRow)
	st.ReplaceTask(nextRow)
	st.Child.TotalPoints = priorPoints + res.PointsDelta

	out := &ToggleOutcome{Task: nextRow, Completed: res.Completed(), PointsDelta: res.PointsDelta}

	if err := s.tasks.SetCompletion(ctx, row.ID, res.Next.Completed, res.Next.CompletedAt); err != nil {
		st.ReplaceTask(priorRow)
		st.Child.TotalPoints = priorPoints
		s.log.Warn("toggle task, rolled back", zap.String("task_id", row.ID), zap.Error(err))
		return nil, fmt.Errorf("toggle task: %w", err)
	}
	s.metrics.Toggled(res.Completed())

	if err := s.children.SetTotalPoints(ctx, st.Child.ID, priorPoints+res.PointsDelta); err != nil {
		s.log.Warn("update points, reloading", zap.String("child_id", st.Child.ID), zap.Error(err))
		s.metrics.Reloaded("points")
		if err := s.Reload(ctx, st); err != nil {
			return nil, err
		}
		out.Reloaded = true
		return out, nil
	}

	if res.Completed() && inst.TemplateID != nil {
		spawned, err := s.spawnNext(ctx, res.Next)
		if err != nil {
			return nil, err
		}
		if spawned != nil {
			out.Spawned = spawned
			if err := s.Reload(ctx, st); err != nil {
				return nil, err
			}
			out.Reloaded = true
		}
	}
	return out, nil
}

// spawnNext stores tomorrow's instance of inst's template when the pattern
// selects tomorrow. A missing template or failed insert yields nil.
func (s *TaskService) spawnNext(ctx context.Context, inst schedule.Instance) (*model.Task, error) {
	var tmpl *schedule.Template
	row, err := s.tasks.FindByID(ctx, *inst.TemplateID)
	switch {
	case err == nil:
		if t, ok := schedule.TemplateFromTask(*row); ok {
			tmpl = &t
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		s.log.Warn("load template", zap.String("template_id", *inst.TemplateID), zap.Error(err))
		s.metrics.SpawnFailed("completion")
		return nil, nil
	}

	req, ok := schedule.OnInstanceCompleted(inst, tmpl, s.now())
	if !ok {
		return nil, nil
	}
	next := req.Task()
	if err := s.tasks.Create(ctx, &next); err != nil {
		s.metrics.SpawnFailed("completion")
		s.log.Error("create next instance", zap.String("template_id", req.TemplateID), zap.Error(err))
		return nil, nil
	}
	s.metrics.Spawned("completion")
	s.log.Debug("spawned instance",
		zap.String("template_id", req.TemplateID),
		zap.String("task_id", next.ID),
		zap.Time("date", req.Date))
	return &next, nil
}

// Reschedule moves an instance in st to another day and optionally another
// start time. A failed write restores the prior state.
func (s *TaskService) Reschedule(ctx context.Context, st *session.State, taskID string, date time.Time, startTime *schedule.TimeOfDay) (*model.Task, error) {
	row, ok := st.FindTask(taskID)
	if !ok {
		return nil, fmt.Errorf("task: %w", ErrNotFound)
	}
	inst, ok := schedule.InstanceFromTask(row)
	if !ok {
		return nil, ErrNotInstance
	}

	res := schedule.Reschedule(inst, date.In(s.now().Location()), startTime)
	nextRow := row
	res.Next.Apply(&nextRow)
	st.ReplaceTask(nextRow)

	if err := s.tasks.ApplySchedule(ctx, row.ID, nextRow.CreatedAt, nextRow.OriginalDate, nextRow.StartTime); err != nil {
		st.ReplaceTask(row)
		s.log.Warn("reschedule task, rolled back", zap.String("task_id", row.ID), zap.Error(err))
		return nil, fmt.Errorf("reschedule task: %w", err)
	}
	return &nextRow, nil
}

func (s *TaskService) ownedTask(ctx context.Context, parent *model.Parent, taskID string) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, lookup(err, "task")
	}
	child, err := s.children.FindByID(ctx, task.ChildID)
	if err != nil {
		return nil, lookup(err, "child")
	}
	if child.ParentID != parent.ID {
		return nil, ErrForbidden
	}
	return task, nil
}
