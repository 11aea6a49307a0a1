package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"family-tasks/internal/model"
	"family-tasks/internal/recurrence"
	"family-tasks/internal/repository"
)

// SprintLength is the length of a new sprint.
const SprintLength = 7 * 24 * time.Hour

// SprintService manages a child's weekly sprints.
type SprintService struct {
	sprints  *repository.SprintRepository
	children *repository.ChildRepository
	log      *zap.Logger
	now      func() time.Time
}

func NewSprintService(sprints *repository.SprintRepository, children *repository.ChildRepository, log *zap.Logger) *SprintService {
	return &SprintService{sprints: sprints, children: children, log: log.Named("sprints"), now: time.Now}
}

func (s *SprintService) WithClock(now func() time.Time) *SprintService {
	s.now = now
	return s
}

// Create starts a new seven-day sprint for the child, closing the active one.
func (s *SprintService) Create(ctx context.Context, parent *model.Parent, childID, name, goal string) (*model.Sprint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("sprint name is required")
	}
	if _, err := s.ownedChild(ctx, parent, childID); err != nil {
		return nil, err
	}
	now := s.now()
	sprint := model.Sprint{
		ChildID:   childID,
		Name:      name,
		Goal:      optional(goal),
		StartDate: now,
		EndDate:   now.Add(SprintLength),
	}
	if err := s.sprints.StartNew(ctx, &sprint); err != nil {
		return nil, err
	}
	s.log.Info("sprint started", zap.String("child_id", childID), zap.String("sprint_id", sprint.ID))
	return &sprint, nil
}

// Complete deactivates the sprint.
func (s *SprintService) Complete(ctx context.Context, parent *model.Parent, sprintID string) (*model.Sprint, error) {
	sprint, err := s.ownedSprint(ctx, parent, sprintID)
	if err != nil {
		return nil, err
	}
	if err := s.sprints.Deactivate(ctx, sprint.ID); err != nil {
		return nil, err
	}
	sprint.IsActive = false
	return sprint, nil
}

// Update changes the sprint's name and goal. An empty goal clears it.
func (s *SprintService) Update(ctx context.Context, parent *model.Parent, sprintID, name, goal string) (*model.Sprint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("sprint name is required")
	}
	sprint, err := s.ownedSprint(ctx, parent, sprintID)
	if err != nil {
		return nil, err
	}
	g := optional(goal)
	if err := s.sprints.UpdateDetails(ctx, sprint.ID, name, g); err != nil {
		return nil, err
	}
	sprint.Name = name
	sprint.Goal = g
	return sprint, nil
}

// EndingToday lists active sprints whose end falls on now's calendar day.
// The store compares stored timestamps, which may carry another offset, so
// the query window is a day wider on each side and the day check happens here.
func (s *SprintService) EndingToday(ctx context.Context, now time.Time) ([]model.Sprint, error) {
	today := recurrence.StartOfDay(now)
	candidates, err := s.sprints.ActiveEndingBetween(ctx, today.AddDate(0, 0, -1), today.AddDate(0, 0, 2))
	if err != nil {
		return nil, fmt.Errorf("list ending sprints: %w", err)
	}
	var out []model.Sprint
	for _, sprint := range candidates {
		if recurrence.SameDay(now, sprint.EndDate) {
			out = append(out, sprint)
		}
	}
	return out, nil
}

// DaysRemaining rounds the time left up to whole days. It is negative once
// the sprint is over.
func DaysRemaining(sprint model.Sprint, now time.Time) int {
	return int(math.Ceil(sprint.EndDate.Sub(now).Hours() / 24))
}

func (s *SprintService) ownedChild(ctx context.Context, parent *model.Parent, childID string) (*model.Child, error) {
	child, err := s.children.FindByID(ctx, childID)
	if err != nil {
		return nil, lookup(err, "child")
	}
	if child.ParentID != parent.ID {
		return nil, ErrForbidden
	}
	return child, nil
}

func (s *SprintService) ownedSprint(ctx context.Context, parent *model.Parent, sprintID string) (*model.Sprint, error) {
	sprint, err := s.sprints.FindByID(ctx, sprintID)
	if err != nil {
		return nil, lookup(err, "sprint")
	}
	if _, err := s.ownedChild(ctx, parent, sprint.ChildID); err != nil {
		return nil, err
	}
	return sprint, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
