package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"family-tasks/internal/model"
)

// TaskRepository handles CRUD for templates and instances.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ListByChild returns every row for the child, templates included, oldest
// schedule first.
func (r *TaskRepository) ListByChild(ctx context.Context, childID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("child_id = ?", childID).
		Order("created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListByChildren is ListByChild for several children at once.
func (r *TaskRepository) ListByChildren(ctx context.Context, childIDs []string) ([]model.Task, error) {
	if len(childIDs) == 0 {
		return nil, nil
	}
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("child_id IN ?", childIDs).
		Order("created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// SetCompletion writes the completion flag and stamp of one instance.
func (r *TaskRepository) SetCompletion(ctx context.Context, id string, completed bool, completedAt *time.Time) error {
	return r.update(ctx, id, "complete task", map[string]interface{}{
		"is_completed": completed,
		"completed_at": completedAt,
	})
}

// ApplySchedule writes the scheduled day, original date and start time.
// Nil values are written as NULL.
func (r *TaskRepository) ApplySchedule(ctx context.Context, id string, scheduledAt time.Time, originalDate *time.Time, startTime *string) error {
	return r.update(ctx, id, "reschedule task", map[string]interface{}{
		"created_at":    scheduledAt,
		"original_date": originalDate,
		"start_time":    startTime,
	})
}

func (r *TaskRepository) UpdatePattern(ctx context.Context, id, pattern string) error {
	return r.update(ctx, id, "update pattern", map[string]interface{}{
		"recurrence_pattern": pattern,
	})
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Task{}).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (r *TaskRepository) DeleteByChild(ctx context.Context, childID string) error {
	if err := r.db.WithContext(ctx).Where("child_id = ?", childID).Delete(&model.Task{}).Error; err != nil {
		return fmt.Errorf("delete child tasks: %w", err)
	}
	return nil
}

func (r *TaskRepository) update(ctx context.Context, id, op string, values map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, gorm.ErrRecordNotFound)
	}
	return nil
}
