package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"family-tasks/internal/model"
)

// SprintRepository manages sprints.
type SprintRepository struct {
	db *gorm.DB
}

func NewSprintRepository(db *gorm.DB) *SprintRepository {
	return &SprintRepository{db: db}
}

// StartNew deactivates the child's active sprints and inserts sprint as the
// new active one.
func (r *SprintRepository) StartNew(ctx context.Context, sprint *model.Sprint) error {
	sprint.IsActive = true
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Sprint{}).
			Where("child_id = ? AND is_active = ?", sprint.ChildID, true).
			Update("is_active", false).Error; err != nil {
			return fmt.Errorf("deactivate sprints: %w", err)
		}
		if err := tx.Create(sprint).Error; err != nil {
			return fmt.Errorf("create sprint: %w", err)
		}
		return nil
	})
}

// ActiveForChild returns the child's active sprint, or nil when there is none.
func (r *SprintRepository) ActiveForChild(ctx context.Context, childID string) (*model.Sprint, error) {
	var sprint model.Sprint
	err := r.db.WithContext(ctx).Where("child_id = ? AND is_active = ?", childID, true).
		Order("created_at DESC").
		First(&sprint).Error
	switch {
	case err == nil:
		return &sprint, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("find active sprint: %w", err)
	}
}

func (r *SprintRepository) FindByID(ctx context.Context, id string) (*model.Sprint, error) {
	var sprint model.Sprint
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sprint).Error; err != nil {
		return nil, err
	}
	return &sprint, nil
}

func (r *SprintRepository) ListByChildren(ctx context.Context, childIDs []string) ([]model.Sprint, error) {
	if len(childIDs) == 0 {
		return nil, nil
	}
	var sprints []model.Sprint
	if err := r.db.WithContext(ctx).Where("child_id IN ?", childIDs).
		Order("start_date DESC").
		Find(&sprints).Error; err != nil {
		return nil, err
	}
	return sprints, nil
}

// ActiveEndingBetween lists active sprints whose end falls in [from, to).
func (r *SprintRepository) ActiveEndingBetween(ctx context.Context, from, to time.Time) ([]model.Sprint, error) {
	var sprints []model.Sprint
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND end_date >= ? AND end_date < ?", true, from, to).
		Order("end_date").
		Find(&sprints).Error; err != nil {
		return nil, err
	}
	return sprints, nil
}

func (r *SprintRepository) Deactivate(ctx context.Context, id string) error {
	return r.update(ctx, id, "complete sprint", map[string]interface{}{"is_active": false})
}

func (r *SprintRepository) UpdateDetails(ctx context.Context, id, name string, goal *string) error {
	return r.update(ctx, id, "update sprint", map[string]interface{}{"name": name, "goal": goal})
}

func (r *SprintRepository) DeleteByChild(ctx context.Context, childID string) error {
	if err := r.db.WithContext(ctx).Where("child_id = ?", childID).Delete(&model.Sprint{}).Error; err != nil {
		return fmt.Errorf("delete child sprints: %w", err)
	}
	return nil
}

func (r *SprintRepository) update(ctx context.Context, id, op string, values map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Sprint{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, gorm.ErrRecordNotFound)
	}
	return nil
}
