package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"family-tasks/internal/model"
)

// ParentRepository handles parents.
type ParentRepository struct {
	db *gorm.DB
}

func NewParentRepository(db *gorm.DB) *ParentRepository {
	return &ParentRepository{db: db}
}

func (r *ParentRepository) Create(ctx context.Context, parent *model.Parent) error {
	if err := r.db.WithContext(ctx).Create(parent).Error; err != nil {
		return fmt.Errorf("create parent: %w", err)
	}
	return nil
}

func (r *ParentRepository) FindByAccessCode(ctx context.Context, code string) (*model.Parent, error) {
	var parent model.Parent
	if err := r.db.WithContext(ctx).Where("access_code = ?", code).First(&parent).Error; err != nil {
		return nil, err
	}
	return &parent, nil
}

func (r *ParentRepository) FindByID(ctx context.Context, id string) (*model.Parent, error) {
	var parent model.Parent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&parent).Error; err != nil {
		return nil, err
	}
	return &parent, nil
}

func (r *ParentRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	return codeExists(r.db.WithContext(ctx), &model.Parent{}, code)
}

// ChildRepository handles child profiles.
type ChildRepository struct {
	db *gorm.DB
}

func NewChildRepository(db *gorm.DB) *ChildRepository {
	return &ChildRepository{db: db}
}

func (r *ChildRepository) Create(ctx context.Context, child *model.Child) error {
	if err := r.db.WithContext(ctx).Create(child).Error; err != nil {
		return fmt.Errorf("create child: %w", err)
	}
	return nil
}

func (r *ChildRepository) FindByAccessCode(ctx context.Context, code string) (*model.Child, error) {
	var child model.Child
	if err := r.db.WithContext(ctx).Where("access_code = ?", code).First(&child).Error; err != nil {
		return nil, err
	}
	return &child, nil
}

func (r *ChildRepository) FindByID(ctx context.Context, id string) (*model.Child, error) {
	var child model.Child
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&child).Error; err != nil {
		return nil, err
	}
	return &child, nil
}

func (r *ChildRepository) ListByParent(ctx context.Context, parentID string) ([]model.Child, error) {
	var children []model.Child
	if err := r.db.WithContext(ctx).Where("parent_id = ?", parentID).
		Order("created_at ASC").
		Find(&children).Error; err != nil {
		return nil, err
	}
	return children, nil
}

// SetTotalPoints writes an absolute total. Concurrent writers overwrite each
// other; the last write wins.
func (r *ChildRepository) SetTotalPoints(ctx context.Context, id string, total int) error {
	return r.update(ctx, id, "update points", map[string]interface{}{"total_points": total})
}

func (r *ChildRepository) UpdateAvatar(ctx context.Context, id, emoji string) error {
	return r.update(ctx, id, "update avatar", map[string]interface{}{"avatar_emoji": emoji})
}

func (r *ChildRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Child{}).Error; err != nil {
		return fmt.Errorf("delete child: %w", err)
	}
	return nil
}

func (r *ChildRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	return codeExists(r.db.WithContext(ctx), &model.Child{}, code)
}

func (r *ChildRepository) update(ctx context.Context, id, op string, values map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Child{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, gorm.ErrRecordNotFound)
	}
	return nil
}

func codeExists(db *gorm.DB, table interface{}, code string) (bool, error) {
	var n int64
	if err := db.Model(table).Where("access_code = ?", code).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check access code: %w", err)
	}
	return n > 0, nil
}
