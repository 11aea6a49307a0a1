package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"family-tasks/internal/model"
)

// TelegramRepository stores which Telegram chat receives a parent's reminders.
type TelegramRepository struct {
	db *gorm.DB
}

func NewTelegramRepository(db *gorm.DB) *TelegramRepository {
	return &TelegramRepository{db: db}
}

// Upsert binds the Telegram account to the parent. An account is linked to at
// most one parent and a parent to at most one account, so older links on
// either side are replaced.
func (r *TelegramRepository) Upsert(ctx context.Context, parentID string, telegramID, chatID int64, firstName, username string) (*model.TelegramLink, error) {
	var link model.TelegramLink
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("telegram_id = ? AND parent_id <> ?", telegramID, parentID).
			Delete(&model.TelegramLink{}).Error; err != nil {
			return fmt.Errorf("drop old link: %w", err)
		}

		err := tx.Where("parent_id = ?", parentID).First(&link).Error
		switch {
		case err == nil:
			updates := map[string]interface{}{
				"telegram_id": telegramID,
				"chat_id":     chatID,
				"first_name":  firstName,
				"username":    username,
			}
			if err := tx.Model(&link).Updates(updates).Error; err != nil {
				return fmt.Errorf("update link: %w", err)
			}
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			link = model.TelegramLink{
				ParentID:   parentID,
				TelegramID: telegramID,
				ChatID:     chatID,
				FirstName:  firstName,
				Username:   username,
			}
			if err := tx.Create(&link).Error; err != nil {
				return fmt.Errorf("create link: %w", err)
			}
			return nil
		default:
			return fmt.Errorf("find link: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *TelegramRepository) FindByParent(ctx context.Context, parentID string) (*model.TelegramLink, error) {
	var link model.TelegramLink
	if err := r.db.WithContext(ctx).Where("parent_id = ?", parentID).First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *TelegramRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.TelegramLink, error) {
	var link model.TelegramLink
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// DeleteByParent removes the parent's link. It reports whether one existed.
func (r *TelegramRepository) DeleteByParent(ctx context.Context, parentID string) (bool, error) {
	res := r.db.WithContext(ctx).Where("parent_id = ?", parentID).Delete(&model.TelegramLink{})
	if res.Error != nil {
		return false, fmt.Errorf("delete link: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *TelegramRepository) ListAll(ctx context.Context) ([]model.TelegramLink, error) {
	var links []model.TelegramLink
	if err := r.db.WithContext(ctx).Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}
