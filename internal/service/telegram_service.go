package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"family-tasks/internal/model"
	"family-tasks/internal/repository"
)

// TelegramService links parents to the Telegram chats that get reminders.
type TelegramService struct {
	links   *repository.TelegramRepository
	parents *repository.ParentRepository
	log     *zap.Logger
}

func NewTelegramService(links *repository.TelegramRepository, parents *repository.ParentRepository, log *zap.Logger) *TelegramService {
	return &TelegramService{links: links, parents: parents, log: log.Named("telegram")}
}

// Account identifies the Telegram side of a link.
type Account struct {
	TelegramID int64
	ChatID     int64
	FirstName  string
	Username   string
}

// Link binds the account to the parent owning code.
func (s *TelegramService) Link(ctx context.Context, code string, acc Account) (*model.Parent, error) {
	parent, err := s.parents.FindByAccessCode(ctx, normalizeCode(code))
	if err != nil {
		return nil, lookup(err, "parent")
	}
	if _, err := s.links.Upsert(ctx, parent.ID, acc.TelegramID, acc.ChatID, acc.FirstName, acc.Username); err != nil {
		return nil, err
	}
	s.log.Info("telegram linked", zap.String("parent_id", parent.ID), zap.Int64("telegram_id", acc.TelegramID))
	return parent, nil
}

// ParentForAccount returns the parent linked to a Telegram user.
func (s *TelegramService) ParentForAccount(ctx context.Context, telegramID int64) (*model.Parent, error) {
	link, err := s.links.FindByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, lookup(err, "telegram link")
	}
	parent, err := s.parents.FindByID(ctx, link.ParentID)
	if err != nil {
		return nil, lookup(err, "parent")
	}
	return parent, nil
}

// Status returns the parent's link or nil.
func (s *TelegramService) Status(ctx context.Context, parent *model.Parent) (*model.TelegramLink, error) {
	link, err := s.links.FindByParent(ctx, parent.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find telegram link: %w", err)
	}
	return link, nil
}

// Unlink drops the parent's link. Unlinking twice is not an error.
func (s *TelegramService) Unlink(ctx context.Context, parent *model.Parent) (bool, error) {
	removed, err := s.links.DeleteByParent(ctx, parent.ID)
	if err != nil {
		return false, err
	}
	if removed {
		s.log.Info("telegram unlinked", zap.String("parent_id", parent.ID))
	}
	return removed, nil
}

// Links lists every linked chat.
func (s *TelegramService) Links(ctx context.Context) ([]model.TelegramLink, error) {
	return s.links.ListAll(ctx)
}
