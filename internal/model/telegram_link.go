package model

import (
	"time"

	"gorm.io/gorm"
)

// TelegramLink binds a parent to the Telegram account that receives reminders.
type TelegramLink struct {
	ID         string `gorm:"primaryKey;size:36"`
	ParentID   string `gorm:"uniqueIndex;size:36"`
	TelegramID int64  `gorm:"uniqueIndex"`
	ChatID     int64
	Username   string
	FirstName  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (l *TelegramLink) BeforeCreate(*gorm.DB) error {
	newID(&l.ID)
	return nil
}
