package model

import (
	"time"

	"gorm.io/gorm"
)

// Child is a profile that receives tasks and collects points.
type Child struct {
	ID          string `gorm:"primaryKey;size:36"`
	ParentID    string `gorm:"index;size:36"`
	Name        string
	AccessCode  string `gorm:"uniqueIndex;size:16"`
	AvatarColor string `gorm:"default:#8b5cf6"`
	AvatarEmoji *string
	TotalPoints int `gorm:"default:0"`
	CreatedAt   time.Time
}

func (c *Child) BeforeCreate(*gorm.DB) error {
	newID(&c.ID)
	return nil
}
