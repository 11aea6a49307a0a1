package model

import (
	"time"

	"gorm.io/gorm"
)

// Sprint is a time-boxed goal window. At most one sprint per child is active.
type Sprint struct {
	ID        string `gorm:"primaryKey;size:36"`
	ChildID   string `gorm:"index;size:36"`
	Name      string
	Goal      *string
	StartDate time.Time
	EndDate   time.Time
	IsActive  bool `gorm:"default:true;index"`
	CreatedAt time.Time
}

func (s *Sprint) BeforeCreate(*gorm.DB) error {
	newID(&s.ID)
	return nil
}
