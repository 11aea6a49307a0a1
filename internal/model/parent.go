package model

import (
	"time"

	"gorm.io/gorm"
)

// Parent owns children and signs in with an opaque access code.
type Parent struct {
	ID         string `gorm:"primaryKey;size:36"`
	AccessCode string `gorm:"uniqueIndex;size:16"`
	CreatedAt  time.Time
	Children   []Child `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE"`
}

func (p *Parent) BeforeCreate(*gorm.DB) error {
	newID(&p.ID)
	return nil
}
