package model

import (
	"time"

	"gorm.io/gorm"
)

// Task is one row of the tasks table. A row is either a recurring template
// (IsRecurring) or a concrete instance; use Kind instead of reading the two
// flags directly.
type Task struct {
	ID                string  `gorm:"primaryKey;size:36"`
	ChildID           string  `gorm:"index;size:36"`
	SprintID          *string `gorm:"index;size:36"`
	Title             string
	Description       string
	Points            int  `gorm:"default:0"`
	IsCompleted       bool `gorm:"default:false"`
	CompletedAt       *time.Time
	IsRecurring       bool `gorm:"default:false"`
	RecurrencePattern *string
	ParentTaskID      *string `gorm:"index;size:36"`
	OriginalDate      *time.Time
	StartTime         *string // HH:MM:SS
	// CreatedAt is the day the instance is scheduled for.
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *Task) BeforeCreate(*gorm.DB) error {
	newID(&t.ID)
	return nil
}

// TaskKind is the closed template/instance variant of a task row.
type TaskKind int

const (
	KindInstance TaskKind = iota
	KindTemplate
)

func (k TaskKind) String() string {
	if k == KindTemplate {
		return "template"
	}
	return "instance"
}

// Kind classifies the row. IsRecurring wins over ParentTaskID: a recurring
// row is always a template.
func (t Task) Kind() TaskKind {
	if t.IsRecurring {
		return KindTemplate
	}
	return KindInstance
}
