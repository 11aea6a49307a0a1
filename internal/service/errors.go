package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound means an access code or id matched no record.
	ErrNotFound = errors.New("not found")
	// ErrNotInstance is returned when a template is toggled or rescheduled.
	ErrNotInstance = errors.New("task is a recurring template")
	// ErrNotTemplate is returned when a schedule edit targets an instance.
	ErrNotTemplate = errors.New("task is not a recurring template")
	// ErrForbidden means the record belongs to another family.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput wraps validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

// lookup converts gorm's missing-record error into ErrNotFound.
func lookup(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("find %s: %w", what, err)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
