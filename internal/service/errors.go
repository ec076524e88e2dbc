package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrUnauthorized is returned when a call carries no signed-in owner.
	ErrUnauthorized = errors.New("sign-in required")
	// ErrNotFound covers both missing records and records owned by someone else.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateCategoryName means the owner already has a category with that name.
	ErrDuplicateCategoryName = errors.New("category with this name already exists")
)

// ValidationError reports a rejected form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// notFound maps gorm's missing-record error onto ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
