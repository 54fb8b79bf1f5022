package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrUnauthorized means the caller has no valid identity or may not touch the resource.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound means the referenced post or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a concurrent write still collided after one retry.
	ErrConflict = errors.New("conflict")
	// ErrValidationFailed means the input was rejected before touching storage.
	ErrValidationFailed = errors.New("validation failed")
)

// ValidationError describes an input rejected for a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Is lets errors.Is(err, ErrValidationFailed) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// ValidationErrors collects several field failures.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}

func (v ValidationErrors) Is(target error) bool {
	return target == ErrValidationFailed
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// isConflict reports whether err is a write collision worth retrying.
func isConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{
		"Duplicate entry",
		"duplicate key value",
		"UNIQUE constraint failed",
		"Deadlock",
		"deadlock detected",
		"could not serialize",
		"database is locked",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
