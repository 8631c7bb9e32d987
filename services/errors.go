package services

import (
	"errors"
	"strings"

	"project-tracker/policy"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("access denied")
	ErrBadArguments       = errors.New("bad arguments")
	ErrAlreadyExists      = errors.New("already exists")
	ErrUnauthorized       = errors.New("invalid credentials")
	ErrOwnerRemoval       = errors.New("cannot remove project owner")
	ErrFileTooLarge       = errors.New("file too large")
	ErrFileTypeNotAllowed = errors.New("file type not allowed")
	ErrStorageUnavailable = errors.New("attachment storage unavailable")
)

// ValidationError lists the request fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid fields: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrBadArguments
}

// Add records a failing field.
func (e *ValidationError) Add(field string) {
	e.Fields = append(e.Fields, field)
}

// Err returns nil when nothing was recorded.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func decisionErr(d policy.Decision) error {
	switch d {
	case policy.Allow:
		return nil
	case policy.DenyNotFound:
		return ErrNotFound
	default:
		return ErrForbidden
	}
}
