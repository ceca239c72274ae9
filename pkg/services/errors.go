// Package services provides the configuration-management layer between the
// HTTP surface and persistence: workflow and macro CRUD with validation.
package services

import (
	"errors"
	"fmt"
)

// Business logic errors mapping to 4xx responses.
var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrNameRequired       = errors.New("name is required")
	ErrModuleRequired     = errors.New("module is required")
	ErrTriggerRequired    = errors.New("trigger type is required")
	ErrActionsRequired    = errors.New("at least one action is required")
	ErrInvalidActionOrder = errors.New("action orders must be unique")
	ErrInvalidTrigger     = errors.New("unknown trigger type")
	ErrInvalidCron        = errors.New("scheduled workflows require a valid cron expression")
)

// ServiceError wraps service-level errors with operation context.
type ServiceError struct {
	Op      string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks whether an error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrNameRequired) ||
		errors.Is(err, ErrModuleRequired) ||
		errors.Is(err, ErrTriggerRequired) ||
		errors.Is(err, ErrActionsRequired) ||
		errors.Is(err, ErrInvalidActionOrder) ||
		errors.Is(err, ErrInvalidTrigger) ||
		errors.Is(err, ErrInvalidCron)
}

// NewValidationError creates a validation error with context.
func NewValidationError(op, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Message: message, Err: err}
}
