package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrRecordNotFound indicates a record was not found in the caller's
	// organization. Cross-tenant lookups report this too.
	ErrRecordNotFound = errors.New("record not found")

	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrMacroNotFound indicates a macro was not found by the given identifier.
	ErrMacroNotFound = errors.New("macro not found")

	// ErrRunNotFound indicates an automation run was not found.
	ErrRunNotFound = errors.New("automation run not found")

	// ErrApprovalNotFound indicates an approval request was not found.
	ErrApprovalNotFound = errors.New("approval request not found")

	// ErrScheduleNotFound indicates a schedule was not found.
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrStageConflict indicates the optimistic stage check failed: the
	// record's stage changed between validation and commit.
	ErrStageConflict = errors.New("record stage changed concurrently")

	// ErrApprovalConflict indicates an approval request was already
	// resolved by a concurrent resolver.
	ErrApprovalConflict = errors.New("approval request already resolved")
)

// StoreError wraps storage errors with operation and entity context.
type StoreError struct {
	Op       string // Operation being performed (e.g. "GetByID", "CommitStageChange")
	Entity   string // Entity kind ("record", "workflow", ...)
	EntityID string
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.EntityID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a storage error with context.
func NewStoreError(op, entity, entityID string, err error) *StoreError {
	return &StoreError{
		Op:       op,
		Entity:   entity,
		EntityID: entityID,
		Err:      err,
	}
}

// IsNotFound checks whether an error indicates any missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrMacroNotFound) ||
		errors.Is(err, ErrRunNotFound) ||
		errors.Is(err, ErrApprovalNotFound) ||
		errors.Is(err, ErrScheduleNotFound)
}

// IsStageConflict checks whether an error indicates a lost optimistic stage check.
func IsStageConflict(err error) bool {
	return errors.Is(err, ErrStageConflict)
}

// IsApprovalConflict checks whether an error indicates a concurrent approval resolution.
func IsApprovalConflict(err error) bool {
	return errors.Is(err, ErrApprovalConflict)
}
