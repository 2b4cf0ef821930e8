// Package alerts implements the alert rule engine: condition evaluation,
// cooldown suppression, the alert lifecycle state machine and the
// append-only history log.
package alerts

import "fmt"

// ValidationError reports malformed input: unknown enum tags, bad condition
// payloads, unsupported operators. Handlers map it to 400/422.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a field-scoped validation error
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing or tenant-invisible record. Handlers map
// it to 404. Records in other organizations are reported as not found, not
// as forbidden.
type NotFoundError struct {
	Resource string
	ID       uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// NewNotFoundError creates a not-found error for the given resource
func NewNotFoundError(resource string, id uint) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// InvalidStateError reports an illegal lifecycle transition, for example
// acknowledging a resolved alert. Handlers map it to 409.
type InvalidStateError struct {
	Action string
	From   string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s an alert in status %q", e.Action, e.From)
}

// PersistenceError wraps a storage failure. Handlers map it to 500.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// wrapPersistence wraps err into a PersistenceError unless it is nil
func wrapPersistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
