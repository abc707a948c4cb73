// Package apperror defines the error taxonomy shared by every layer.
//
// Each error kind has a sentinel (ErrNotFound, ErrStore, ...) and a constructor
// returning an *AppError that wraps it, so callers test the kind with errors.Is
// and pull the human-readable message out with errors.As. The HTTP layer is the
// only place that turns these into status codes.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("Validation Error")
	ErrConflict             = errors.New("conflict")
	ErrForbidden            = errors.New("forbidden")
	ErrMissingFilter        = errors.New("missing filter")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrStore                = errors.New("store error")
	ErrPartialCascade       = errors.New("partial cascade")
)

type AppError struct {
	Err     error  // sentinel kind
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying error (transport failure, driver error)
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is/As.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// MissingFilter is returned when a destructive or filtered store operation
// arrives without the filter it requires. No store call is made.
func MissingFilter(kind, collection string) *AppError {
	return &AppError{
		Err:     ErrMissingFilter,
		Message: fmt.Sprintf("%s on %s requires an eq filter", kind, collection),
	}
}

func UnsupportedOperation(kind string) *AppError {
	return &AppError{
		Err:     ErrUnsupportedOperation,
		Message: fmt.Sprintf("unsupported operation %q", kind),
	}
}

// Store wraps a transport failure or a store-reported error. The store's own
// message is kept verbatim.
func Store(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrStore,
		Message: message,
		Cause:   cause,
	}
}

// Step names one write of a cascade.
type Step string

const (
	StepUpsertForm      Step = "upsert_form"
	StepDeleteElements  Step = "delete_elements"
	StepInsertElements  Step = "insert_elements"
	StepDeleteResponses Step = "delete_responses"
	StepDeleteForm      Step = "delete_form"
)

// PartialCascadeError reports a multi-step write that stopped after at least
// one step had already been committed. Nothing is rolled back.
type PartialCascadeError struct {
	Operation string // "save", "update" or "delete"
	FormID    string
	Failed    Step
	Committed []Step
	Err       error
}

func (e *PartialCascadeError) Error() string {
	committed := make([]string, len(e.Committed))
	for i, s := range e.Committed {
		committed[i] = string(s)
	}
	return fmt.Sprintf("%s of form %s stopped at %s after committing [%s]: %v",
		e.Operation, e.FormID, e.Failed, strings.Join(committed, ", "), e.Err)
}

func (e *PartialCascadeError) Unwrap() []error {
	return []error{ErrPartialCascade, e.Err}
}

// HasCommitted reports whether step completed before the failure.
func (e *PartialCascadeError) HasCommitted(step Step) bool {
	for _, s := range e.Committed {
		if s == step {
			return true
		}
	}
	return false
}
