package apperror

import (
	"errors"
	"fmt"
	"testing"
)

// Table-driven: every constructor must be recognisable by errors.Is through
// its sentinel, and must not match the others.
func TestErrorsIs(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("form", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("title", "title is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("form", "abc123"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "MissingFilter wraps ErrMissingFilter",
			err:       MissingFilter("delete", "forms"),
			target:    ErrMissingFilter,
			wantMatch: true,
		},
		{
			name:      "UnsupportedOperation wraps ErrUnsupportedOperation",
			err:       UnsupportedOperation("upsert"),
			target:    ErrUnsupportedOperation,
			wantMatch: true,
		},
		{
			name:      "Store wraps ErrStore",
			err:       Store("boom", cause),
			target:    ErrStore,
			wantMatch: true,
		},
		{
			name:      "Store exposes its cause",
			err:       Store("boom", cause),
			target:    cause,
			wantMatch: true,
		},
		{
			name:      "wrapped NotFound still matches",
			err:       fmt.Errorf("loading form: %w", NotFound("form", "x")),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("form", "abc123"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "MissingFilter does NOT match ErrStore",
			err:       MissingFilter("update", "forms"),
			target:    ErrStore,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("form", "abc123"),
			wantMessage: "form not found with id abc123",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("title", "title is required"),
			wantMessage: "title is required",
		},
		{
			name:        "MissingFilter names kind and collection",
			err:         MissingFilter("delete", "form_elements"),
			wantMessage: "delete on form_elements requires an eq filter",
		},
		{
			name:        "UnsupportedOperation quotes the kind",
			err:         UnsupportedOperation("truncate"),
			wantMessage: `unsupported operation "truncate"`,
		},
		{
			name:        "Store keeps the store message verbatim",
			err:         Store("duplicate key value violates unique constraint", nil),
			wantMessage: "duplicate key value violates unique constraint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestAsExtractsAppError(t *testing.T) {
	err := fmt.Errorf("saving: %w", ValidationFailed("email", "invalid email format"))

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatal("errors.As did not find *AppError")
	}
	if appErr.Field != "email" {
		t.Errorf("Field = %q, want %q", appErr.Field, "email")
	}
}

func TestPartialCascadeError(t *testing.T) {
	storeErr := Store("timeout", nil)
	err := &PartialCascadeError{
		Operation: "delete",
		FormID:    "f1",
		Failed:    StepDeleteForm,
		Committed: []Step{StepDeleteElements, StepDeleteResponses},
		Err:       storeErr,
	}

	if !errors.Is(err, ErrPartialCascade) {
		t.Error("PartialCascadeError should match ErrPartialCascade")
	}
	if !errors.Is(err, ErrStore) {
		t.Error("PartialCascadeError should expose the failing step's error")
	}
	if !err.HasCommitted(StepDeleteResponses) {
		t.Error("HasCommitted(delete_responses) = false, want true")
	}
	if err.HasCommitted(StepDeleteForm) {
		t.Error("HasCommitted(delete_form) = true, want false")
	}

	want := "delete of form f1 stopped at delete_form after committing [delete_elements, delete_responses]: timeout"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
