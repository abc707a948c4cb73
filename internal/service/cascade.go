package service

import (
	"fmt"
	"slices"

	"github.com/sakif/formsmith/internal/apperror"
)

// cascade runs the steps of a multi-collection write in order and remembers
// which ones committed. The row store has no transactions, so a failure is
// never rolled back: if anything had already committed the caller gets a
// *apperror.PartialCascadeError describing where it stopped.
type cascade struct {
	operation string
	formID    string
	committed []apperror.Step
}

func newCascade(operation, formID string) *cascade {
	return &cascade{operation: operation, formID: formID}
}

// run executes one step. Callers stop at the first error it returns.
func (c *cascade) run(step apperror.Step, fn func() error) error {
	if err := fn(); err != nil {
		if len(c.committed) == 0 {
			return fmt.Errorf("%s of form %s: %s: %w", c.operation, c.formIDOrNew(), step, err)
		}
		return &apperror.PartialCascadeError{
			Operation: c.operation,
			FormID:    c.formID,
			Failed:    step,
			Committed: slices.Clone(c.committed),
			Err:       err,
		}
	}
	c.committed = append(c.committed, step)
	return nil
}

func (c *cascade) formIDOrNew() string {
	if c.formID == "" {
		return "(new)"
	}
	return c.formID
}
