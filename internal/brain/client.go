// Package brain is the language-model boundary: one blocking HTTP call per
// turn, constrained to JSON output. Its failure is the assistant's primary
// failure mode and is surfaced to the user as a turn failure, never retried.
package brain

import (
	"context"
	"fmt"
)

// Client produces one raw reply text for one assembled prompt.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ServiceError describes a failed call to an external AI service.
type ServiceError struct {
	Provider  string
	Status    int
	Retryable bool
	Err       error
}

func (e *ServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s service error (status %d): %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s service error: %v", e.Provider, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }
