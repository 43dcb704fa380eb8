// Package generate provides the text-generation collaborator used by the
// answer synthesizer. Calls are synchronous with a hard timeout; timeout
// and upstream failure are ordinary error values, never panics and never
// control flow.
package generate

import (
	"context"
	"errors"
)

// Generator produces text from a prompt within a bounded time budget.
type Generator interface {
	// Generate returns the generated text for the prompt, or an error
	// carrying ErrCodeGenerationFailed / ErrCodeGenerationTimedOut.
	Generate(ctx context.Context, prompt string) (string, error)
}

// isTimeout reports whether an error chain ends in a deadline expiry.
func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
