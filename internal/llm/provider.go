// Package llm provides the language model provider chain used for
// classification and summarization. Providers share a small generation
// interface; the chain tries them in configured order and falls through
// on any failure.
package llm

import (
	"context"
	"fmt"
)

// Task identifies which enrichment operation an attempt serves.
type Task string

const (
	// TaskClassify asks the model for category labels.
	TaskClassify Task = "classify"
	// TaskSummarize asks the model for a simplified summary.
	TaskSummarize Task = "summarize"
)

// Provider is a single language model backend.
type Provider interface {
	// Name returns the provider name as used in the configured chain.
	Name() string

	// Generate produces a completion for the prompt. Implementations must
	// honor ctx cancellation; the chain enforces a hard per-attempt timeout
	// through it.
	Generate(ctx context.Context, task Task, prompt string) (string, error)
}

// AttemptError wraps a provider failure with its origin.
type AttemptError struct {
	Provider string
	Task     Task
	Err      error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("%s %s attempt: %v", e.Provider, e.Task, e.Err)
}

func (e *AttemptError) Unwrap() error { return e.Err }
