// Package llm wraps the generative text models used for field extraction and
// reviewer assistance behind one Complete call.
package llm

import (
	"context"
	"errors"
)

// Model completes a single-turn prompt.
type Model interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ErrEmptyCompletion is returned when a model answered with no text.
var ErrEmptyCompletion = errors.New("model returned no text")

// Sampling defaults for structured extraction prompts.
const (
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.2
)
