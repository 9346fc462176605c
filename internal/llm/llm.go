// Package llm invokes vision language models with bounded retry.
//
// Backends implement Generator and return raw errors. Gateway classifies those
// errors into transient (retried with exponential backoff) and permanent, and
// wraps the final failure in an EnhancedError the API layer can map to a
// status code.
package llm

import (
	"context"
	"sync"

	"github.com/tphakala/trapcam/internal/httpclient"
	"github.com/tphakala/trapcam/internal/imaging"
	"github.com/tphakala/trapcam/internal/logger"
)

// Generator produces raw text for a prompt and image
type Generator interface {
	Generate(ctx context.Context, prompt string, image imaging.Payload) (string, error)
	// Name identifies the backend and model, e.g. "gemini/gemini-2.0-flash"
	Name() string
}

// StatusError is a non-2xx upstream HTTP response
type StatusError = httpclient.StatusError

// Func adapts a function to Generator
type Func struct {
	ID string
	Fn func(ctx context.Context, prompt string, image imaging.Payload) (string, error)
}

// Generate calls Fn
func (f Func) Generate(ctx context.Context, prompt string, image imaging.Payload) (string, error) {
	return f.Fn(ctx, prompt, image)
}

// Name returns ID or "func"
func (f Func) Name() string {
	if f.ID == "" {
		return "func"
	}
	return f.ID
}

// Static replays Responses in order, repeating the last one once exhausted.
// It records every prompt it receives.
type Static struct {
	Responses []string

	mu      sync.Mutex
	calls   int
	prompts []string
}

// NewStatic returns a Static generator for responses
func NewStatic(responses ...string) *Static {
	return &Static{Responses: responses}
}

// Generate returns the next canned response
func (s *Static) Generate(ctx context.Context, prompt string, _ imaging.Payload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if len(s.Responses) == 0 {
		s.calls++
		return "", nil
	}
	idx := min(s.calls, len(s.Responses)-1)
	s.calls++
	return s.Responses[idx], nil
}

// Name returns "static"
func (s *Static) Name() string {
	return "static"
}

// Calls returns how many times Generate ran
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Prompts returns a copy of the received prompts
func (s *Static) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.prompts))
	copy(out, s.prompts)
	return out
}

// DryRunResponse is what the static provider answers: no animal, so the
// pipeline stops after Stage 1 without spending a model call.
const DryRunResponse = `{"animal_present": false, "animal_count": 0, "image_type": "daylight", "image_quality": "good", "proceed_to_identification": false, "stage1_confidence": 1, "rejection_reason": "static provider: no model configured", "time_of_day": "unknown", "date_time": null}`

// GetLogger returns the llm module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("llm")
}
