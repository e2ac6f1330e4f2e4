package llm

import (
	"context"
	"sync"
)

// Stub is a deterministic Generator. It records every request and answers with
// Respond when set, otherwise with Text and Err.
type Stub struct {
	Text    string
	Err     error
	Respond func(parts []Part) (string, error)

	mu    sync.Mutex
	calls [][]Part
}

// Name returns the provider name
func (s *Stub) Name() string {
	return "stub"
}

// Generate records parts and returns the canned answer
func (s *Stub) Generate(ctx context.Context, parts []Part) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, parts)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.Respond != nil {
		return s.Respond(parts)
	}
	return s.Text, s.Err
}

// Calls returns the recorded requests in arrival order
func (s *Stub) Calls() [][]Part {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]Part, len(s.calls))
	copy(out, s.calls)
	return out
}
