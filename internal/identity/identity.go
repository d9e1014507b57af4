package identity

import (
	"context"
	"sync"
)

// Guest is the anonymous sentinel returned when no session exists.
const Guest = "guest"

// Provider resolves the ambient signed-in identity. There is no push contract;
// callers poll. Implementations return Guest rather than an error when no
// session can be resolved.
type Provider interface {
	Current(ctx context.Context) (string, error)
}

// Static is a fixed identity that can be swapped at runtime. Used for
// single-user runs and as a test double.
type Static struct {
	mu sync.RWMutex
	id string
}

func NewStatic(id string) *Static {
	return &Static{id: id}
}

func (s *Static) Current(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.id == "" {
		return Guest, nil
	}
	return s.id, nil
}

func (s *Static) Set(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}
