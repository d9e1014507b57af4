package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mpetrov/cartkeeper/internal/domain"
)

// MemoryStore keeps serialized snapshots in a mutex-guarded map. It holds raw
// payloads rather than decoded carts so corrupt-data behavior matches the
// durable backends.
type MemoryStore struct {
	mu       sync.RWMutex
	payloads map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		payloads: make(map[string][]byte),
	}
}

func (s *MemoryStore) Load(_ context.Context, identity string) (domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.payloads[Key(identity)]
	if !exists {
		return nil, ErrCartNotFound
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return cart, nil
}

func (s *MemoryStore) Save(_ context.Context, identity string, cart domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads[Key(identity)] = data
	return nil
}

// Put injects a raw payload at the identity's partition. Test hook for
// simulating corrupt or externally written data.
func (s *MemoryStore) Put(identity string, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads[Key(identity)] = payload
}
