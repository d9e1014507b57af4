package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mpetrov/cartkeeper/internal/domain"
	"github.com/mpetrov/cartkeeper/internal/identity"
	"github.com/mpetrov/cartkeeper/internal/reducer"
	"github.com/mpetrov/cartkeeper/internal/storage"
)

// DefaultPollInterval matches the identity re-check cadence of the original
// storefront session watcher.
const DefaultPollInterval = 300 * time.Millisecond

// Syncer owns the in-memory cart for the lifetime of one identity. Every
// mutation goes through the reducer and the resulting snapshot is written to
// the identity's storage partition. Run polls the ambient identity and rebuilds
// the cart from the new partition whenever it changes; the previous identity's
// items are never merged in.
//
// Storage is best-effort: a failed write leaves the in-memory cart
// authoritative until the next successful one, and unreadable stored data
// hydrates as an empty cart.
type Syncer struct {
	store        storage.CartStore
	ids          identity.Provider
	log          *zap.Logger
	pollInterval time.Duration

	mu   sync.RWMutex
	id   string
	cart domain.Cart
}

// New resolves the current identity and hydrates its stored cart. Stored items
// are replayed through the add intent, so hydration re-applies the same stock
// clamping as live mutation.
func New(ctx context.Context, store storage.CartStore, ids identity.Provider, log *zap.Logger, pollInterval time.Duration) *Syncer {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	s := &Syncer{
		store:        store,
		ids:          ids,
		log:          log,
		pollInterval: pollInterval,
	}

	id, err := ids.Current(ctx)
	if err != nil {
		log.Warn("failed to resolve identity, starting as guest", zap.Error(err))
		id = identity.Guest
	}

	s.mu.Lock()
	s.rehydrateLocked(ctx, id)
	s.mu.Unlock()
	return s
}

// AddItem merges the item into the cart, clamped to its stock ceiling, and
// persists the new snapshot. The returned snapshot lets callers compare the
// requested quantity against the clamped result.
func (s *Syncer) AddItem(ctx context.Context, item domain.LineItem) domain.Cart {
	return s.dispatch(ctx, reducer.AddItem{Item: item})
}

// RemoveItem drops the product from the cart. Removing an absent product is a
// no-op.
func (s *Syncer) RemoveItem(ctx context.Context, productID string) domain.Cart {
	return s.dispatch(ctx, reducer.RemoveItem{ProductID: productID})
}

// UpdateQuantity sets the product's quantity, clamped to its stock ceiling.
// Zero or negative removes the item.
func (s *Syncer) UpdateQuantity(ctx context.Context, productID string, quantity int) domain.Cart {
	return s.dispatch(ctx, reducer.UpdateQuantity{ProductID: productID, Quantity: quantity})
}

// ClearCart empties the cart.
func (s *Syncer) ClearCart(ctx context.Context) domain.Cart {
	return s.dispatch(ctx, reducer.ClearCart{})
}

// Items returns a copy of the current snapshot.
func (s *Syncer) Items() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

// Subtotal returns the price total of the current snapshot.
func (s *Syncer) Subtotal() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Subtotal()
}

// Identity returns the identity the cart is currently scoped to.
func (s *Syncer) Identity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Run polls the ambient identity until ctx is cancelled. The ticker is the only
// recurring resource the syncer holds; it is released on every exit path.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Refresh performs one identity check immediately. Callers that cannot wait for
// the next poll tick (an explicit logout, say) use this to force the switch.
func (s *Syncer) Refresh(ctx context.Context) {
	id, err := s.ids.Current(ctx)
	if err != nil {
		s.log.Warn("failed to resolve identity, keeping current cart", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id == s.id {
		return
	}
	s.log.Info("identity changed, rebuilding cart",
		zap.String("from", s.id),
		zap.String("to", id),
	)
	s.rehydrateLocked(ctx, id)
}

func (s *Syncer) dispatch(ctx context.Context, in reducer.Intent) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = reducer.Apply(s.cart, in)
	s.persistLocked(ctx)
	return s.cart.Clone()
}

// rehydrateLocked discards the in-memory cart and rebuilds it from the given
// identity's partition. Stored items go through the add intent rather than a
// raw overwrite, so quantities persisted above a since-reduced stock ceiling
// come back clamped.
func (s *Syncer) rehydrateLocked(ctx context.Context, id string) {
	s.id = id
	s.cart = domain.Cart{}

	stored, err := s.store.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrCartNotFound) {
			s.log.Warn("failed to load stored cart, starting empty",
				zap.String("identity", id),
				zap.Error(err),
			)
		}
		s.persistLocked(ctx)
		return
	}

	for _, item := range stored {
		s.cart = reducer.Apply(s.cart, reducer.AddItem{Item: item})
	}
	s.persistLocked(ctx)
}

func (s *Syncer) persistLocked(ctx context.Context) {
	if err := s.store.Save(ctx, s.id, s.cart); err != nil {
		s.log.Warn("failed to persist cart, in-memory state stays authoritative",
			zap.String("identity", s.id),
			zap.Error(err),
		)
	}
}
