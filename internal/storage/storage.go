package storage

import (
	"context"
	"errors"

	"github.com/mpetrov/cartkeeper/internal/domain"
)

var (
	ErrCartNotFound = errors.New("cart not found")
)

// CartStore persists one cart snapshot per identity. Writes are full replaces;
// the engine treats every Load failure as an empty cart and every Save failure
// as best-effort, so implementations only need to report errors, not recover.
type CartStore interface {
	Load(ctx context.Context, identity string) (domain.Cart, error)
	Save(ctx context.Context, identity string, cart domain.Cart) error
}

// Key derives the storage partition key for an identity.
func Key(identity string) string {
	return "cart_" + identity
}
