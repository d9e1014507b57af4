package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mpetrov/cartkeeper/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisStore persists carts as JSON strings in redis. Entries do not expire;
// the cart outlives the session the way the original browser storage did.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Load(ctx context.Context, identity string) (domain.Cart, error) {
	data, err := s.client.Get(ctx, Key(identity)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err2 := json.Unmarshal(data, &cart); err2 != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err2)
	}
	return cart, nil
}

func (s *RedisStore) Save(ctx context.Context, identity string, cart domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	if ret := s.client.Set(ctx, Key(identity), string(data), 0); ret.Err() != nil {
		return fmt.Errorf("redis set failed: %w", ret.Err())
	}
	return nil
}
