package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/herbstore-backend/pkg/redis"
)

// KeyValue is the slice of the redis client the cart store needs.
type KeyValue interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	ReleaseLock(ctx context.Context, key, token string) (bool, error)
	CartKey(sessionID string) string
	LockKey(scope, id string) string
}

// Store keeps carts in redis as JSON under the session id.
type Store struct {
	kv  KeyValue
	ttl time.Duration
}

// NewStore builds a store whose carts expire after ttl of inactivity.
func NewStore(kv KeyValue, ttl time.Duration) (*Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("key value store required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cart ttl must be positive")
	}
	return &Store{kv: kv, ttl: ttl}, nil
}

// Load returns the stored cart, or nil when the session has none.
func (s *Store) Load(ctx context.Context, sessionID string) (*Cart, error) {
	raw, err := s.kv.Get(ctx, s.kv.CartKey(sessionID))
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if c.Lines == nil {
		c.Lines = []Line{}
	}
	c.SessionID = sessionID
	return &c, nil
}

// Save writes the cart and refreshes its expiry.
func (s *Store) Save(ctx context.Context, c *Cart) error {
	c.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.kv.Set(ctx, s.kv.CartKey(c.SessionID), string(raw), s.ttl); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Delete drops the stored cart.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.kv.Del(ctx, s.kv.CartKey(sessionID)); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

// Lock takes the per-session mutation lock. The returned release func must
// be called once the mutation is saved. ok is false when another request
// holds the lock. Release only drops the lock while this holder still owns
// it, so a request that overran hold cannot unlock a later one.
func (s *Store) Lock(ctx context.Context, sessionID string, hold time.Duration) (release func(), ok bool, err error) {
	key := s.kv.LockKey("cart", sessionID)
	token := uuid.NewString()
	acquired, err := s.kv.SetNX(ctx, key, token, hold)
	if err != nil {
		return nil, false, fmt.Errorf("lock cart: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return func() {
		_, _ = s.kv.ReleaseLock(context.WithoutCancel(ctx), key, token)
	}, true, nil
}
