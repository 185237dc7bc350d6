package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

// ErrAccessIDRequired is returned for blank token ids.
var ErrAccessIDRequired = errors.New("access id is required")

// Store is the redis surface the manager needs.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is the read side used by the auth middleware.
type AccessSessionChecker interface {
	// SessionSubject returns the subject recorded for accessID and whether the
	// session is still live.
	SessionSubject(ctx context.Context, accessID string) (string, bool, error)
}

// Manager records live admin tokens by jti so a token can be revoked before
// it expires.
type Manager struct {
	store Store
}

func NewManager(store Store) (*Manager, error) {
	if store == nil {
		return nil, errors.New("redis client is required")
	}
	return &Manager{store: store}, nil
}

func (m *Manager) key(accessID string) (string, error) {
	accessID = strings.TrimSpace(accessID)
	if accessID == "" {
		return "", ErrAccessIDRequired
	}
	return m.store.AccessSessionKey(accessID), nil
}

// Start marks accessID live for ttl, remembering which subject owns it.
func (m *Manager) Start(ctx context.Context, accessID, subject string, ttl time.Duration) error {
	key, err := m.key(accessID)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", ttl)
	}
	return m.store.Set(ctx, key, strings.ToLower(strings.TrimSpace(subject)), ttl)
}

// Revoke ends the session. Revoking an unknown id is not an error.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	key, err := m.key(accessID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) SessionSubject(ctx context.Context, accessID string) (string, bool, error) {
	key, err := m.key(accessID)
	if err != nil {
		return "", false, err
	}
	subject, err := m.store.Get(ctx, key)
	switch {
	case errors.Is(err, redislib.Nil):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("load session %s: %w", accessID, err)
	}
	return subject, true, nil
}
