package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return fmt.Sprintf("sess:%s", accessID)
}

func TestManagerLifecycle(t *testing.T) {
	store := newMockStore()
	manager, err := NewManager(store)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	ctx := context.Background()

	_, ok, err := manager.SessionSubject(ctx, "jti-1")
	if err != nil || ok {
		t.Fatalf("expected no session, ok=%v err=%v", ok, err)
	}

	if err := manager.Start(ctx, "jti-1", " Owner@Example.com", time.Hour); err != nil {
		t.Fatalf("start: %v", err)
	}
	if store.data["sess:jti-1"] != "owner@example.com" {
		t.Fatalf("expected subject stored, got %q", store.data["sess:jti-1"])
	}
	subject, ok, err := manager.SessionSubject(ctx, "jti-1")
	if err != nil || !ok || subject != "owner@example.com" {
		t.Fatalf("expected live session, subject=%q ok=%v err=%v", subject, ok, err)
	}

	if err := manager.Revoke(ctx, "jti-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, ok, _ := manager.SessionSubject(ctx, "jti-1"); ok {
		t.Fatal("expected session revoked")
	}
}

func TestManagerValidation(t *testing.T) {
	manager, _ := NewManager(newMockStore())
	ctx := context.Background()

	if err := manager.Start(ctx, " ", "a", time.Hour); err == nil {
		t.Fatal("expected missing access id error")
	}
	if err := manager.Start(ctx, "jti", "a", 0); err == nil {
		t.Fatal("expected ttl error")
	}
	if _, _, err := manager.SessionSubject(ctx, ""); !errors.Is(err, ErrAccessIDRequired) {
		t.Fatalf("expected ErrAccessIDRequired, got %v", err)
	}
	if err := manager.Revoke(ctx, ""); !errors.Is(err, ErrAccessIDRequired) {
		t.Fatalf("expected ErrAccessIDRequired, got %v", err)
	}
	if _, err := NewManager(nil); err == nil {
		t.Fatal("expected nil store error")
	}
}

type failingStore struct{ *mockStore }

func (f failingStore) Get(context.Context, string) (string, error) {
	return "", errors.New("redis down")
}

func TestManagerSurfacesStoreErrors(t *testing.T) {
	manager, _ := NewManager(failingStore{newMockStore()})
	if _, _, err := manager.SessionSubject(context.Background(), "jti"); err == nil {
		t.Fatal("expected store error")
	}
}
