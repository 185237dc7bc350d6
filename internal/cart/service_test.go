package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/herbstore-backend/internal/pricing"
	"github.com/angelmondragon/herbstore-backend/pkg/db/models"
	"github.com/angelmondragon/herbstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/herbstore-backend/pkg/errors"
)

type fakeKV struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = fmt.Sprint(value)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = fmt.Sprint(value)
	return true, nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeKV) ReleaseLock(_ context.Context, key, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data[key] != token {
		return false, nil
	}
	delete(f.data, key)
	return true, nil
}

func (f *fakeKV) CartKey(sessionID string) string { return "cart:" + sessionID }

func (f *fakeKV) LockKey(scope, id string) string { return "lock:" + scope + ":" + id }

type stubProducts struct {
	products map[uuid.UUID]models.Product
}

func (s stubProducts) FindProduct(_ context.Context, id uuid.UUID) (*models.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return &p, nil
}

func newTestService(t *testing.T, products ...models.Product) (Service, *fakeKV) {
	t.Helper()
	kv := newFakeKV()
	store, err := NewStore(kv, time.Hour)
	require.NoError(t, err)
	stub := stubProducts{products: map[uuid.UUID]models.Product{}}
	for _, p := range products {
		stub.products[p.ID] = p
	}
	svc, err := NewService(ServiceParams{
		Store:         store,
		Products:      stub,
		Resolver:      pricing.NewResolver(nil),
		ShippingFee:   dec("1.5"),
		CurrencyLabel: "ر.ع",
	})
	require.NoError(t, err)
	return svc, kv
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)

	_, err = NewStore(nil, time.Hour)
	assert.Error(t, err)
}

func TestGetCartEmptySession(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	dto, err := svc.GetCart(context.Background(), "sess")
	require.NoError(t, err)
	assert.Empty(t, dto.Lines)
	assert.Equal(t, "0.00", dto.SubtotalDisplay)
	assert.Equal(t, "1.50", dto.GrandTotalDisplay)
	assert.Equal(t, "ر.ع", dto.Currency)

	_, err = svc.GetCart(context.Background(), "  ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAddItemPersistsAndMerges(t *testing.T) {
	t.Parallel()
	henna := hennaProduct()
	svc, kv := newTestService(t, henna)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "sess", AddItemInput{ProductID: henna.ID, Quantity: 2, Size: enums.VariantKey500g.String()})
	require.NoError(t, err)
	dto, err := svc.AddItem(ctx, "sess", AddItemInput{ProductID: henna.ID, Size: enums.VariantKey500g.String()})
	require.NoError(t, err)

	require.Len(t, dto.Lines, 1)
	assert.Equal(t, 3, dto.Lines[0].Quantity)
	assert.Equal(t, "15.00", dto.SubtotalDisplay)
	assert.Equal(t, "16.50", dto.GrandTotalDisplay)
	assert.Equal(t, "15.00", dto.Lines[0].LineTotal)

	raw, ok := kv.data["cart:sess"]
	require.True(t, ok, "cart should be stored")
	assert.Equal(t, time.Hour, kv.ttls["cart:sess"])
	var stored Cart
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Len(t, stored.Lines, 1)

	_, locked := kv.data["lock:cart:sess"]
	assert.False(t, locked, "lock should be released")
}

func TestStoreLockReleaseKeepsSuccessorLock(t *testing.T) {
	t.Parallel()
	kv := newFakeKV()
	store, err := NewStore(kv, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	release, ok, err := store.Lock(ctx, "sess", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = store.Lock(ctx, "sess", time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must wait")

	// first hold expired and another request took the lock
	kv.data["lock:cart:sess"] = "successor"
	release()
	assert.Equal(t, "successor", kv.data["lock:cart:sess"])
}

func TestAddItemDefaultsToPreferredSize(t *testing.T) {
	t.Parallel()
	henna := hennaProduct()
	svc, _ := newTestService(t, henna)

	dto, err := svc.AddItem(context.Background(), "sess", AddItemInput{ProductID: henna.ID})
	require.NoError(t, err)
	require.Len(t, dto.Lines, 1)
	assert.Equal(t, enums.VariantKey500g.String(), dto.Lines[0].SelectedSize)
	assert.Equal(t, 1, dto.Lines[0].Quantity)
}

func TestAddItemValidation(t *testing.T) {
	t.Parallel()
	henna := hennaProduct()
	empty := hennaProduct()
	empty.Price.Entries = nil
	svc, kv := newTestService(t, henna, empty)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "sess", AddItemInput{ProductID: henna.ID, Quantity: -1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.AddItem(ctx, "sess", AddItemInput{ProductID: henna.ID, Size: "2 كيلو"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.AddItem(ctx, "sess", AddItemInput{ProductID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.AddItem(ctx, "sess", AddItemInput{ProductID: empty.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePriceUnavailable))

	_, stored := kv.data["cart:sess"]
	assert.False(t, stored, "failed mutations must not persist a cart")
}

func TestAddItemConflictWhileLocked(t *testing.T) {
	t.Parallel()
	henna := hennaProduct()
	svc, kv := newTestService(t, henna)
	kv.data["lock:cart:sess"] = "1"

	_, err := svc.AddItem(context.Background(), "sess", AddItemInput{ProductID: henna.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestRemoveLineAndClearService(t *testing.T) {
	t.Parallel()
	henna := hennaProduct()
	sidr := sidrProduct()
	svc, _ := newTestService(t, henna, sidr)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "sess", AddItemInput{ProductID: henna.ID})
	require.NoError(t, err)
	dto, err := svc.AddItem(ctx, "sess", AddItemInput{ProductID: sidr.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, dto.Lines, 2)

	dto, err = svc.RemoveLine(ctx, "sess", dto.Lines[0].ID)
	require.NoError(t, err)
	require.Len(t, dto.Lines, 1)
	assert.Equal(t, sidr.ID, dto.Lines[0].ProductID)

	_, err = svc.RemoveLine(ctx, "sess", uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	dto, err = svc.Clear(ctx, "sess")
	require.NoError(t, err)
	assert.Empty(t, dto.Lines)
	assert.Equal(t, "1.50", dto.GrandTotalDisplay)
}

func TestConsume(t *testing.T) {
	t.Parallel()
	sidr := sidrProduct()
	svc, kv := newTestService(t, sidr)
	ctx := context.Background()

	err := svc.Consume(ctx, "sess", func(context.Context, *Cart) error { return nil })
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "empty cart cannot be consumed")

	_, err = svc.AddItem(ctx, "sess", AddItemInput{ProductID: sidr.ID})
	require.NoError(t, err)

	err = svc.Consume(ctx, "sess", func(context.Context, *Cart) error {
		return pkgerrors.New(pkgerrors.CodeDependency, "boom")
	})
	require.Error(t, err)
	_, kept := kv.data["cart:sess"]
	assert.True(t, kept, "failed consume keeps the cart")

	var seen int
	err = svc.Consume(ctx, "sess", func(_ context.Context, c *Cart) error {
		seen = c.ItemCount()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, seen)
	_, kept = kv.data["cart:sess"]
	assert.False(t, kept, "consumed cart is deleted")
	for key := range kv.data {
		assert.False(t, strings.HasPrefix(key, "lock:"), "lock %s left behind", key)
	}
}

func TestAddItemKeepsPriceFromFirstAdd(t *testing.T) {
	t.Parallel()
	henna := hennaProduct()
	store, err := NewStore(newFakeKV(), time.Hour)
	require.NoError(t, err)
	stub := stubProducts{products: map[uuid.UUID]models.Product{henna.ID: henna}}
	svc, err := NewService(ServiceParams{
		Store:         store,
		Products:      stub,
		Resolver:      pricing.NewResolver(nil),
		ShippingFee:   dec("1.5"),
		CurrencyLabel: "ر.ع",
	})
	require.NoError(t, err)
	ctx := context.Background()
	size := enums.VariantKey500g.String()

	_, err = svc.AddItem(ctx, "sess", AddItemInput{ProductID: henna.ID, Quantity: 1, Size: size})
	require.NoError(t, err)

	repriced := henna
	repriced.Price = henna.Price.With(size, dec("7.0"))
	stub.products[henna.ID] = repriced

	_, err = svc.AddItem(ctx, "sess", AddItemInput{ProductID: henna.ID, Quantity: 1, Size: size})
	require.NoError(t, err)

	dto, err := svc.GetCart(ctx, "sess")
	require.NoError(t, err)
	require.Len(t, dto.Lines, 1)
	assert.True(t, dto.Lines[0].UnitPrice.Equal(dec("5.0")), "unit price %s", dto.Lines[0].UnitPrice)
	assert.Equal(t, 2, dto.Lines[0].Quantity)
	assert.Equal(t, "10.00", dto.Lines[0].LineTotal)
}
