package orders

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/herbstore-backend/internal/pricing"
	"github.com/angelmondragon/herbstore-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/herbstore-backend/pkg/db/types"
	"github.com/angelmondragon/herbstore-backend/pkg/enums"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

type stubProducts struct {
	mu       sync.Mutex
	products map[uuid.UUID]models.Product
	failing  map[uuid.UUID]error
	inFlight atomic.Int32
	peak     atomic.Int32
	gate     chan struct{}
}

func (s *stubProducts) FindProduct(_ context.Context, id uuid.UUID) (*models.Product, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failing[id]; ok {
		return nil, err
	}
	p, ok := s.products[id]
	if !ok {
		return nil, errors.New("product not found")
	}
	return &p, nil
}

type countingResolver struct {
	*pricing.Resolver
	placeholders atomic.Int32
}

func (c *countingResolver) IncPlaceholder() {
	c.placeholders.Add(1)
}

func henna(id uuid.UUID) models.Product {
	return models.Product{
		ID:       id,
		Name:     "حناء جمرة",
		Category: enums.ProductCategoryHennaPowder,
		Kind:     enums.ProductKindVariant,
		Price: dbtypes.NewPriceTable(map[string]decimal.Decimal{
			enums.VariantKey500g.String(): dec("5.0"),
			enums.VariantKey1kg.String():  dec("9.0"),
		}),
	}
}

func sidr(id uuid.UUID) models.Product {
	return models.Product{
		ID:           id,
		Name:         "سدر",
		Category:     enums.ProductCategorySidrPowder,
		Kind:         enums.ProductKindFlat,
		RegularPrice: decimal.NewNullDecimal(dec("3.0")),
	}
}

func TestResolveOrderLinesUsesLivePrices(t *testing.T) {
	hennaID, sidrID := uuid.New(), uuid.New()
	products := &stubProducts{products: map[uuid.UUID]models.Product{
		hennaID: henna(hennaID),
		sidrID:  sidr(sidrID),
	}}
	resolver := &countingResolver{Resolver: pricing.NewResolver(nil)}
	lr := NewLineResolver(products, resolver, 2, nil)

	lines := []models.OrderLine{
		{ID: uuid.New(), ProductID: hennaID, Quantity: 3, SelectedSize: enums.VariantKey1kg, UnitPrice: dec("8.0")},
		{ID: uuid.New(), ProductID: sidrID, Quantity: 1, UnitPrice: dec("3.0")},
	}
	out := lr.ResolveOrderLines(context.Background(), lines)

	require.Len(t, out, 2)
	assert.Equal(t, "حناء جمرة", out[0].Name)
	assert.True(t, out[0].UnitPrice.Equal(dec("9.0")))
	assert.True(t, out[0].LineTotal.Equal(dec("27.0")))
	assert.True(t, out[0].SnapshotPrice.Equal(dec("8.0")))
	assert.Equal(t, enums.VariantKey1kg.String(), out[0].SelectedSize)
	assert.True(t, out[1].UnitPrice.Equal(dec("3.0")))
	assert.True(t, out[1].Available)
	assert.Zero(t, resolver.placeholders.Load())
}

func TestResolveOrderLinesPlaceholderForMissingProduct(t *testing.T) {
	hennaID, sidrID, goneID, brokenID := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	products := &stubProducts{
		products: map[uuid.UUID]models.Product{
			hennaID: henna(hennaID),
			sidrID:  sidr(sidrID),
		},
		failing: map[uuid.UUID]error{brokenID: errors.New("connection reset")},
	}
	resolver := &countingResolver{Resolver: pricing.NewResolver(nil)}
	lr := NewLineResolver(products, resolver, 4, nil)

	lines := []models.OrderLine{
		{ID: uuid.New(), ProductID: hennaID, Quantity: 1, SelectedSize: enums.VariantKey500g},
		{ID: uuid.New(), ProductID: goneID, Quantity: 2, UnitPrice: dec("4.0")},
		{ID: uuid.New(), ProductID: sidrID, Quantity: 2},
		{ID: uuid.New(), ProductID: brokenID, Quantity: 1},
	}
	out := lr.ResolveOrderLines(context.Background(), lines)

	require.Len(t, out, 4)
	assert.True(t, out[0].UnitPrice.Equal(dec("5.0")))
	assert.Equal(t, UnavailableProductName, out[1].Name)
	assert.True(t, out[1].UnitPrice.IsZero())
	assert.True(t, out[1].LineTotal.IsZero())
	assert.False(t, out[1].Available)
	assert.True(t, out[1].SnapshotPrice.Equal(dec("4.0")))
	assert.True(t, out[2].LineTotal.Equal(dec("6.0")))
	assert.Equal(t, UnavailableProductName, out[3].Name)
	assert.Equal(t, int32(2), resolver.placeholders.Load())
}

func TestResolveOrderLinesBoundsConcurrency(t *testing.T) {
	products := &stubProducts{products: map[uuid.UUID]models.Product{}, gate: make(chan struct{})}
	lines := make([]models.OrderLine, 10)
	for i := range lines {
		id := uuid.New()
		products.products[id] = sidr(id)
		lines[i] = models.OrderLine{ID: uuid.New(), ProductID: id, Quantity: 1}
	}
	lr := NewLineResolver(products, &countingResolver{Resolver: pricing.NewResolver(nil)}, 3, nil)

	done := make(chan []ResolvedLine)
	go func() { done <- lr.ResolveOrderLines(context.Background(), lines) }()
	for range lines {
		products.gate <- struct{}{}
	}
	out := <-done

	require.Len(t, out, 10)
	assert.LessOrEqual(t, products.peak.Load(), int32(3))
	for _, line := range out {
		assert.True(t, line.Available)
	}
}

func TestNewOrderViewDTO(t *testing.T) {
	order := &models.Order{ID: uuid.New(), Status: enums.OrderStatusPending, Amount: dec("11.5")}
	view := NewOrderViewDTO(order, []ResolvedLine{
		{Name: "a", UnitPrice: dec("5.0"), LineTotal: dec("10.0"), Quantity: 2, Available: true},
		{Name: UnavailableProductName, UnitPrice: decimal.Zero, LineTotal: decimal.Zero, Quantity: 1},
	})
	assert.Equal(t, "10.00", view.CurrentSubtotal)
	assert.Equal(t, "11.50", view.ChargedAmount)
	require.Len(t, view.Lines, 2)
	assert.Equal(t, "0.00", view.Lines[1].Price)
}
