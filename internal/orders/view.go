package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/herbstore-backend/internal/pricing"
	"github.com/angelmondragon/herbstore-backend/pkg/db/models"
	"github.com/angelmondragon/herbstore-backend/pkg/logger"
)

// UnavailableProductName replaces the name of a line whose product can no
// longer be loaded.
const UnavailableProductName = "Product not available"

const defaultFanout = 8

type productReader interface {
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
}

type priceResolver interface {
	Resolve(product models.Product, selected string) pricing.Resolution
	IncPlaceholder()
}

// ResolvedLine is an order line priced against the live catalog.
type ResolvedLine struct {
	LineID       uuid.UUID
	ProductID    uuid.UUID
	Name         string
	Image        string
	SelectedSize string
	Quantity     int
	UnitPrice    decimal.Decimal
	LineTotal    decimal.Decimal
	// SnapshotPrice is the unit price charged at checkout.
	SnapshotPrice decimal.Decimal
	Available     bool
	Degraded      bool
}

// LineResolver re-derives order line prices from live products.
type LineResolver struct {
	products productReader
	resolver priceResolver
	fanout   int
	logg     *logger.Logger
}

// NewLineResolver builds a resolver that loads at most fanout products at once.
func NewLineResolver(products productReader, resolver priceResolver, fanout int, logg *logger.Logger) *LineResolver {
	if fanout <= 0 {
		fanout = defaultFanout
	}
	return &LineResolver{products: products, resolver: resolver, fanout: fanout, logg: logg}
}

// ResolveOrderLines prices every line concurrently. A line whose product
// cannot be loaded becomes a zero priced placeholder; the other lines are
// unaffected. Output order matches lines.
func (r *LineResolver) ResolveOrderLines(ctx context.Context, lines []models.OrderLine) []ResolvedLine {
	out := make([]ResolvedLine, len(lines))

	var g errgroup.Group
	g.SetLimit(r.fanout)
	for i := range lines {
		g.Go(func() error {
			out[i] = r.resolveLine(ctx, lines[i])
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (r *LineResolver) resolveLine(ctx context.Context, line models.OrderLine) ResolvedLine {
	resolved := ResolvedLine{
		LineID:        line.ID,
		ProductID:     line.ProductID,
		SelectedSize:  line.SelectedSize.String(),
		Quantity:      line.Quantity,
		SnapshotPrice: line.UnitPrice,
	}

	product, err := r.products.FindProduct(ctx, line.ProductID)
	if err != nil || product == nil {
		resolved.Name = UnavailableProductName
		resolved.UnitPrice = decimal.Zero
		resolved.LineTotal = decimal.Zero
		r.resolver.IncPlaceholder()
		if r.logg != nil {
			warnCtx := r.logg.WithFields(ctx, map[string]any{
				"order_line_id": line.ID.String(),
				"product_id":    line.ProductID.String(),
				"error":         errString(err),
			})
			r.logg.Warn(warnCtx, "orders.view.product_unavailable")
		}
		return resolved
	}

	res := r.resolver.Resolve(*product, line.SelectedSize.String())
	resolved.Name = product.Name
	resolved.Image = product.Images.First()
	resolved.Available = true
	resolved.Degraded = res.Degraded()
	resolved.UnitPrice = res.Price
	resolved.LineTotal = pricing.LineTotal(res.Price, line.Quantity)
	if res.Variant != "" {
		resolved.SelectedSize = res.Variant.String()
	}
	return resolved
}

func errString(err error) string {
	if err == nil {
		return "product missing"
	}
	return err.Error()
}
