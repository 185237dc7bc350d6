// Package pricing owns every rule that turns a stored product price into the
// single unit price charged for it.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/herbstore-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/herbstore-backend/pkg/db/types"
	"github.com/angelmondragon/herbstore-backend/pkg/enums"
	"github.com/angelmondragon/herbstore-backend/pkg/metrics"
)

// Outcome names the branch that produced a resolution.
type Outcome string

const (
	// OutcomeExact means the selected size had a usable price.
	OutcomeExact Outcome = "exact"
	// OutcomeFallback means the first usable size in preference order was used.
	OutcomeFallback Outcome = "fallback"
	// OutcomeFlat means a flat product's regular price was used.
	OutcomeFlat Outcome = "flat"
	// OutcomeScalar means a flat product only carried a bare price value.
	OutcomeScalar Outcome = "scalar"
	// OutcomeDegraded means nothing usable was stored and the price is zero.
	OutcomeDegraded Outcome = "degraded"
)

// Source is the pricing relevant slice of a product.
type Source struct {
	Kind         enums.ProductKind
	Prices       dbtypes.PriceTable
	RegularPrice decimal.NullDecimal
}

// SourceFor extracts the pricing fields of a stored product.
func SourceFor(p models.Product) Source {
	kind := p.Kind
	if !kind.IsValid() {
		kind = enums.KindForCategory(p.Category)
	}
	return Source{
		Kind:         kind,
		Prices:       p.Price,
		RegularPrice: p.RegularPrice,
	}
}

// Resolution is the outcome of resolving one product price.
type Resolution struct {
	// Price is never negative.
	Price decimal.Decimal
	// Variant is the size whose price was used; empty for flat products.
	Variant enums.VariantKey
	Outcome Outcome
	// VariantRejected is set when the caller asked for a size outside the
	// known set; resolution then continues with the preference order.
	VariantRejected bool
}

// Degraded reports whether the price is a zero placeholder.
func (r Resolution) Degraded() bool {
	return r.Outcome == OutcomeDegraded
}

// Resolve computes the unit price of src for the optional selected size.
// It is pure and never fails; an unusable record yields zero with
// OutcomeDegraded.
func Resolve(src Source, selected string) Resolution {
	if src.Kind == enums.ProductKindVariant {
		return resolveVariant(src.Prices, selected)
	}
	return resolveFlat(src)
}

func resolveVariant(prices dbtypes.PriceTable, selected string) Resolution {
	var res Resolution
	if strings.TrimSpace(selected) != "" {
		key, err := enums.ParseVariantKey(selected)
		if err != nil {
			res.VariantRejected = true
		} else if amount, ok := usable(prices, key); ok {
			res.Price = amount
			res.Variant = key
			res.Outcome = OutcomeExact
			return res
		}
	}

	for _, key := range enums.VariantPreference() {
		if amount, ok := usable(prices, key); ok {
			res.Price = amount
			res.Variant = key
			res.Outcome = OutcomeFallback
			return res
		}
	}

	res.Price = decimal.Zero
	res.Outcome = OutcomeDegraded
	return res
}

func usable(prices dbtypes.PriceTable, key enums.VariantKey) (decimal.Decimal, bool) {
	amount, ok := prices.Lookup(key.String())
	if !ok || amount.IsNegative() {
		return decimal.Zero, false
	}
	return amount, true
}

func resolveFlat(src Source) Resolution {
	if src.RegularPrice.Valid && !src.RegularPrice.Decimal.IsNegative() {
		return Resolution{Price: src.RegularPrice.Decimal, Outcome: OutcomeFlat}
	}
	if src.Prices.Scalar.Valid && !src.Prices.Scalar.Decimal.IsNegative() {
		return Resolution{Price: src.Prices.Scalar.Decimal, Outcome: OutcomeScalar}
	}
	return Resolution{Price: decimal.Zero, Outcome: OutcomeDegraded}
}

// Resolver is the shared entry point used by catalog, cart and order code.
// It adds outcome metrics on top of Resolve.
type Resolver struct {
	metrics *metrics.PricingMetrics
}

// NewResolver builds a resolver. A nil metrics sink is allowed.
func NewResolver(m *metrics.PricingMetrics) *Resolver {
	return &Resolver{metrics: m}
}

// Resolve resolves p for the selected size.
func (r *Resolver) Resolve(p models.Product, selected string) Resolution {
	src := SourceFor(p)
	res := Resolve(src, selected)
	if r != nil {
		r.metrics.IncResolution(src.Kind.String(), string(res.Outcome))
	}
	return res
}

// IncPlaceholder records an order line rendered without its product.
func (r *Resolver) IncPlaceholder() {
	if r != nil {
		r.metrics.IncPlaceholder()
	}
}
