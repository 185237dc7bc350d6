package pricing

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/herbstore-backend/pkg/enums"
)

// DefaultLabel names the single price of a flat product in price listings.
const DefaultLabel = "default"

// Round rounds an amount to the two decimals shown to customers.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// Display formats an amount with exactly two decimals.
func Display(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// LineTotal multiplies a unit price by a quantity without rounding.
func LineTotal(unit decimal.Decimal, quantity int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(quantity)))
}

// PriceLabel is one labelled amount of a product.
type PriceLabel struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// Labels lists every stored price of src. Known sizes come first in
// preference order, then any other keys sorted, then the flat price.
func Labels(src Source) []PriceLabel {
	out := []PriceLabel{}
	seen := map[string]bool{}
	for _, key := range enums.VariantPreference() {
		if amount, ok := src.Prices.Lookup(key.String()); ok {
			out = append(out, PriceLabel{Label: key.String(), Amount: amount})
			seen[key.String()] = true
		}
	}
	extra := []string{}
	for _, key := range src.Prices.Keys() {
		if !seen[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		amount, _ := src.Prices.Lookup(key)
		out = append(out, PriceLabel{Label: key, Amount: amount})
	}
	switch {
	case src.RegularPrice.Valid:
		out = append(out, PriceLabel{Label: DefaultLabel, Amount: src.RegularPrice.Decimal})
	case src.Prices.Scalar.Valid:
		out = append(out, PriceLabel{Label: DefaultLabel, Amount: src.Prices.Scalar.Decimal})
	}
	return out
}
