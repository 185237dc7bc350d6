package enums

import (
	"fmt"
	"strings"
)

// VariantKey names a size option of a variant-priced product.
type VariantKey string

const (
	VariantKey500g VariantKey = "500 جرام"
	VariantKey1kg  VariantKey = "1 كيلو"
)

// variantPreference is also the fallback order when no usable size is selected.
var variantPreference = []VariantKey{
	VariantKey500g,
	VariantKey1kg,
}

// String implements fmt.Stringer.
func (v VariantKey) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VariantKey.
func (v VariantKey) IsValid() bool {
	for _, candidate := range variantPreference {
		if candidate == v {
			return true
		}
	}
	return false
}

// VariantPreference returns the known sizes in fallback order.
func VariantPreference() []VariantKey {
	out := make([]VariantKey, len(variantPreference))
	copy(out, variantPreference)
	return out
}

// ParseVariantKey converts raw input into a VariantKey.
func ParseVariantKey(value string) (VariantKey, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range variantPreference {
		if string(candidate) == trimmed {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid variant %q", value)
}
