package enums

import (
	"fmt"
	"strings"
)

// ProductCategory is the storefront category as stored on the product.
type ProductCategory string

const (
	ProductCategoryHennaPowder ProductCategory = "حناء بودر"
	ProductCategorySidrPowder  ProductCategory = "سدر بودر"
	ProductCategoryHairGrowth  ProductCategory = "أعشاب تكثيف وتطويل الشعر"
	ProductCategoryCombs       ProductCategory = "مشاط"
	ProductCategoryLavender    ProductCategory = "خزامى"
	ProductCategoryHibiscus    ProductCategory = "كركديه"
	ProductCategoryRosemary    ProductCategory = "إكليل الجبل"
)

var validProductCategories = []ProductCategory{
	ProductCategoryHennaPowder,
	ProductCategorySidrPowder,
	ProductCategoryHairGrowth,
	ProductCategoryCombs,
	ProductCategoryLavender,
	ProductCategoryHibiscus,
	ProductCategoryRosemary,
}

// String implements fmt.Stringer.
func (c ProductCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProductCategory.
func (c ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// Kind returns the pricing shape products in this category use.
func (c ProductCategory) Kind() ProductKind {
	return KindForCategory(c)
}

// ProductCategories lists every category in display order.
func ProductCategories() []ProductCategory {
	out := make([]ProductCategory, len(validProductCategories))
	copy(out, validProductCategories)
	return out
}

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validProductCategories {
		if string(candidate) == trimmed {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}

// ProductKind tags a product as flat priced or priced per size variant.
type ProductKind string

const (
	ProductKindFlat    ProductKind = "flat"
	ProductKindVariant ProductKind = "variant"
)

var validProductKinds = []ProductKind{
	ProductKindFlat,
	ProductKindVariant,
}

// String implements fmt.Stringer.
func (k ProductKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known ProductKind.
func (k ProductKind) IsValid() bool {
	for _, candidate := range validProductKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseProductKind converts raw input into a ProductKind.
func ParseProductKind(value string) (ProductKind, error) {
	for _, candidate := range validProductKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product kind %q", value)
}

// KindForCategory is the single place where category decides pricing shape.
func KindForCategory(c ProductCategory) ProductKind {
	if c == ProductCategoryHennaPowder {
		return ProductKindVariant
	}
	return ProductKindFlat
}
