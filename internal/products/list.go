package product

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/herbstore-backend/pkg/enums"
	"github.com/angelmondragon/herbstore-backend/pkg/pagination"
)

// SortColumns maps public sort fields onto product columns.
var SortColumns = map[string]string{
	"createdAt": "created_at",
	"price":     "display_price",
	"name":      "name",
}

// DefaultSort lists newest products first.
var DefaultSort = pagination.Sort{Column: "created_at", Desc: true}

// ProductListFilters describe the supported filter knobs for the browse endpoint.
type ProductListFilters struct {
	Category *enums.ProductCategory
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Search   string
}

// ListProductsInput captures the inputs needed to paginate and filter the catalog.
type ListProductsInput struct {
	Filters    ProductListFilters
	Pagination pagination.Params
	Sort       pagination.Sort
}
