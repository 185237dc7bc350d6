package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/herbstore-backend/internal/pricing"
	"github.com/angelmondragon/herbstore-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/herbstore-backend/pkg/db/types"
)

// ProductDTO is the catalog payload returned to storefront and admin clients.
type ProductDTO struct {
	ID           uuid.UUID            `json:"id"`
	Name         string               `json:"name"`
	Description  string               `json:"description"`
	Category     string               `json:"category"`
	Kind         string               `json:"kind"`
	Price        dbtypes.PriceTable   `json:"price"`
	RegularPrice *decimal.Decimal     `json:"regularPrice,omitempty"`
	OldPrice     *decimal.Decimal     `json:"oldPrice,omitempty"`
	DisplayPrice string               `json:"displayPrice"`
	DefaultSize  string               `json:"defaultSize,omitempty"`
	PriceLabels  []pricing.PriceLabel `json:"priceLabels"`
	Degraded     bool                 `json:"degraded"`
	Image        []string             `json:"image"`
	Quantity     int                  `json:"quantity"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// ReviewDTO is a customer review.
type ReviewDTO struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"productId"`
	Author    string    `json:"author"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProductDetailDTO is the product page payload.
type ProductDetailDTO struct {
	Product ProductDTO  `json:"product"`
	Reviews []ReviewDTO `json:"reviews"`
}

// ProductListResult is one page of catalog results.
type ProductListResult struct {
	Products      []ProductDTO `json:"products"`
	TotalPages    int          `json:"totalPages"`
	TotalProducts int64        `json:"totalProducts"`
	Page          int          `json:"page"`
}

// PriceQuoteDTO reports how a product price was resolved for a size.
type PriceQuoteDTO struct {
	ProductID       uuid.UUID       `json:"productId"`
	Size            string          `json:"size,omitempty"`
	Price           decimal.Decimal `json:"price"`
	Display         string          `json:"display"`
	Outcome         string          `json:"outcome"`
	Degraded        bool            `json:"degraded"`
	VariantRejected bool            `json:"variantRejected"`
}

// NewProductDTO builds a DTO from the stored product and its default resolution.
func NewProductDTO(product *models.Product, res pricing.Resolution) ProductDTO {
	images := append([]string{}, product.Images...)
	dto := ProductDTO{
		ID:           product.ID,
		Name:         product.Name,
		Description:  product.Description,
		Category:     product.Category.String(),
		Kind:         product.Kind.String(),
		Price:        product.Price,
		DisplayPrice: pricing.Display(res.Price),
		DefaultSize:  res.Variant.String(),
		PriceLabels:  pricing.Labels(pricing.SourceFor(*product)),
		Degraded:     res.Degraded(),
		Image:        images,
		Quantity:     product.Quantity,
		CreatedAt:    product.CreatedAt,
		UpdatedAt:    product.UpdatedAt,
	}
	if product.RegularPrice.Valid {
		v := product.RegularPrice.Decimal
		dto.RegularPrice = &v
	}
	if product.OldPrice.Valid {
		v := product.OldPrice.Decimal
		dto.OldPrice = &v
	}
	return dto
}

// NewReviewDTO maps a stored review.
func NewReviewDTO(review models.Review) ReviewDTO {
	return ReviewDTO{
		ID:        review.ID,
		ProductID: review.ProductID,
		Author:    review.Author,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt,
	}
}

// NewPriceQuoteDTO maps a resolution for the price endpoint.
func NewPriceQuoteDTO(productID uuid.UUID, res pricing.Resolution) PriceQuoteDTO {
	return PriceQuoteDTO{
		ProductID:       productID,
		Size:            res.Variant.String(),
		Price:           res.Price,
		Display:         pricing.Display(res.Price),
		Outcome:         string(res.Outcome),
		Degraded:        res.Degraded(),
		VariantRejected: res.VariantRejected,
	}
}
