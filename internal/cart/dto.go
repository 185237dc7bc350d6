package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/herbstore-backend/internal/pricing"
)

// LineDTO is a cart line as returned to the storefront.
type LineDTO struct {
	ID           uuid.UUID        `json:"id"`
	ProductID    uuid.UUID        `json:"productId"`
	Name         string           `json:"name"`
	Category     string           `json:"category"`
	Image        string           `json:"image,omitempty"`
	OldPrice     *decimal.Decimal `json:"oldPrice,omitempty"`
	SelectedSize string           `json:"selectedSize,omitempty"`
	UnitPrice    decimal.Decimal  `json:"unitPrice"`
	Quantity     int              `json:"quantity"`
	LineTotal    string           `json:"lineTotal"`
}

// CartDTO is the cart summary payload. Amounts are exact; the *Display
// fields are rounded to two decimals.
type CartDTO struct {
	SessionID          string          `json:"sessionId"`
	Lines              []LineDTO       `json:"lines"`
	ItemCount          int             `json:"itemCount"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	ShippingFee        decimal.Decimal `json:"shippingFee"`
	GrandTotal         decimal.Decimal `json:"grandTotal"`
	SubtotalDisplay    string          `json:"subtotalDisplay"`
	ShippingFeeDisplay string          `json:"shippingFeeDisplay"`
	GrandTotalDisplay  string          `json:"grandTotalDisplay"`
	Currency           string          `json:"currency,omitempty"`
	UpdatedAt          *time.Time      `json:"updatedAt,omitempty"`
}

// NewCartDTO maps a cart for the API.
func NewCartDTO(c *Cart, currency string) CartDTO {
	dto := CartDTO{
		SessionID:          c.SessionID,
		Lines:              make([]LineDTO, 0, len(c.Lines)),
		ItemCount:          c.ItemCount(),
		Subtotal:           c.Subtotal(),
		ShippingFee:        c.ShippingFee,
		GrandTotal:         c.GrandTotal(),
		SubtotalDisplay:    pricing.Display(c.Subtotal()),
		ShippingFeeDisplay: pricing.Display(c.ShippingFee),
		GrandTotalDisplay:  pricing.Display(c.GrandTotal()),
		Currency:           currency,
	}
	if !c.UpdatedAt.IsZero() {
		updated := c.UpdatedAt
		dto.UpdatedAt = &updated
	}
	for _, line := range c.Lines {
		dto.Lines = append(dto.Lines, LineDTO{
			ID:           line.ID,
			ProductID:    line.ProductID,
			Name:         line.Name,
			Category:     line.Category.String(),
			Image:        line.Image,
			OldPrice:     line.OldPrice,
			SelectedSize: line.SelectedSize.String(),
			UnitPrice:    line.UnitPrice,
			Quantity:     line.Quantity,
			LineTotal:    pricing.Display(line.Total()),
		})
	}
	return dto
}
