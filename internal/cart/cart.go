package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/herbstore-backend/internal/pricing"
	"github.com/angelmondragon/herbstore-backend/pkg/db/models"
	"github.com/angelmondragon/herbstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/herbstore-backend/pkg/errors"
)

// Line is one product and size in the cart. UnitPrice is captured when the
// line is first added and does not follow later catalog changes.
type Line struct {
	ID           uuid.UUID             `json:"id"`
	ProductID    uuid.UUID             `json:"productId"`
	Name         string                `json:"name"`
	Category     enums.ProductCategory `json:"category"`
	Kind         enums.ProductKind     `json:"kind"`
	Image        string                `json:"image,omitempty"`
	OldPrice     *decimal.Decimal      `json:"oldPrice,omitempty"`
	SelectedSize enums.VariantKey      `json:"selectedSize,omitempty"`
	UnitPrice    decimal.Decimal       `json:"unitPrice"`
	Quantity     int                   `json:"quantity"`
}

// Total is the unrounded line amount.
func (l Line) Total() decimal.Decimal {
	return pricing.LineTotal(l.UnitPrice, l.Quantity)
}

// Cart is the shopping cart of one session. It is not safe for concurrent
// use; the service serialises access per session.
type Cart struct {
	SessionID   string          `json:"sessionId"`
	Lines       []Line          `json:"lines"`
	ShippingFee decimal.Decimal `json:"shippingFee"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// New returns an empty cart with a shipping fee fixed for its lifetime.
func New(sessionID string, shippingFee decimal.Decimal) *Cart {
	return &Cart{
		SessionID:   sessionID,
		Lines:       []Line{},
		ShippingFee: shippingFee,
	}
}

// AddLine adds quantity units of product priced by res. A line with the same
// product and size absorbs the quantity instead of creating a new line.
// Degraded resolutions are refused so nothing enters the cart for free.
func (c *Cart) AddLine(product models.Product, res pricing.Resolution, quantity int) (Line, error) {
	if quantity <= 0 {
		return Line{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if res.Degraded() {
		return Line{}, pkgerrors.New(pkgerrors.CodePriceUnavailable, "price unavailable for product").
			WithDetails(map[string]any{"productId": product.ID.String()})
	}

	size := res.Variant
	for i := range c.Lines {
		if c.Lines[i].ProductID == product.ID && c.Lines[i].SelectedSize == size {
			c.Lines[i].Quantity += quantity
			return c.Lines[i], nil
		}
	}

	line := Line{
		ID:           uuid.New(),
		ProductID:    product.ID,
		Name:         product.Name,
		Category:     product.Category,
		Kind:         product.Kind,
		Image:        product.Images.First(),
		SelectedSize: size,
		UnitPrice:    res.Price,
		Quantity:     quantity,
	}
	if product.OldPrice.Valid {
		old := product.OldPrice.Decimal
		line.OldPrice = &old
	}
	c.Lines = append(c.Lines, line)
	return line, nil
}

// RemoveLine drops the line with the given id.
func (c *Cart) RemoveLine(lineID uuid.UUID) error {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
}

// Clear removes every line. The shipping fee is kept.
func (c *Cart) Clear() {
	c.Lines = []Line{}
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// ItemCount is the sum of line quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, line := range c.Lines {
		n += line.Quantity
	}
	return n
}

// Subtotal sums unitPrice x quantity over every line.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.Total())
	}
	return total
}

// GrandTotal is the subtotal plus the shipping fee.
func (c *Cart) GrandTotal() decimal.Decimal {
	return c.Subtotal().Add(c.ShippingFee)
}
