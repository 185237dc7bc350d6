package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/herbstore-backend/internal/pricing"
	"github.com/angelmondragon/herbstore-backend/pkg/db/models"
)

// OrderLineDTO is a stored order line.
type OrderLineDTO struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    uuid.UUID       `json:"productId"`
	ProductName  string          `json:"productName"`
	Quantity     int             `json:"quantity"`
	SelectedSize string          `json:"selectedSize,omitempty"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
}

// OrderDTO is an order as stored at checkout.
type OrderDTO struct {
	ID           uuid.UUID       `json:"id"`
	Email        string          `json:"email"`
	CustomerName string          `json:"customerName,omitempty"`
	Phone        string          `json:"phone,omitempty"`
	Address      string          `json:"address,omitempty"`
	Status       string          `json:"status"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingFee  decimal.Decimal `json:"shippingFee"`
	Amount       decimal.Decimal `json:"amount"`
	Lines        []OrderLineDTO  `json:"products"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// OrderList is one page of orders.
type OrderList struct {
	Orders      []OrderDTO `json:"orders"`
	TotalPages  int        `json:"totalPages"`
	TotalOrders int64      `json:"totalOrders"`
	Page        int        `json:"page"`
}

// OrderViewLineDTO is an order line priced against the live catalog.
type OrderViewLineDTO struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"productId"`
	Name          string          `json:"name"`
	Image         string          `json:"image,omitempty"`
	SelectedSize  string          `json:"selectedSize,omitempty"`
	Quantity      int             `json:"quantity"`
	Price         string          `json:"price"`
	LineTotal     string          `json:"lineTotal"`
	SnapshotPrice decimal.Decimal `json:"snapshotPrice"`
	Available     bool            `json:"available"`
	Degraded      bool            `json:"degraded"`
}

// OrderViewDTO is the admin order detail.
type OrderViewDTO struct {
	Order           OrderDTO           `json:"order"`
	Lines           []OrderViewLineDTO `json:"lines"`
	CurrentSubtotal string             `json:"currentSubtotal"`
	ChargedAmount   string             `json:"chargedAmount"`
}

// NewOrderDTO maps a stored order.
func NewOrderDTO(order *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:           order.ID,
		Email:        order.Email,
		CustomerName: order.CustomerName,
		Phone:        order.Phone,
		Address:      order.Address,
		Status:       order.Status.String(),
		Subtotal:     order.Subtotal,
		ShippingFee:  order.ShippingFee,
		Amount:       order.Amount,
		Lines:        make([]OrderLineDTO, 0, len(order.Lines)),
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}
	for _, line := range order.Lines {
		dto.Lines = append(dto.Lines, OrderLineDTO{
			ID:           line.ID,
			ProductID:    line.ProductID,
			ProductName:  line.ProductName,
			Quantity:     line.Quantity,
			SelectedSize: line.SelectedSize.String(),
			UnitPrice:    line.UnitPrice,
		})
	}
	return dto
}

// NewOrderViewDTO combines the stored order with its re-derived lines.
func NewOrderViewDTO(order *models.Order, lines []ResolvedLine) OrderViewDTO {
	view := OrderViewDTO{
		Order:         NewOrderDTO(order),
		Lines:         make([]OrderViewLineDTO, 0, len(lines)),
		ChargedAmount: pricing.Display(order.Amount),
	}
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal)
		view.Lines = append(view.Lines, OrderViewLineDTO{
			ID:            line.LineID,
			ProductID:     line.ProductID,
			Name:          line.Name,
			Image:         line.Image,
			SelectedSize:  line.SelectedSize,
			Quantity:      line.Quantity,
			Price:         pricing.Display(line.UnitPrice),
			LineTotal:     pricing.Display(line.LineTotal),
			SnapshotPrice: line.SnapshotPrice,
			Available:     line.Available,
			Degraded:      line.Degraded,
		})
	}
	view.CurrentSubtotal = pricing.Display(subtotal)
	return view
}
