package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/herbstore-backend/pkg/enums"
)

// Order is a checked-out cart.
type Order struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Email        string            `gorm:"column:email;not null;index"`
	CustomerName string            `gorm:"column:customer_name;not null;default:''"`
	Phone        string            `gorm:"column:phone;not null;default:''"`
	Address      string            `gorm:"column:address;not null;default:''"`
	Status       enums.OrderStatus `gorm:"column:status;not null;default:'pending';index"`
	Subtotal     decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,3);not null"`
	ShippingFee  decimal.Decimal   `gorm:"column:shipping_fee;type:numeric(12,3);not null"`
	Amount       decimal.Decimal   `gorm:"column:amount;type:numeric(12,3);not null"`
	Lines        []OrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

// OrderLine references a product by id. UnitPrice is the price charged at
// checkout; the admin view re-resolves the live price separately.
type OrderLine struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID        `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID    uuid.UUID        `gorm:"column:product_id;type:uuid;not null;index"`
	ProductName  string           `gorm:"column:product_name;not null;default:''"`
	Quantity     int              `gorm:"column:quantity;not null"`
	SelectedSize enums.VariantKey `gorm:"column:selected_size;not null;default:''"`
	UnitPrice    decimal.Decimal  `gorm:"column:unit_price;type:numeric(12,3);not null"`
	Position     int              `gorm:"column:position;not null;default:0"`
}

func (OrderLine) TableName() string { return "order_lines" }
