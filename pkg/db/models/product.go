package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/angelmondragon/herbstore-backend/pkg/db/types"
	"github.com/angelmondragon/herbstore-backend/pkg/enums"
)

// Product is a catalog listing. Kind is derived from Category when the row is
// written and never recomputed on read.
type Product struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Name         string                `gorm:"column:name;not null;uniqueIndex:products_name_key"`
	Description  string                `gorm:"column:description;not null;default:''"`
	Category     enums.ProductCategory `gorm:"column:category;not null;index"`
	Kind         enums.ProductKind     `gorm:"column:kind;not null"`
	Price        dbtypes.PriceTable    `gorm:"column:price;type:jsonb;not null"`
	RegularPrice decimal.NullDecimal   `gorm:"column:regular_price;type:numeric(12,3)"`
	OldPrice     decimal.NullDecimal   `gorm:"column:old_price;type:numeric(12,3)"`
	DisplayPrice decimal.Decimal       `gorm:"column:display_price;type:numeric(12,3);not null;default:0;index"`
	Images       dbtypes.StringList    `gorm:"column:images;type:jsonb;not null"`
	Quantity     int                   `gorm:"column:quantity;not null;default:0"`
	Reviews      []Review              `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }
