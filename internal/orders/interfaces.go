package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/herbstore-backend/pkg/db/models"
	"github.com/angelmondragon/herbstore-backend/pkg/enums"
	"github.com/angelmondragon/herbstore-backend/pkg/pagination"
)

// Repository defines persistence operations for the orders tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, params pagination.Params, filters OrderFilters) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
}

// OrderFilters narrows the admin order list.
type OrderFilters struct {
	Status *enums.OrderStatus
	Email  string
}
