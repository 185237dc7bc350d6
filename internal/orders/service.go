package orders

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/herbstore-backend/internal/cart"
	"github.com/angelmondragon/herbstore-backend/pkg/db/models"
	"github.com/angelmondragon/herbstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/herbstore-backend/pkg/errors"
	"github.com/angelmondragon/herbstore-backend/pkg/logger"
	"github.com/angelmondragon/herbstore-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartConsumer interface {
	Consume(ctx context.Context, sessionID string, fn func(ctx context.Context, c *cart.Cart) error) error
}

// Service defines checkout and admin order operations.
type Service interface {
	Checkout(ctx context.Context, sessionID string, input CheckoutInput) (*OrderDTO, error)
	ListOrders(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error)
	GetOrderView(ctx context.Context, orderID uuid.UUID) (*OrderViewDTO, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error)
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
}

// CheckoutInput carries the customer details collected at checkout.
type CheckoutInput struct {
	Email        string
	CustomerName string
	Phone        string
	Address      string
}

// ServiceParams wires the orders service.
type ServiceParams struct {
	Repo   Repository
	Tx     txRunner
	Carts  cartConsumer
	Lines  *LineResolver
	Logger *logger.Logger
}

type service struct {
	repo  Repository
	tx    txRunner
	carts cartConsumer
	lines *LineResolver
	logg  *logger.Logger
}

// NewService constructs the orders service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.Lines == nil {
		return nil, fmt.Errorf("line resolver required")
	}
	return &service{
		repo:  params.Repo,
		tx:    params.Tx,
		carts: params.Carts,
		lines: params.Lines,
		logg:  params.Logger,
	}, nil
}

func (s *service) Checkout(ctx context.Context, sessionID string, input CheckoutInput) (*OrderDTO, error) {
	input, err := normalizeCheckout(input)
	if err != nil {
		return nil, err
	}

	var created *models.Order
	err = s.carts.Consume(ctx, sessionID, func(ctx context.Context, c *cart.Cart) error {
		order := orderFromCart(c, input)
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			saved, err := s.repo.WithTx(tx).CreateOrder(ctx, order)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
			}
			created = saved
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id": created.ID.String(),
			"amount":   created.Amount.String(),
			"lines":    len(created.Lines),
		})
		s.logg.Info(logCtx, "orders.checkout.created")
	}
	dto := NewOrderDTO(created)
	return &dto, nil
}

func (s *service) ListOrders(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	page := params.Normalize()
	rows, total, err := s.repo.ListOrders(ctx, page, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	list := &OrderList{
		Orders:      make([]OrderDTO, 0, len(rows)),
		TotalPages:  pagination.TotalPages(total, page.Limit),
		TotalOrders: total,
		Page:        page.Page,
	}
	for i := range rows {
		list.Orders = append(list.Orders, NewOrderDTO(&rows[i]))
	}
	return list, nil
}

func (s *service) GetOrderView(ctx context.Context, orderID uuid.UUID) (*OrderViewDTO, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	view := NewOrderViewDTO(order, s.lines.ResolveOrderLines(ctx, order.Lines))
	return &view, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			return mapLookupError(err)
		}
		if !order.Status.CanMoveTo(status) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order cannot move from %s to %s", order.Status, status).
				WithDetails(map[string]any{"status": order.Status.String(), "requested": status.String()})
		}
		if err := repo.UpdateStatus(ctx, orderID, status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = status
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := NewOrderDTO(updated)
	return &dto, nil
}

func (s *service) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).DeleteOrder(ctx, orderID); err != nil {
			return mapLookupError(err)
		}
		return nil
	})
}

func (s *service) findOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return order, nil
}

func orderFromCart(c *cart.Cart, input CheckoutInput) *models.Order {
	order := &models.Order{
		Email:        input.Email,
		CustomerName: input.CustomerName,
		Phone:        input.Phone,
		Address:      input.Address,
		Status:       enums.OrderStatusPending,
		Subtotal:     c.Subtotal(),
		ShippingFee:  c.ShippingFee,
		Amount:       c.GrandTotal(),
		Lines:        make([]models.OrderLine, 0, len(c.Lines)),
	}
	for _, line := range c.Lines {
		order.Lines = append(order.Lines, models.OrderLine{
			ProductID:    line.ProductID,
			ProductName:  line.Name,
			Quantity:     line.Quantity,
			SelectedSize: line.SelectedSize,
			UnitPrice:    line.UnitPrice,
		})
	}
	return order
}

func normalizeCheckout(input CheckoutInput) (CheckoutInput, error) {
	input.Email = strings.TrimSpace(input.Email)
	input.CustomerName = strings.TrimSpace(input.CustomerName)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Address = strings.TrimSpace(input.Address)

	if input.Email == "" {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "email is required").
			WithDetails(map[string]string{"email": "required"})
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "email is invalid").
			WithDetails(map[string]string{"email": "invalid"})
	}
	return input, nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
