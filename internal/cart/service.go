package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/herbstore-backend/internal/pricing"
	"github.com/angelmondragon/herbstore-backend/pkg/db/models"
	"github.com/angelmondragon/herbstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/herbstore-backend/pkg/errors"
	"github.com/angelmondragon/herbstore-backend/pkg/logger"
)

const (
	defaultLockHold = 10 * time.Second
	maxSessionIDLen = 128
)

// Service manages the session carts of the storefront.
type Service interface {
	GetCart(ctx context.Context, sessionID string) (*CartDTO, error)
	AddItem(ctx context.Context, sessionID string, input AddItemInput) (*CartDTO, error)
	RemoveLine(ctx context.Context, sessionID string, lineID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, sessionID string) (*CartDTO, error)
	// Consume runs fn on the locked, non-empty cart of the session and
	// deletes the cart when fn succeeds.
	Consume(ctx context.Context, sessionID string, fn func(ctx context.Context, c *Cart) error) error
}

// AddItemInput is an add-to-cart request.
type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	Size      string
}

type productReader interface {
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
}

type priceResolver interface {
	Resolve(product models.Product, selected string) pricing.Resolution
}

// ServiceParams wires the cart service.
type ServiceParams struct {
	Store         *Store
	Products      productReader
	Resolver      priceResolver
	Logger        *logger.Logger
	ShippingFee   decimal.Decimal
	CurrencyLabel string
	LockHold      time.Duration
}

type service struct {
	store    *Store
	products productReader
	resolver priceResolver
	logg     *logger.Logger
	fee      decimal.Decimal
	currency string
	lockHold time.Duration
}

// NewService builds the cart service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("price resolver required")
	}
	if params.ShippingFee.IsNegative() {
		return nil, fmt.Errorf("shipping fee must not be negative")
	}
	hold := params.LockHold
	if hold <= 0 {
		hold = defaultLockHold
	}
	return &service{
		store:    params.Store,
		products: params.Products,
		resolver: params.Resolver,
		logg:     params.Logger,
		fee:      params.ShippingFee,
		currency: params.CurrencyLabel,
		lockHold: hold,
	}, nil
}

func (s *service) GetCart(ctx context.Context, sessionID string) (*CartDTO, error) {
	sessionID, err := normalizeSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.toDTO(c), nil
}

func (s *service) AddItem(ctx context.Context, sessionID string, input AddItemInput) (*CartDTO, error) {
	quantity := input.Quantity
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if quantity == 0 {
		quantity = 1
	}
	size := strings.TrimSpace(input.Size)
	if size != "" {
		if _, err := enums.ParseVariantKey(size); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown size").
				WithDetails(map[string]any{"size": input.Size})
		}
	}

	product, err := s.products.FindProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	res := s.resolver.Resolve(*product, size)
	if res.Degraded() && s.logg != nil {
		warnCtx := s.logg.WithFields(ctx, map[string]any{
			"product_id": product.ID.String(),
			"size":       size,
		})
		s.logg.Warn(warnCtx, "cart.add_rejected_degraded_price")
	}

	var dto *CartDTO
	err = s.mutate(ctx, sessionID, func(c *Cart) error {
		if _, err := c.AddLine(*product, res, quantity); err != nil {
			return err
		}
		dto = s.toDTO(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (s *service) RemoveLine(ctx context.Context, sessionID string, lineID uuid.UUID) (*CartDTO, error) {
	var dto *CartDTO
	err := s.mutate(ctx, sessionID, func(c *Cart) error {
		if err := c.RemoveLine(lineID); err != nil {
			return err
		}
		dto = s.toDTO(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (s *service) Clear(ctx context.Context, sessionID string) (*CartDTO, error) {
	var dto *CartDTO
	err := s.mutate(ctx, sessionID, func(c *Cart) error {
		c.Clear()
		dto = s.toDTO(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (s *service) Consume(ctx context.Context, sessionID string, fn func(ctx context.Context, c *Cart) error) error {
	sessionID, err := normalizeSessionID(sessionID)
	if err != nil {
		return err
	}
	release, err := s.lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer release()

	c, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if c.IsEmpty() {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if err := fn(ctx, c); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		// The order already exists; a stale cart is only cosmetic.
		if s.logg != nil {
			s.logg.Error(s.logg.WithSessionID(ctx, sessionID), "cart.delete_after_consume_failed", err)
		}
	}
	return nil
}

// mutate runs fn against the locked cart and saves it when fn succeeds.
func (s *service) mutate(ctx context.Context, sessionID string, fn func(c *Cart) error) error {
	sessionID, err := normalizeSessionID(sessionID)
	if err != nil {
		return err
	}
	release, err := s.lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer release()

	c, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := fn(c); err != nil {
		return err
	}
	if err := s.store.Save(ctx, c); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return nil
}

func (s *service) lock(ctx context.Context, sessionID string) (func(), error) {
	release, ok, err := s.store.Lock(ctx, sessionID, s.lockHold)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart is being updated")
	}
	return release, nil
}

func (s *service) load(ctx context.Context, sessionID string) (*Cart, error) {
	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if c == nil {
		return New(sessionID, s.fee), nil
	}
	return c, nil
}

func (s *service) toDTO(c *Cart) *CartDTO {
	dto := NewCartDTO(c, s.currency)
	return &dto
}

func normalizeSessionID(sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cart session is required")
	}
	if len(sessionID) > maxSessionIDLen {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cart session is too long")
	}
	return sessionID, nil
}
