package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/herbstore-backend/internal/pricing"
	"github.com/angelmondragon/herbstore-backend/pkg/db"
	"github.com/angelmondragon/herbstore-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/herbstore-backend/pkg/db/types"
	"github.com/angelmondragon/herbstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/herbstore-backend/pkg/errors"
	"github.com/angelmondragon/herbstore-backend/pkg/pagination"
)

// Service exposes catalog reads and admin product management.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	SearchProducts(ctx context.Context, q string, limit int) ([]ProductDTO, error)
	BestSelling(ctx context.Context, limit int) ([]ProductDTO, error)
	RelatedProducts(ctx context.Context, productID uuid.UUID, limit int) ([]ProductDTO, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDetailDTO, error)
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	QuotePrice(ctx context.Context, productID uuid.UUID, size string) (*PriceQuoteDTO, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	UpdateQuantity(ctx context.Context, productID uuid.UUID, quantity int) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	AddReview(ctx context.Context, productID uuid.UUID, input ReviewInput) (*ReviewDTO, error)
}

// PriceInput is the price field of the admin form. Amount carries a single
// price that applies to Size on variant products or to the regular price on
// flat products; Entries carries a full size table.
type PriceInput struct {
	Amount  *decimal.Decimal
	Entries map[enums.VariantKey]decimal.Decimal
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name         string
	Description  string
	Category     enums.ProductCategory
	Price        PriceInput
	Size         *enums.VariantKey
	RegularPrice *decimal.Decimal
	OldPrice     *decimal.Decimal
	Images       []string
	Quantity     int
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name         *string
	Description  *string
	Category     *enums.ProductCategory
	Price        *PriceInput
	Size         *enums.VariantKey
	RegularPrice *decimal.Decimal
	OldPrice     *decimal.Decimal
	Images       *[]string
	Quantity     *int
}

// ReviewInput is a customer review submission.
type ReviewInput struct {
	Author  string
	Rating  int
	Comment string
}

type priceResolver interface {
	Resolve(product models.Product, selected string) pricing.Resolution
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	resolver priceResolver
}

// NewService constructs a product service instance.
func NewService(repo *Repository, dbClient *db.Client, resolver priceResolver) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("price resolver required")
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		resolver: resolver,
	}, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	if input.Filters.MinPrice != nil && input.Filters.MaxPrice != nil && input.Filters.MinPrice.GreaterThan(*input.Filters.MaxPrice) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minPrice cannot exceed maxPrice")
	}
	page := input.Pagination.Normalize()
	rows, total, err := s.repo.ListProducts(ctx, productListQuery{
		Pagination: page,
		Filters:    input.Filters,
		Sort:       input.Sort,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return &ProductListResult{
		Products:      s.toDTOs(rows),
		TotalPages:    pagination.TotalPages(total, page.Limit),
		TotalProducts: total,
		Page:          page.Page,
	}, nil
}

func (s *service) SearchProducts(ctx context.Context, q string, limit int) ([]ProductDTO, error) {
	if strings.TrimSpace(q) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
	}
	rows, err := s.repo.SearchProducts(ctx, q, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search products")
	}
	return s.toDTOs(rows), nil
}

func (s *service) BestSelling(ctx context.Context, limit int) ([]ProductDTO, error) {
	rows, err := s.repo.ListBestSelling(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list best selling products")
	}
	return s.toDTOs(rows), nil
}

func (s *service) RelatedProducts(ctx context.Context, productID uuid.UUID, limit int) ([]ProductDTO, error) {
	product, err := s.FindProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListRelated(ctx, product, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list related products")
	}
	return s.toDTOs(rows), nil
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDetailDTO, error) {
	product, err := s.FindProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	reviews, err := s.repo.ListReviews(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	detail := &ProductDetailDTO{
		Product: s.toDTO(product),
		Reviews: make([]ReviewDTO, 0, len(reviews)),
	}
	for _, review := range reviews {
		detail.Reviews = append(detail.Reviews, NewReviewDTO(review))
	}
	return detail, nil
}

// FindProduct loads the stored product, mapping a missing row to NOT_FOUND.
func (s *service) FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) QuotePrice(ctx context.Context, productID uuid.UUID, size string) (*PriceQuoteDTO, error) {
	product, err := s.FindProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	quote := NewPriceQuoteDTO(product.ID, s.resolver.Resolve(*product, size))
	return &quote, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if err := validateRequired(input); err != nil {
		return nil, err
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-negative")
	}

	product := &models.Product{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Category:    input.Category,
		Kind:        enums.KindForCategory(input.Category),
		Price:       dbtypes.NewPriceTable(nil),
		Images:      cleanImages(input.Images),
		Quantity:    input.Quantity,
	}
	if err := applyPricing(product, &input.Price, input.Size, input.RegularPrice); err != nil {
		return nil, err
	}
	if err := setOldPrice(product, input.OldPrice); err != nil {
		return nil, err
	}
	if err := s.refreshDisplayPrice(product); err != nil {
		return nil, err
	}

	var created *models.Product
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		created, err = s.repo.WithTx(tx).CreateProduct(ctx, product)
		return err
	})
	if err != nil {
		return nil, mapWriteError(err, "create product")
	}
	dto := s.toDTO(created)
	return &dto, nil
}

func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	var updated *models.Product
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		if err := applyUpdateToProduct(product, input); err != nil {
			return err
		}
		if err := s.refreshDisplayPrice(product); err != nil {
			return err
		}

		updated, err = repo.UpdateProduct(ctx, product)
		return err
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, mapWriteError(err, "update product")
	}
	dto := s.toDTO(updated)
	return &dto, nil
}

func (s *service) UpdateQuantity(ctx context.Context, productID uuid.UUID, quantity int) (*ProductDTO, error) {
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-negative")
	}
	if err := s.repo.UpdateQuantity(ctx, productID, quantity); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update quantity")
	}
	product, err := s.FindProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	dto := s.toDTO(product)
	return &dto, nil
}

func (s *service) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).DeleteProduct(ctx, productID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

func (s *service) AddReview(ctx context.Context, productID uuid.UUID, input ReviewInput) (*ReviewDTO, error) {
	if strings.TrimSpace(input.Author) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "author is required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	if _, err := s.FindProduct(ctx, productID); err != nil {
		return nil, err
	}
	review, err := s.repo.CreateReview(ctx, &models.Review{
		ProductID: productID,
		Author:    strings.TrimSpace(input.Author),
		Rating:    input.Rating,
		Comment:   strings.TrimSpace(input.Comment),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}
	dto := NewReviewDTO(*review)
	return &dto, nil
}

// refreshDisplayPrice stores the default resolution so list filters and price
// sorting use the same rule as the cart. A product that resolves to nothing
// is rejected instead of being listed as free.
func (s *service) refreshDisplayPrice(product *models.Product) error {
	res := defaultResolution(product)
	if res.Degraded() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price is required").
			WithDetails(map[string]any{"price": "no usable price for this category"})
	}
	product.DisplayPrice = res.Price
	return nil
}

func (s *service) toDTO(product *models.Product) ProductDTO {
	return NewProductDTO(product, defaultResolution(product))
}

// defaultResolution prices a product for display. It bypasses the metered
// resolver so catalog rendering does not count as cart or order pricing.
func defaultResolution(product *models.Product) pricing.Resolution {
	return pricing.Resolve(pricing.SourceFor(*product), "")
}

func (s *service) toDTOs(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, s.toDTO(&rows[i]))
	}
	return out
}

func validateRequired(input CreateProductInput) error {
	missing := map[string]string{}
	if strings.TrimSpace(input.Name) == "" {
		missing["name"] = "is required"
	}
	if strings.TrimSpace(input.Description) == "" {
		missing["description"] = "is required"
	}
	if !input.Category.IsValid() {
		missing["category"] = "is required"
	}
	if len(cleanImages(input.Images)) == 0 {
		missing["image"] = "is required"
	}
	if input.Price.Amount == nil && len(input.Price.Entries) == 0 && input.RegularPrice == nil {
		missing["price"] = "is required"
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required fields").WithDetails(missing)
	}
	return nil
}

func applyUpdateToProduct(product *models.Product, input UpdateProductInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		product.Name = name
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.Category != nil {
		product.Category = *input.Category
		kind := enums.KindForCategory(product.Category)
		if kind != product.Kind {
			// Prices from the old shape do not carry over.
			product.Kind = kind
			product.Price = dbtypes.NewPriceTable(nil)
			product.RegularPrice = decimal.NullDecimal{}
		}
	}
	if err := applyPricing(product, input.Price, input.Size, input.RegularPrice); err != nil {
		return err
	}
	if err := setOldPrice(product, input.OldPrice); err != nil {
		return err
	}
	if input.Images != nil {
		product.Images = cleanImages(*input.Images)
	}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-negative")
		}
		product.Quantity = *input.Quantity
	}
	return nil
}

// applyPricing writes the admin price fields onto the product according to
// its kind. Variant products keep a size table; a single amount needs a size.
// Flat products keep a regular price; a bare amount becomes the regular price.
func applyPricing(product *models.Product, price *PriceInput, size *enums.VariantKey, regular *decimal.Decimal) error {
	if price != nil {
		if price.Amount != nil && price.Amount.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
		}
		for key, amount := range price.Entries {
			if !key.IsValid() {
				return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown size %q", key.String())
			}
			if amount.IsNegative() {
				return pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
			}
		}
	}
	if regular != nil && regular.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "regularPrice must be non-negative")
	}

	switch product.Kind {
	case enums.ProductKindVariant:
		if regular != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "regularPrice does not apply to sized products")
		}
		if price == nil {
			return nil
		}
		table := dbtypes.NewPriceTable(product.Price.Entries)
		for key, amount := range price.Entries {
			table.Entries[key.String()] = amount
		}
		if price.Amount != nil {
			if size == nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "size is required for sized products").
					WithDetails(map[string]any{"size": "is required"})
			}
			table.Entries[size.String()] = *price.Amount
		}
		product.Price = table
	default:
		if price != nil && len(price.Entries) > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "size prices do not apply to this category")
		}
		switch {
		case regular != nil:
			product.RegularPrice = decimal.NewNullDecimal(*regular)
		case price != nil && price.Amount != nil:
			product.RegularPrice = decimal.NewNullDecimal(*price.Amount)
		}
		if product.RegularPrice.Valid {
			// Normalised records no longer need the legacy scalar.
			product.Price = dbtypes.NewPriceTable(nil)
		}
	}
	return nil
}

func setOldPrice(product *models.Product, old *decimal.Decimal) error {
	if old == nil {
		return nil
	}
	if old.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "oldPrice must be non-negative")
	}
	product.OldPrice = decimal.NewNullDecimal(*old)
	return nil
}

func cleanImages(images []string) dbtypes.StringList {
	out := dbtypes.StringList{}
	for _, img := range images {
		if trimmed := strings.TrimSpace(img); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func mapWriteError(err error, action string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product name already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
