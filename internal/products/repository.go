package product

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/herbstore-backend/pkg/db/models"
	"github.com/angelmondragon/herbstore-backend/pkg/pagination"
)

// Repository wires together product and review persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct inserts the product, generating an id when missing.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Omit("Reviews").Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct persists every column of the product.
func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Omit("Reviews").Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateQuantity sets the stock count only.
func (r *Repository) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("quantity", quantity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteProduct removes the product and its reviews.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("product_id = ?", id).Delete(&models.Review{}).Error; err != nil {
		return err
	}
	res := tx.Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type productListQuery struct {
	Pagination pagination.Params
	Filters    ProductListFilters
	Sort       pagination.Sort
}

// ListProducts returns one page of products plus the total match count.
const searchClause = `(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a case-insensitive substring LIKE pattern in which
// the user's % and _ match literally.
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(q))) + "%"
}

func (r *Repository) ListProducts(ctx context.Context, query productListQuery) ([]models.Product, int64, error) {
	qb := r.db.WithContext(ctx).Model(&models.Product{})

	filter := query.Filters
	if filter.Category != nil {
		qb = qb.Where("category = ?", filter.Category.String())
	}
	if filter.MinPrice != nil {
		qb = qb.Where("display_price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		qb = qb.Where("display_price <= ?", *filter.MaxPrice)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := containsPattern(search)
		qb = qb.Where(searchClause, pattern, pattern)
	}

	qb = qb.Session(&gorm.Session{})

	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := query.Pagination.Normalize()
	sort := query.Sort
	if sort.Column == "" {
		sort = DefaultSort
	}

	var products []models.Product
	if err := qb.
		Order(sort.Clause()).
		Order("id ASC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// SearchProducts matches the query against name and description.
func (r *Repository) SearchProducts(ctx context.Context, q string, limit int) ([]models.Product, error) {
	pattern := containsPattern(q)
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where(searchClause, pattern, pattern).
		Order("name ASC").
		Limit(pagination.NormalizeLimit(limit)).
		Find(&products).Error
	return products, err
}

// ListRelated returns other products from the same category.
func (r *Repository) ListRelated(ctx context.Context, product *models.Product, limit int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("category = ? AND id <> ?", product.Category.String(), product.ID).
		Order("created_at DESC").
		Limit(pagination.NormalizeLimit(limit)).
		Find(&products).Error
	return products, err
}

// ListBestSelling orders products by units ordered. Products without sales
// are appended newest first to fill the limit.
func (r *Repository) ListBestSelling(ctx context.Context, limit int) ([]models.Product, error) {
	limit = pagination.NormalizeLimit(limit)

	var sold []models.Product
	err := r.db.WithContext(ctx).
		Table("products").
		Select("products.*").
		Joins("JOIN (SELECT product_id, SUM(quantity) AS units FROM order_lines GROUP BY product_id) sales ON sales.product_id = products.id").
		Order("sales.units DESC").
		Order("products.created_at DESC").
		Limit(limit).
		Find(&sold).Error
	if err != nil {
		return nil, err
	}
	if len(sold) >= limit {
		return sold, nil
	}

	qb := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit - len(sold))
	if len(sold) > 0 {
		ids := make([]uuid.UUID, 0, len(sold))
		for _, p := range sold {
			ids = append(ids, p.ID)
		}
		qb = qb.Where("id NOT IN ?", ids)
	}
	var filler []models.Product
	if err := qb.Find(&filler).Error; err != nil {
		return nil, err
	}
	return append(sold, filler...), nil
}

// ListReviews returns the reviews of a product, newest first.
func (r *Repository) ListReviews(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

// CreateReview inserts a review.
func (r *Repository) CreateReview(ctx context.Context, review *models.Review) (*models.Review, error) {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		return nil, err
	}
	return review, nil
}
