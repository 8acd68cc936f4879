package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"catalog-service/internal/models"
)

// Cache TTL constants
const (
	ProductCacheTTL  = 5 * time.Minute
	CategoryCacheTTL = 30 * time.Minute // Categories rarely change
)

// CatalogStore is the persistence contract consumed by handlers and the
// import pipeline.
type CatalogStore interface {
	// Categories
	GetOrCreateCategory(name string) (*models.Category, bool, error)
	GetCategoryByID(categoryID uuid.UUID) (*models.Category, error)
	GetCategories(page, limit int) ([]models.Category, int64, error)
	DeleteCategory(categoryID uuid.UUID) error

	// Products
	GetOrCreateProduct(name string, categoryID *uuid.UUID, defaults models.ProductDefaults) (*models.Product, bool, error)
	GetProductByID(productID uuid.UUID, includeRelations bool) (*models.Product, error)
	GetProducts(page, limit int, categoryID *uuid.UUID) ([]models.Product, int64, error)
	UpdateProduct(productID uuid.UUID, updates map[string]interface{}) error
	DeleteProduct(productID uuid.UUID) error

	// Variants
	CreateVariant(productID uuid.UUID, variant *models.ProductVariant) error
	GetVariants(productID uuid.UUID) ([]models.ProductVariant, error)
	DeleteVariant(productID, variantID uuid.UUID) error

	// Images
	CreateProductImage(image *models.ProductImage) error
	GetProductImages(productID uuid.UUID) ([]models.ProductImage, error)
	DeleteProductImage(productID, imageID uuid.UUID) error

	// Reviews
	CreateReview(review *models.Review) error
	GetReviews(productID uuid.UUID, page, limit int) ([]models.Review, int64, error)
	DeleteReview(productID, reviewID uuid.UUID) error

	// WithTransaction runs fn against a store bound to a single database
	// transaction; a returned error rolls everything back.
	WithTransaction(fn func(tx CatalogStore) error) error
}

type CatalogRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

var _ CatalogStore = (*CatalogRepository)(nil)

func NewCatalogRepository(db *gorm.DB, redisClient *redis.Client) *CatalogRepository {
	return &CatalogRepository{db: db, redis: redisClient}
}

// WithTransaction runs fn with a repository bound to a single transaction.
// A returned error rolls back every write made through the bound store.
func (r *CatalogRepository) WithTransaction(fn func(tx CatalogStore) error) error {
	return r.db.Transaction(func(txDB *gorm.DB) error {
		return fn(&CatalogRepository{db: txDB, redis: r.redis})
	})
}

// invalidateProductCaches drops the cached product entry
func (r *CatalogRepository) invalidateProductCaches(ctx context.Context, productID uuid.UUID) {
	if r.redis == nil {
		return
	}
	key := fmt.Sprintf("catalog:product:%s", productID.String())
	r.redis.Del(ctx, key+":true", key+":false")
}

// invalidateCategoryCaches drops the cached category listings
func (r *CatalogRepository) invalidateCategoryCaches(ctx context.Context) {
	if r.redis == nil {
		return
	}
	iter := r.redis.Scan(ctx, 0, "catalog:categories:*", 100).Iterator()
	for iter.Next(ctx) {
		r.redis.Del(ctx, iter.Val())
	}
}

// Category Operations

// GetOrCreateCategory finds a category by trimmed, case-sensitive name or
// creates it if absent. Idempotent: repeated calls with the same string never
// produce duplicate categories. Uses a transaction to handle creation races;
// the unique index on name is the backstop.
func (r *CatalogRepository) GetOrCreateCategory(name string) (*models.Category, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, fmt.Errorf("category name is empty")
	}

	var category models.Category
	var created bool

	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("name = ?", name).First(&category).Error
		if err == nil {
			created = false
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return fmt.Errorf("failed to lookup category: %w", err)
		}

		category = models.Category{
			Name:      name,
			Slug:      generateSlug(name),
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := tx.Create(&category).Error; err != nil {
			// A concurrent import may have created it between lookup and insert
			if strings.Contains(err.Error(), "duplicate") {
				if findErr := tx.Where("name = ?", name).First(&category).Error; findErr == nil {
					created = false
					return nil
				}
			}
			return fmt.Errorf("failed to create category '%s': %w", name, err)
		}

		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		r.invalidateCategoryCaches(context.Background())
	}
	return &category, created, nil
}

// GetCategoryByID retrieves a category by ID
func (r *CatalogRepository) GetCategoryByID(categoryID uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.Where("id = ?", categoryID).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// GetCategories retrieves categories with pagination and caching
func (r *CatalogRepository) GetCategories(page, limit int) ([]models.Category, int64, error) {
	ctx := context.Background()
	cacheKey := fmt.Sprintf("catalog:categories:%d:%d", page, limit)

	type categoriesResult struct {
		Categories []models.Category `json:"categories"`
		Total      int64             `json:"total"`
	}

	if r.redis != nil {
		if val, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var cached categoriesResult
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				return cached.Categories, cached.Total, nil
			}
		}
	}

	var categories []models.Category
	var total int64
	query := r.db.Model(&models.Category{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	if err := query.Order("name ASC").Offset(offset).Limit(limit).Find(&categories).Error; err != nil {
		return nil, 0, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(categoriesResult{Categories: categories, Total: total}); err == nil {
			r.redis.Set(ctx, cacheKey, data, CategoryCacheTTL)
		}
	}

	return categories, total, nil
}

// DeleteCategory soft deletes a category. Products referencing it keep their
// category_id; the category is referenced, not owned.
func (r *CatalogRepository) DeleteCategory(categoryID uuid.UUID) error {
	err := r.db.Where("id = ?", categoryID).Delete(&models.Category{}).Error
	if err == nil {
		r.invalidateCategoryCaches(context.Background())
	}
	return err
}

// Product Operations

// GetOrCreateProduct looks a product up by its (name, category) pair and
// creates it with the supplied defaults when absent. An existing product is
// returned untouched: defaults are only applied at creation time.
func (r *CatalogRepository) GetOrCreateProduct(name string, categoryID *uuid.UUID, defaults models.ProductDefaults) (*models.Product, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, fmt.Errorf("product name is empty")
	}
	if err := defaults.Validate(); err != nil {
		return nil, false, err
	}

	var product models.Product
	var created bool

	err := r.db.Transaction(func(tx *gorm.DB) error {
		query := tx.Where("name = ?", name)
		if categoryID != nil {
			query = query.Where("category_id = ?", *categoryID)
		} else {
			query = query.Where("category_id IS NULL")
		}

		err := query.First(&product).Error
		if err == nil {
			created = false
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return fmt.Errorf("failed to lookup product: %w", err)
		}

		product = models.Product{
			Name:         name,
			CategoryID:   categoryID,
			Description:  defaults.Description,
			MRP:          defaults.MRP,
			SellingPrice: defaults.SellingPrice,
			Stock:        defaults.Stock,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
		if err := tx.Create(&product).Error; err != nil {
			return fmt.Errorf("failed to create product '%s': %w", name, err)
		}

		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return &product, created, nil
}

// GetProductByID retrieves a product by ID with caching. When
// includeRelations is set the category, variants, images and reviews are
// eager-loaded so callers can render image lists without extra queries.
func (r *CatalogRepository) GetProductByID(productID uuid.UUID, includeRelations bool) (*models.Product, error) {
	ctx := context.Background()
	cacheKey := fmt.Sprintf("catalog:product:%s:%v", productID.String(), includeRelations)

	if r.redis != nil {
		if val, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var product models.Product
			if err := json.Unmarshal([]byte(val), &product); err == nil {
				return &product, nil
			}
		}
	}

	var product models.Product
	query := r.db.Where("id = ?", productID)
	if includeRelations {
		query = query.Preload("Category").Preload("Variants").Preload("Images").Preload("Reviews")
	}
	if err := query.First(&product).Error; err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(product); err == nil {
			r.redis.Set(ctx, cacheKey, data, ProductCacheTTL)
		}
	}

	return &product, nil
}

// GetProducts retrieves products with pagination, optionally filtered by
// category. Variants and images are always preloaded for display.
func (r *CatalogRepository) GetProducts(page, limit int, categoryID *uuid.UUID) ([]models.Product, int64, error) {
	var products []models.Product
	var total int64

	query := r.db.Model(&models.Product{})
	if categoryID != nil {
		query = query.Where("category_id = ?", *categoryID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Preload("Category").Preload("Variants").Preload("Images").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// UpdateProduct applies column updates to a product. Price and stock columns
// are validated before anything hits the database.
func (r *CatalogRepository) UpdateProduct(productID uuid.UUID, updates map[string]interface{}) error {
	for _, column := range []string{"mrp", "selling_price"} {
		if value, ok := updates[column].(string); ok {
			if err := models.ValidatePrice(value); err != nil {
				return err
			}
		}
	}
	if stock, ok := updates["stock"].(int); ok && stock < 0 {
		return models.ErrNegativeStock
	}
	updates["updated_at"] = time.Now()
	err := r.db.Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(updates).Error
	if err == nil {
		r.invalidateProductCaches(context.Background(), productID)
	}
	return err
}

// DeleteProduct deletes a product together with its variants, images and
// reviews. The product exclusively owns its dependents.
func (r *CatalogRepository) DeleteProduct(productID uuid.UUID) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&models.ProductVariant{}).Error; err != nil {
			return fmt.Errorf("failed to delete variants: %w", err)
		}
		if err := tx.Where("product_id = ?", productID).Delete(&models.ProductImage{}).Error; err != nil {
			return fmt.Errorf("failed to delete images: %w", err)
		}
		if err := tx.Where("product_id = ?", productID).Delete(&models.Review{}).Error; err != nil {
			return fmt.Errorf("failed to delete reviews: %w", err)
		}
		result := tx.Where("id = ?", productID).Delete(&models.Product{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err == nil {
		r.invalidateProductCaches(context.Background(), productID)
	}
	return err
}

// Variant Operations

// CreateVariant inserts a variant for a product. The caller decides whether
// a variant is warranted; price and stock are still validated here.
func (r *CatalogRepository) CreateVariant(productID uuid.UUID, variant *models.ProductVariant) error {
	if variant.SellingPrice != nil {
		if err := models.ValidatePrice(*variant.SellingPrice); err != nil {
			return err
		}
	}
	if variant.Stock < 0 {
		return models.ErrNegativeStock
	}
	variant.ProductID = productID
	variant.CreatedAt = time.Now()
	variant.UpdatedAt = time.Now()

	if err := r.db.Create(variant).Error; err != nil {
		return err
	}
	r.invalidateProductCaches(context.Background(), productID)
	return nil
}

// GetVariants retrieves all variants for a product
func (r *CatalogRepository) GetVariants(productID uuid.UUID) ([]models.ProductVariant, error) {
	var variants []models.ProductVariant
	err := r.db.Where("product_id = ?", productID).Order("created_at ASC").Find(&variants).Error
	return variants, err
}

// DeleteVariant soft deletes a variant of a product
func (r *CatalogRepository) DeleteVariant(productID, variantID uuid.UUID) error {
	result := r.db.Where("id = ? AND product_id = ?", variantID, productID).Delete(&models.ProductVariant{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	r.invalidateProductCaches(context.Background(), productID)
	return nil
}

// Image Operations

// CreateProductImage inserts a product image after validating that exactly
// one source (uploaded object or URL) is set. Violations fail the record,
// never silently drop a field.
func (r *CatalogRepository) CreateProductImage(image *models.ProductImage) error {
	if err := image.Validate(); err != nil {
		return err
	}
	image.CreatedAt = time.Now()
	image.UpdatedAt = time.Now()

	if err := r.db.Create(image).Error; err != nil {
		return err
	}
	r.invalidateProductCaches(context.Background(), image.ProductID)
	return nil
}

// GetProductImages retrieves all images for a product
func (r *CatalogRepository) GetProductImages(productID uuid.UUID) ([]models.ProductImage, error) {
	var images []models.ProductImage
	err := r.db.Where("product_id = ?", productID).Order("created_at ASC").Find(&images).Error
	return images, err
}

// DeleteProductImage soft deletes an image of a product
func (r *CatalogRepository) DeleteProductImage(productID, imageID uuid.UUID) error {
	result := r.db.Where("id = ? AND product_id = ?", imageID, productID).Delete(&models.ProductImage{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	r.invalidateProductCaches(context.Background(), productID)
	return nil
}

// Review Operations

// CreateReview inserts a review after validating the rating range
func (r *CatalogRepository) CreateReview(review *models.Review) error {
	if err := review.Validate(); err != nil {
		return err
	}
	review.CreatedAt = time.Now()

	if err := r.db.Create(review).Error; err != nil {
		return err
	}
	r.invalidateProductCaches(context.Background(), review.ProductID)
	return nil
}

// GetReviews retrieves reviews for a product with pagination
func (r *CatalogRepository) GetReviews(productID uuid.UUID, page, limit int) ([]models.Review, int64, error) {
	var reviews []models.Review
	var total int64

	query := r.db.Model(&models.Review{}).Where("product_id = ?", productID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&reviews).Error; err != nil {
		return nil, 0, err
	}

	return reviews, total, nil
}

// DeleteReview soft deletes a review of a product
func (r *CatalogRepository) DeleteReview(productID, reviewID uuid.UUID) error {
	result := r.db.Where("id = ? AND product_id = ?", reviewID, productID).Delete(&models.Review{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	r.invalidateProductCaches(context.Background(), productID)
	return nil
}

// generateSlug creates a URL-friendly slug from a name
func generateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	var result strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
