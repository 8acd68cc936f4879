package models

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Validation errors raised by the store layer before a record is persisted.
var (
	ErrImageSourceConflict = errors.New("product image cannot have both an uploaded image and an image URL")
	ErrImageSourceMissing  = errors.New("product image requires either an uploaded image or an image URL")
	ErrRatingOutOfRange    = errors.New("review rating must be between 1 and 5")
	ErrInvalidPrice        = errors.New("price must be a non-negative decimal")
	ErrNegativeStock       = errors.New("stock must not be negative")
)

// ValidatePrice checks that a textual price is a finite, non-negative decimal.
// NaN and infinities parse but are not prices.
func ValidatePrice(value string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return ErrInvalidPrice
	}
	return nil
}

// Category represents a product category. Categories are referenced by
// products, never owned by them: deleting a product leaves its category alone.
type Category struct {
	ID        uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name      string          `json:"name" gorm:"not null;uniqueIndex"`
	Slug      string          `json:"slug" gorm:"not null"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	DeletedAt *gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

// Product represents a catalog product. A product owns its variants, images
// and reviews (cascade delete); the category reference is optional.
type Product struct {
	ID           uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name         string            `json:"name" gorm:"not null;index:idx_products_name_category,unique"`
	CategoryID   *uuid.UUID        `json:"categoryId,omitempty" gorm:"type:uuid;index:idx_products_name_category,unique"`
	Category     *Category         `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Description  *string           `json:"description,omitempty"`
	MRP          *string           `json:"mrp,omitempty"`
	SellingPrice *string           `json:"sellingPrice,omitempty"`
	Stock        int               `json:"stock" gorm:"not null;default:0"`
	Variants     []*ProductVariant `json:"variants,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Images       []*ProductImage   `json:"images,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Reviews      []*Review         `json:"reviews,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	DeletedAt    *gorm.DeletedAt   `json:"deletedAt,omitempty" gorm:"index"`
}

// ImageURLs collects every renderable image source for the product: gallery
// images first, then variant images. Requires Images and Variants to be
// preloaded; no extra queries are issued.
func (p *Product) ImageURLs() []string {
	urls := make([]string, 0, len(p.Images)+len(p.Variants))
	for _, img := range p.Images {
		if src := img.ImageSource(); src != "" {
			urls = append(urls, src)
		}
	}
	for _, v := range p.Variants {
		if v.ImageURL != nil && *v.ImageURL != "" {
			urls = append(urls, *v.ImageURL)
		}
	}
	return urls
}

// ProductVariant represents a size/color/SKU combination of a product with
// its own price, stock and image.
type ProductVariant struct {
	ID           uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID    uuid.UUID       `json:"productId" gorm:"type:uuid;not null;index"`
	SKU          *string         `json:"sku,omitempty" gorm:"uniqueIndex"`
	Size         *string         `json:"size,omitempty"`
	Color        *string         `json:"color,omitempty"`
	SellingPrice *string         `json:"sellingPrice,omitempty"`
	Stock        int             `json:"stock" gorm:"not null;default:0"`
	ImageURL     *string         `json:"imageUrl,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	DeletedAt    *gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

// ProductImage represents a product image backed by exactly one source:
// an uploaded object path or an external URL.
type ProductImage struct {
	ID        uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID uuid.UUID       `json:"productId" gorm:"type:uuid;not null;index"`
	Image     *string         `json:"image,omitempty"`
	ImageURL  *string         `json:"imageUrl,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	DeletedAt *gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

// Validate enforces the source exclusivity invariant: exactly one of Image
// or ImageURL must be set.
func (i *ProductImage) Validate() error {
	hasImage := i.Image != nil && strings.TrimSpace(*i.Image) != ""
	hasURL := i.ImageURL != nil && strings.TrimSpace(*i.ImageURL) != ""
	if hasImage && hasURL {
		return ErrImageSourceConflict
	}
	if !hasImage && !hasURL {
		return ErrImageSourceMissing
	}
	return nil
}

// ImageSource returns whichever source the image carries, preferring the
// uploaded object path.
func (i *ProductImage) ImageSource() string {
	if i.Image != nil && *i.Image != "" {
		return *i.Image
	}
	if i.ImageURL != nil {
		return *i.ImageURL
	}
	return ""
}

// Review represents a customer review for a product.
type Review struct {
	ID        uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID uuid.UUID       `json:"productId" gorm:"type:uuid;not null;index"`
	Name      string          `json:"name" gorm:"not null"`
	Rating    int             `json:"rating" gorm:"not null"`
	Comment   string          `json:"comment"`
	CreatedAt time.Time       `json:"createdAt"`
	DeletedAt *gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

// Validate enforces the 1-5 rating range.
func (r *Review) Validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return ErrRatingOutOfRange
	}
	return nil
}

// ProductDefaults carries the optional field values applied when a
// get-or-create lookup misses and a new product is inserted. Fields left nil
// keep their model defaults.
type ProductDefaults struct {
	Description  *string
	MRP          *string
	SellingPrice *string
	Stock        int
}

// Validate enforces the numeric field invariants before a new product is
// inserted: prices are non-negative decimals, stock is non-negative.
func (d *ProductDefaults) Validate() error {
	if d.MRP != nil {
		if err := ValidatePrice(*d.MRP); err != nil {
			return err
		}
	}
	if d.SellingPrice != nil {
		if err := ValidatePrice(*d.SellingPrice); err != nil {
			return err
		}
	}
	if d.Stock < 0 {
		return ErrNegativeStock
	}
	return nil
}

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	Name         string  `json:"name" binding:"required"`
	CategoryName *string `json:"categoryName,omitempty"`
	Description  *string `json:"description,omitempty"`
	MRP          *string `json:"mrp,omitempty"`
	SellingPrice *string `json:"sellingPrice,omitempty"`
	Stock        *int    `json:"stock,omitempty"`
}

// UpdateProductRequest represents a request to update a product
type UpdateProductRequest struct {
	Name         *string `json:"name,omitempty"`
	CategoryName *string `json:"categoryName,omitempty"`
	Description  *string `json:"description,omitempty"`
	MRP          *string `json:"mrp,omitempty"`
	SellingPrice *string `json:"sellingPrice,omitempty"`
	Stock        *int    `json:"stock,omitempty"`
}

// CreateVariantRequest represents a request to create a product variant
type CreateVariantRequest struct {
	SKU          *string `json:"sku,omitempty"`
	Size         *string `json:"size,omitempty"`
	Color        *string `json:"color,omitempty"`
	SellingPrice *string `json:"sellingPrice,omitempty"`
	Stock        *int    `json:"stock,omitempty"`
	ImageURL     *string `json:"imageUrl,omitempty"`
}

// AddImageRequest represents a request to attach an image to a product.
// Exactly one of image or imageUrl must be provided.
type AddImageRequest struct {
	Image    *string `json:"image,omitempty"`
	ImageURL *string `json:"imageUrl,omitempty"`
}

// CreateReviewRequest represents a review submission
type CreateReviewRequest struct {
	Name    string `json:"name" binding:"required"`
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

// CreateCategoryRequest represents a request to create a category
type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

// Response types

type PaginationInfo struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

type ProductResponse struct {
	Success bool     `json:"success"`
	Data    *Product `json:"data"`
	Message *string  `json:"message,omitempty"`
}

type ProductListResponse struct {
	Success    bool            `json:"success"`
	Data       []Product       `json:"data"`
	Pagination *PaginationInfo `json:"pagination"`
}

type CategoryResponse struct {
	Success bool      `json:"success"`
	Data    *Category `json:"data"`
	Message *string   `json:"message,omitempty"`
}

type CategoryListResponse struct {
	Success    bool            `json:"success"`
	Data       []Category      `json:"data"`
	Pagination *PaginationInfo `json:"pagination"`
}

type VariantResponse struct {
	Success bool            `json:"success"`
	Data    *ProductVariant `json:"data"`
	Message *string         `json:"message,omitempty"`
}

type ImageResponse struct {
	Success bool          `json:"success"`
	Data    *ProductImage `json:"data"`
	Message *string       `json:"message,omitempty"`
}

type ReviewResponse struct {
	Success bool    `json:"success"`
	Data    *Review `json:"data"`
	Message *string `json:"message,omitempty"`
}

type ReviewListResponse struct {
	Success    bool            `json:"success"`
	Data       []Review        `json:"data"`
	Pagination *PaginationInfo `json:"pagination"`
}

type ErrorResponse struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}

// TableName returns the table name for the Category model
func (Category) TableName() string {
	return "categories"
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// TableName returns the table name for the ProductVariant model
func (ProductVariant) TableName() string {
	return "product_variants"
}

// TableName returns the table name for the ProductImage model
func (ProductImage) TableName() string {
	return "product_images"
}

// TableName returns the table name for the Review model
func (Review) TableName() string {
	return "reviews"
}
