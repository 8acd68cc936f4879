package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"catalog-service/internal/events"
	"catalog-service/internal/models"
	"catalog-service/internal/repository"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type CatalogHandler struct {
	store     repository.CatalogStore
	publisher *events.Publisher
	logger    *logrus.Logger
}

func NewCatalogHandler(store repository.CatalogStore, publisher *events.Publisher, logger *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// parsePagination extracts page/limit query params with sane bounds
func parsePagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultPageSize)))
	if err != nil || limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func newPaginationInfo(page, limit int, total int64) *models.PaginationInfo {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &models.PaginationInfo{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Invalid UUID in path",
				Field:   name,
			},
		})
		return uuid.Nil, false
	}
	return id, true
}

func respondNotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "NOT_FOUND",
			Message: message,
		},
	})
}

func respondInternal(c *gin.Context, logger *logrus.Logger, err error, message string) {
	logger.WithError(err).Error(message)
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "INTERNAL_ERROR",
			Message: message,
		},
	})
}

// Product Endpoints

// GetProducts lists products with pagination, optionally filtered by category
// GET /api/v1/products
func (h *CatalogHandler) GetProducts(c *gin.Context) {
	page, limit := parsePagination(c)

	var categoryID *uuid.UUID
	if raw := c.Query("categoryId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "INVALID_ID",
					Message: "Invalid category ID",
					Field:   "categoryId",
				},
			})
			return
		}
		categoryID = &id
	}

	products, total, err := h.store.GetProducts(page, limit, categoryID)
	if err != nil {
		respondInternal(c, h.logger, err, "Failed to fetch products")
		return
	}

	c.JSON(http.StatusOK, models.ProductListResponse{
		Success:    true,
		Data:       products,
		Pagination: newPaginationInfo(page, limit, total),
	})
}

// GetProduct retrieves a single product with its variants, images and reviews
// GET /api/v1/products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := h.store.GetProductByID(productID, true)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "Product not found")
			return
		}
		respondInternal(c, h.logger, err, "Failed to fetch product")
		return
	}

	c.JSON(http.StatusOK, models.ProductResponse{Success: true, Data: product})
}

// CreateProduct creates a product, resolving its category by name
// POST /api/v1/products
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	var categoryID *uuid.UUID
	if req.CategoryName != nil && *req.CategoryName != "" {
		category, _, err := h.store.GetOrCreateCategory(*req.CategoryName)
		if err != nil {
			respondInternal(c, h.logger, err, "Failed to resolve category")
			return
		}
		categoryID = &category.ID
	}

	stock := 0
	if req.Stock != nil {
		stock = *req.Stock
	}
	defaults := models.ProductDefaults{
		Description:  req.Description,
		MRP:          req.MRP,
		SellingPrice: req.SellingPrice,
		Stock:        stock,
	}

	product, created, err := h.store.GetOrCreateProduct(req.Name, categoryID, defaults)
	if err != nil {
		if errors.Is(err, models.ErrInvalidPrice) || errors.Is(err, models.ErrNegativeStock) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "VALIDATION_ERROR",
					Message: err.Error(),
				},
			})
			return
		}
		respondInternal(c, h.logger, err, "Failed to create product")
		return
	}
	if !created {
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "ALREADY_EXISTS",
				Message: "A product with this name already exists in the category",
				Field:   "name",
			},
		})
		return
	}

	h.publisher.PublishProductCreated(c.Request.Context(), product)
	c.JSON(http.StatusCreated, models.ProductResponse{Success: true, Data: product})
}

// UpdateProduct updates product fields
// PUT /api/v1/products/:id
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	if _, err := h.store.GetProductByID(productID, false); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "Product not found")
			return
		}
		respondInternal(c, h.logger, err, "Failed to fetch product")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.MRP != nil {
		updates["mrp"] = *req.MRP
	}
	if req.SellingPrice != nil {
		updates["selling_price"] = *req.SellingPrice
	}
	if req.Stock != nil {
		updates["stock"] = *req.Stock
	}
	if req.CategoryName != nil && *req.CategoryName != "" {
		category, _, err := h.store.GetOrCreateCategory(*req.CategoryName)
		if err != nil {
			respondInternal(c, h.logger, err, "Failed to resolve category")
			return
		}
		updates["category_id"] = category.ID
	}

	if len(updates) > 0 {
		if err := h.store.UpdateProduct(productID, updates); err != nil {
			if errors.Is(err, models.ErrInvalidPrice) || errors.Is(err, models.ErrNegativeStock) {
				c.JSON(http.StatusBadRequest, models.ErrorResponse{
					Success: false,
					Error: models.Error{
						Code:    "VALIDATION_ERROR",
						Message: err.Error(),
					},
				})
				return
			}
			respondInternal(c, h.logger, err, "Failed to update product")
			return
		}
	}

	product, err := h.store.GetProductByID(productID, true)
	if err != nil {
		respondInternal(c, h.logger, err, "Failed to fetch product")
		return
	}

	h.publisher.PublishProductUpdated(c.Request.Context(), product)
	c.JSON(http.StatusOK, models.ProductResponse{Success: true, Data: product})
}

// DeleteProduct removes a product and everything it owns
// DELETE /api/v1/products/:id
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteProduct(productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "Product not found")
			return
		}
		respondInternal(c, h.logger, err, "Failed to delete product")
		return
	}

	h.publisher.PublishProductDeleted(c.Request.Context(), productID)
	message := "Product deleted"
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: &message})
}

// Category Endpoints

// GetCategories lists categories with pagination
// GET /api/v1/categories
func (h *CatalogHandler) GetCategories(c *gin.Context) {
	page, limit := parsePagination(c)

	categories, total, err := h.store.GetCategories(page, limit)
	if err != nil {
		respondInternal(c, h.logger, err, "Failed to fetch categories")
		return
	}

	c.JSON(http.StatusOK, models.CategoryListResponse{
		Success:    true,
		Data:       categories,
		Pagination: newPaginationInfo(page, limit, total),
	})
}

// CreateCategory creates a category (idempotent on name)
// POST /api/v1/categories
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req models.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	category, created, err := h.store.GetOrCreateCategory(req.Name)
	if err != nil {
		respondInternal(c, h.logger, err, "Failed to create category")
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, models.CategoryResponse{Success: true, Data: category})
}

// DeleteCategory removes a category; its products keep existing uncategorized
// DELETE /api/v1/categories/:id
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	categoryID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := h.store.GetCategoryByID(categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "Category not found")
			return
		}
		respondInternal(c, h.logger, err, "Failed to fetch category")
		return
	}

	if err := h.store.DeleteCategory(categoryID); err != nil {
		respondInternal(c, h.logger, err, "Failed to delete category")
		return
	}

	message := "Category deleted"
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: &message})
}

// Variant Endpoints

// GetVariants lists variants of a product
// GET /api/v1/products/:id/variants
func (h *CatalogHandler) GetVariants(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	variants, err := h.store.GetVariants(productID)
	if err != nil {
		respondInternal(c, h.logger, err, "Failed to fetch variants")
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: variants})
}

// CreateVariant adds a variant to a product
// POST /api/v1/products/:id/variants
func (h *CatalogHandler) CreateVariant(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.CreateVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	if _, err := h.store.GetProductByID(productID, false); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "Product not found")
			return
		}
		respondInternal(c, h.logger, err, "Failed to fetch product")
		return
	}

	stock := 0
	if req.Stock != nil {
		stock = *req.Stock
	}
	variant := &models.ProductVariant{
		SKU:          req.SKU,
		Size:         req.Size,
		Color:        req.Color,
		SellingPrice: req.SellingPrice,
		Stock:        stock,
		ImageURL:     req.ImageURL,
	}

	if err := h.store.CreateVariant(productID, variant); err != nil {
		if errors.Is(err, models.ErrInvalidPrice) || errors.Is(err, models.ErrNegativeStock) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "VALIDATION_ERROR",
					Message: err.Error(),
				},
			})
			return
		}
		respondInternal(c, h.logger, err, "Failed to create variant")
		return
	}

	c.JSON(http.StatusCreated, models.VariantResponse{Success: true, Data: variant})
}

// DeleteVariant removes a variant from a product
// DELETE /api/v1/products/:id/variants/:variantId
func (h *CatalogHandler) DeleteVariant(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	variantID, ok := parseIDParam(c, "variantId")
	if !ok {
		return
	}

	if err := h.store.DeleteVariant(productID, variantID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "Variant not found")
			return
		}
		respondInternal(c, h.logger, err, "Failed to delete variant")
		return
	}

	message := "Variant deleted"
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: &message})
}

// Image Endpoints

// GetProductImages lists images of a product
// GET /api/v1/products/:id/images
func (h *CatalogHandler) GetProductImages(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	images, err := h.store.GetProductImages(productID)
	if err != nil {
		respondInternal(c, h.logger, err, "Failed to fetch images")
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: images})
}

// AddProductImage attaches an image to a product. Exactly one source
// (uploaded object key or external URL) must be set.
// POST /api/v1/products/:id/images
func (h *CatalogHandler) AddProductImage(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.AddImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	if _, err := h.store.GetProductByID(productID, false); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "Product not found")
			return
		}
		respondInternal(c, h.logger, err, "Failed to fetch product")
		return
	}

	image := &models.ProductImage{
		ProductID: productID,
		Image:     req.Image,
		ImageURL:  req.ImageURL,
	}
	if err := h.store.CreateProductImage(image); err != nil {
		if errors.Is(err, models.ErrImageSourceConflict) || errors.Is(err, models.ErrImageSourceMissing) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "VALIDATION_ERROR",
					Message: err.Error(),
				},
			})
			return
		}
		respondInternal(c, h.logger, err, "Failed to add image")
		return
	}

	c.JSON(http.StatusCreated, models.ImageResponse{Success: true, Data: image})
}

// DeleteProductImage removes an image from a product
// DELETE /api/v1/products/:id/images/:imageId
func (h *CatalogHandler) DeleteProductImage(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	imageID, ok := parseIDParam(c, "imageId")
	if !ok {
		return
	}

	if err := h.store.DeleteProductImage(productID, imageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "Image not found")
			return
		}
		respondInternal(c, h.logger, err, "Failed to delete image")
		return
	}

	message := "Image deleted"
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: &message})
}

// Review Endpoints

// GetReviews lists reviews of a product, newest first
// GET /api/v1/products/:id/reviews
func (h *CatalogHandler) GetReviews(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	page, limit := parsePagination(c)

	reviews, total, err := h.store.GetReviews(productID, page, limit)
	if err != nil {
		respondInternal(c, h.logger, err, "Failed to fetch reviews")
		return
	}

	c.JSON(http.StatusOK, models.ReviewListResponse{
		Success:    true,
		Data:       reviews,
		Pagination: newPaginationInfo(page, limit, total),
	})
}

// CreateReview submits a review for a product
// POST /api/v1/products/:id/reviews
func (h *CatalogHandler) CreateReview(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	if _, err := h.store.GetProductByID(productID, false); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "Product not found")
			return
		}
		respondInternal(c, h.logger, err, "Failed to fetch product")
		return
	}

	review := &models.Review{
		ProductID: productID,
		Name:      req.Name,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	if err := h.store.CreateReview(review); err != nil {
		if errors.Is(err, models.ErrRatingOutOfRange) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "VALIDATION_ERROR",
					Message: err.Error(),
					Field:   "rating",
				},
			})
			return
		}
		respondInternal(c, h.logger, err, "Failed to create review")
		return
	}

	c.JSON(http.StatusCreated, models.ReviewResponse{Success: true, Data: review})
}

// DeleteReview removes a review from a product
// DELETE /api/v1/products/:id/reviews/:reviewId
func (h *CatalogHandler) DeleteReview(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	reviewID, ok := parseIDParam(c, "reviewId")
	if !ok {
		return
	}

	if err := h.store.DeleteReview(productID, reviewID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "Review not found")
			return
		}
		respondInternal(c, h.logger, err, "Failed to delete review")
		return
	}

	message := "Review deleted"
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: &message})
}
