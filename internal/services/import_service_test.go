package services

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"catalog-service/internal/models"
	"catalog-service/internal/repository"
)

// memStore is an in-memory CatalogStore. WithTransaction snapshots state and
// restores it on error so rollback semantics match the real repository.
type memStore struct {
	categories map[uuid.UUID]models.Category
	products   map[uuid.UUID]models.Product
	variants   []models.ProductVariant
	images     []models.ProductImage
	reviews    []models.Review
}

var _ repository.CatalogStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		categories: make(map[uuid.UUID]models.Category),
		products:   make(map[uuid.UUID]models.Product),
	}
}

func (s *memStore) snapshot() *memStore {
	cp := newMemStore()
	for k, v := range s.categories {
		cp.categories[k] = v
	}
	for k, v := range s.products {
		cp.products[k] = v
	}
	cp.variants = append([]models.ProductVariant(nil), s.variants...)
	cp.images = append([]models.ProductImage(nil), s.images...)
	cp.reviews = append([]models.Review(nil), s.reviews...)
	return cp
}

func (s *memStore) restore(from *memStore) {
	s.categories = from.categories
	s.products = from.products
	s.variants = from.variants
	s.images = from.images
	s.reviews = from.reviews
}

func (s *memStore) WithTransaction(fn func(tx repository.CatalogStore) error) error {
	before := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(before)
		return err
	}
	return nil
}

func (s *memStore) GetOrCreateCategory(name string) (*models.Category, bool, error) {
	name = strings.TrimSpace(name)
	for _, c := range s.categories {
		if c.Name == name {
			found := c
			return &found, false, nil
		}
	}
	c := models.Category{ID: uuid.New(), Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	s.categories[c.ID] = c
	return &c, true, nil
}

func (s *memStore) GetCategoryByID(id uuid.UUID) (*models.Category, error) {
	if c, ok := s.categories[id]; ok {
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) GetCategories(page, limit int) ([]models.Category, int64, error) {
	var out []models.Category
	for _, c := range s.categories {
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

func (s *memStore) DeleteCategory(id uuid.UUID) error {
	delete(s.categories, id)
	return nil
}

func (s *memStore) GetOrCreateProduct(name string, categoryID *uuid.UUID, defaults models.ProductDefaults) (*models.Product, bool, error) {
	name = strings.TrimSpace(name)
	for _, p := range s.products {
		if p.Name != name {
			continue
		}
		if (p.CategoryID == nil) != (categoryID == nil) {
			continue
		}
		if p.CategoryID != nil && *p.CategoryID != *categoryID {
			continue
		}
		found := p
		return &found, false, nil
	}
	p := models.Product{
		ID:           uuid.New(),
		Name:         name,
		CategoryID:   categoryID,
		Description:  defaults.Description,
		MRP:          defaults.MRP,
		SellingPrice: defaults.SellingPrice,
		Stock:        defaults.Stock,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	s.products[p.ID] = p
	return &p, true, nil
}

func (s *memStore) GetProductByID(id uuid.UUID, includeRelations bool) (*models.Product, error) {
	if p, ok := s.products[id]; ok {
		return &p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) GetProducts(page, limit int, categoryID *uuid.UUID) ([]models.Product, int64, error) {
	var out []models.Product
	for _, p := range s.products {
		if categoryID != nil {
			if p.CategoryID == nil || *p.CategoryID != *categoryID {
				continue
			}
		}
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (s *memStore) UpdateProduct(id uuid.UUID, updates map[string]interface{}) error {
	p, ok := s.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if name, ok := updates["name"].(string); ok {
		p.Name = name
	}
	if stock, ok := updates["stock"].(int); ok {
		p.Stock = stock
	}
	s.products[id] = p
	return nil
}

func (s *memStore) DeleteProduct(id uuid.UUID) error {
	if _, ok := s.products[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.products, id)
	var variants []models.ProductVariant
	for _, v := range s.variants {
		if v.ProductID != id {
			variants = append(variants, v)
		}
	}
	s.variants = variants
	var images []models.ProductImage
	for _, img := range s.images {
		if img.ProductID != id {
			images = append(images, img)
		}
	}
	s.images = images
	var reviews []models.Review
	for _, r := range s.reviews {
		if r.ProductID != id {
			reviews = append(reviews, r)
		}
	}
	s.reviews = reviews
	return nil
}

func (s *memStore) CreateVariant(productID uuid.UUID, v *models.ProductVariant) error {
	v.ID = uuid.New()
	v.ProductID = productID
	s.variants = append(s.variants, *v)
	return nil
}

func (s *memStore) GetVariants(productID uuid.UUID) ([]models.ProductVariant, error) {
	var out []models.ProductVariant
	for _, v := range s.variants {
		if v.ProductID == productID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *memStore) DeleteVariant(productID, variantID uuid.UUID) error {
	for i, v := range s.variants {
		if v.ID == variantID && v.ProductID == productID {
			s.variants = append(s.variants[:i], s.variants[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *memStore) CreateProductImage(img *models.ProductImage) error {
	if err := img.Validate(); err != nil {
		return err
	}
	img.ID = uuid.New()
	s.images = append(s.images, *img)
	return nil
}

func (s *memStore) GetProductImages(productID uuid.UUID) ([]models.ProductImage, error) {
	var out []models.ProductImage
	for _, img := range s.images {
		if img.ProductID == productID {
			out = append(out, img)
		}
	}
	return out, nil
}

func (s *memStore) DeleteProductImage(productID, imageID uuid.UUID) error {
	for i, img := range s.images {
		if img.ID == imageID && img.ProductID == productID {
			s.images = append(s.images[:i], s.images[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *memStore) CreateReview(r *models.Review) error {
	if err := r.Validate(); err != nil {
		return err
	}
	r.ID = uuid.New()
	s.reviews = append(s.reviews, *r)
	return nil
}

func (s *memStore) GetReviews(productID uuid.UUID, page, limit int) ([]models.Review, int64, error) {
	var out []models.Review
	for _, r := range s.reviews {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	return out, int64(len(out)), nil
}

func (s *memStore) DeleteReview(productID, reviewID uuid.UUID) error {
	for i, r := range s.reviews {
		if r.ID == reviewID && r.ProductID == productID {
			s.reviews = append(s.reviews[:i], s.reviews[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func newTestService(store repository.CatalogStore) *ImportService {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return NewImportService(store, logger)
}

func TestImportProducts_RoundTrip(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	csv := "category,product_name,description,mrp,selling_price,stock,sku,size,color,image_url\n" +
		"Shoes,Runner,,50.00,40.00,10,SKU1,,,http://x/img.png\n"

	result, err := service.ImportProducts("products.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.TotalRows)
	assert.Equal(t, 1, result.RowsProcessed)
	assert.Equal(t, 1, result.ProductsCreated)
	assert.Equal(t, 1, result.CategoriesCreated)
	assert.Equal(t, 1, result.VariantsCreated)
	assert.Equal(t, 1, result.ImagesCreated)

	assert.Len(t, store.categories, 1)
	require.Len(t, store.products, 1)
	for _, p := range store.products {
		assert.Equal(t, "Runner", p.Name)
		assert.Equal(t, 10, p.Stock)
		require.NotNil(t, p.MRP)
		assert.Equal(t, "50.00", *p.MRP)
		require.NotNil(t, p.CategoryID)
	}
	require.Len(t, store.variants, 1)
	require.NotNil(t, store.variants[0].SKU)
	assert.Equal(t, "SKU1", *store.variants[0].SKU)
	require.NotNil(t, store.variants[0].ImageURL)
	assert.Equal(t, "http://x/img.png", *store.variants[0].ImageURL)
	require.Len(t, store.images, 1)
	require.NotNil(t, store.images[0].ImageURL)
	assert.Equal(t, "http://x/img.png", *store.images[0].ImageURL)
}

func TestImportProducts_CategoryCreatedOnce(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	csv := "category,product_name\n" +
		"Shoes,Runner\n" +
		"Shoes,Walker\n"

	result, err := service.ImportProducts("products.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.CategoriesCreated)
	assert.Equal(t, 2, result.ProductsCreated)
	assert.Len(t, store.categories, 1)
}

func TestImportProducts_NoVariantWithoutSKUSizeColor(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	csv := "category,product_name,stock\n" +
		"Shoes,Runner,5\n"

	result, err := service.ImportProducts("products.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.VariantsCreated)
	assert.Empty(t, store.variants)
}

func TestImportProducts_VariantFromSizeOnly(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	csv := "category,product_name,size\n" +
		"Shoes,Runner,42\n"

	result, err := service.ImportProducts("products.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, result.VariantsCreated)
	require.Len(t, store.variants, 1)
	assert.Nil(t, store.variants[0].SKU)
	require.NotNil(t, store.variants[0].Size)
	assert.Equal(t, "42", *store.variants[0].Size)
}

func TestImportProducts_ReimportIsNoOp(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	csv := "category,product_name,mrp,sku,image_url\n" +
		"Shoes,Runner,50.00,SKU1,http://x/img.png\n"

	first, err := service.ImportProducts("products.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, first.ProductsCreated)

	second, err := service.ImportProducts("products.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Equal(t, 0, second.ProductsCreated)
	assert.Equal(t, 0, second.CategoriesCreated)
	assert.Equal(t, 0, second.VariantsCreated)
	assert.Equal(t, 0, second.ImagesCreated)
	assert.Equal(t, 1, second.ProductsSkipped)

	assert.Len(t, store.categories, 1)
	assert.Len(t, store.products, 1)
	assert.Len(t, store.variants, 1)
	assert.Len(t, store.images, 1)
}

func TestImportProducts_MalformedPriceAbortsRemainingRows(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	csv := "category,product_name,mrp\n" +
		"Shoes,Runner,50.00\n" +
		"Shoes,Walker,not-a-price\n" +
		"Shoes,Sprinter,30.00\n"

	result, err := service.ImportProducts("products.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, 1, result.RowsProcessed)
	assert.Equal(t, 1, result.ProductsCreated)
	require.NotNil(t, result.Error)
	assert.Equal(t, 3, result.Error.Row)
	assert.Equal(t, "mrp", result.Error.Column)

	// The first row stays committed, the rest never ran
	assert.Len(t, store.products, 1)
}

func TestImportProducts_NegativePriceAborts(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	csv := "category,product_name,mrp,selling_price\n" +
		"Shoes,Runner,-5.00,40.00\n"

	result, err := service.ImportProducts("products.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, 2, result.Error.Row)
	assert.Equal(t, "mrp", result.Error.Column)
	assert.Empty(t, store.products)
}

func TestImportProducts_NonFinitePriceAborts(t *testing.T) {
	for _, bad := range []string{"NaN", "Inf", "-Inf"} {
		store := newMemStore()
		service := newTestService(store)

		csv := "category,product_name,selling_price\n" +
			"Shoes,Runner," + bad + "\n"

		result, err := service.ImportProducts("products.csv", strings.NewReader(csv))
		require.NoError(t, err)
		assert.False(t, result.Success, "selling_price=%s must fail the row", bad)
		require.NotNil(t, result.Error)
		assert.Equal(t, "selling_price", result.Error.Column)
		assert.Empty(t, store.products)
	}
}

func TestImportProducts_MalformedStockAborts(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	csv := "category,product_name,stock\n" +
		"Shoes,Runner,ten\n"

	result, err := service.ImportProducts("products.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, "stock", result.Error.Column)
	assert.Empty(t, store.products)
	// The category created earlier in the same row rolled back with it
	assert.Empty(t, store.categories)
}

func TestImportProducts_EmptyStockDefaultsToZero(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	csv := "category,product_name,stock\n" +
		"Shoes,Runner,\n"

	result, err := service.ImportProducts("products.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.True(t, result.Success)
	for _, p := range store.products {
		assert.Equal(t, 0, p.Stock)
		assert.Nil(t, p.MRP)
	}
}

func TestImportProducts_MissingProductName(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	csv := "category,product_name\n" +
		"Shoes,\n"

	result, err := service.ImportProducts("products.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, 2, result.Error.Row)
	assert.Equal(t, "product_name", result.Error.Column)
	assert.Empty(t, store.categories)
}

func TestImportProducts_NameHeaderAlias(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	csv := "category,name\n" +
		"Shoes,Runner\n"

	result, err := service.ImportProducts("products.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.ProductsCreated)
}

func TestImportProducts_MultipleImageColumns(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	csv := "category,product_name,image_url,image_url_2,image_url_3\n" +
		"Shoes,Runner,http://x/1.png,http://x/2.png,\n"

	result, err := service.ImportProducts("products.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.ImagesCreated)
	require.Len(t, store.images, 2)
	assert.Equal(t, "http://x/1.png", *store.images[0].ImageURL)
	assert.Equal(t, "http://x/2.png", *store.images[1].ImageURL)
}

func TestImportProducts_ProductWithoutCategory(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	csv := "category,product_name\n" +
		",Runner\n"

	result, err := service.ImportProducts("products.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.CategoriesCreated)
	for _, p := range store.products {
		assert.Nil(t, p.CategoryID)
	}
}

func TestImportProducts_RequiredMarkerHeadersAccepted(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	// The downloadable templates suffix required columns with " *"
	csv := "category,product_name *,stock\n" +
		"Shoes,Runner,5\n"

	result, err := service.ImportProducts("products.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.ProductsCreated)
	for _, p := range store.products {
		assert.Equal(t, "Runner", p.Name)
		assert.Equal(t, 5, p.Stock)
	}
}

func TestImportProducts_ImageColumnsFollowHeaderOrder(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	csv := "category,product_name,image_url_2,image_url\n" +
		"Shoes,Runner,http://x/b.png,http://x/a.png\n"

	result, err := service.ImportProducts("products.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, result.ImagesCreated)
	require.Len(t, store.images, 2)
	assert.Equal(t, "http://x/b.png", *store.images[0].ImageURL)
	assert.Equal(t, "http://x/a.png", *store.images[1].ImageURL)
}

func TestImportProducts_HeadersNormalized(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	csv := " Category , PRODUCT_NAME \n" +
		"Shoes,Runner\n"

	result, err := service.ImportProducts("products.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.ProductsCreated)
	assert.Equal(t, 1, result.CategoriesCreated)
}

func TestImportProducts_RejectsUnknownExtension(t *testing.T) {
	service := newTestService(newMemStore())

	_, err := service.ImportProducts("products.txt", strings.NewReader("data"))
	assert.ErrorIs(t, err, ErrInvalidFile)
}

func TestImportProducts_XLSX(t *testing.T) {
	store := newMemStore()
	service := newTestService(store)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"category", "product_name", "stock", "sku"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Shoes", "Runner", "10", "SKU1"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	result, err := service.ImportProducts("products.xlsx", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.ProductsCreated)
	assert.Equal(t, 1, result.VariantsCreated)
	for _, p := range store.products {
		assert.Equal(t, 10, p.Stock)
	}
}
