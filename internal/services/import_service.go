package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"catalog-service/internal/models"
	"catalog-service/internal/repository"
)

// ErrInvalidFile is returned when an upload is neither .csv nor .xlsx.
var ErrInvalidFile = errors.New("unsupported file format, expected .csv or .xlsx")

// ImportService runs the bulk product import pipeline. Each row is applied
// inside its own database transaction: a failing row rolls only itself back,
// rows already processed stay committed.
type ImportService struct {
	store  repository.CatalogStore
	logger *logrus.Logger
}

func NewImportService(store repository.CatalogStore, logger *logrus.Logger) *ImportService {
	return &ImportService{store: store, logger: logger}
}

// ImportProducts parses the uploaded file and applies every row until the
// first failure. The returned result always reflects what was committed,
// even when Success is false.
func (s *ImportService) ImportProducts(filename string, reader io.Reader) (*models.ImportResult, error) {
	var headers []string
	var rows []map[string]string
	var err error

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		headers, rows, err = parseCSV(reader)
	case ".xlsx":
		headers, rows, err = parseXLSX(reader)
	default:
		return nil, ErrInvalidFile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	result := &models.ImportResult{
		Success:   true,
		TotalRows: len(rows),
	}
	imageColumns := imageURLColumns(headers)

	for _, row := range rows {
		rowNum, _ := strconv.Atoi(row["_row"])
		var delta rowDelta
		if err := s.store.WithTransaction(func(tx repository.CatalogStore) error {
			d, err := s.processRow(tx, row, imageColumns)
			if err != nil {
				return err
			}
			delta = *d
			return nil
		}); err != nil {
			var rowErr *models.ImportRowError
			if !errors.As(err, &rowErr) {
				rowErr = &models.ImportRowError{Row: rowNum, Message: err.Error()}
			}
			result.Success = false
			result.Error = rowErr
			s.logger.WithFields(logrus.Fields{
				"row":    rowErr.Row,
				"column": rowErr.Column,
				"error":  rowErr.Message,
			}).Warn("Import aborted on row failure")
			break
		}
		result.RowsProcessed++
		result.ProductsCreated += delta.productsCreated
		result.ProductsSkipped += delta.productsSkipped
		result.CategoriesCreated += delta.categoriesCreated
		result.VariantsCreated += delta.variantsCreated
		result.ImagesCreated += delta.imagesCreated
	}

	s.logger.WithFields(logrus.Fields{
		"total_rows":         result.TotalRows,
		"rows_processed":     result.RowsProcessed,
		"products_created":   result.ProductsCreated,
		"products_skipped":   result.ProductsSkipped,
		"categories_created": result.CategoriesCreated,
		"variants_created":   result.VariantsCreated,
		"images_created":     result.ImagesCreated,
		"success":            result.Success,
	}).Info("Product import finished")

	return result, nil
}

// rowDelta collects what one row added; it is merged into the result only
// after the row's transaction commits.
type rowDelta struct {
	productsCreated   int
	productsSkipped   int
	categoriesCreated int
	variantsCreated   int
	imagesCreated     int
}

// processRow applies a single parsed row. Category and product lookups are
// idempotent; an already-existing product short-circuits the row so that
// re-importing the same file changes nothing.
func (s *ImportService) processRow(tx repository.CatalogStore, row map[string]string, imageColumns []string) (*rowDelta, error) {
	rowNum, _ := strconv.Atoi(row["_row"])
	delta := &rowDelta{}

	productName := strings.TrimSpace(row["product_name"])
	if productName == "" {
		// Older export schemas name this column "name"
		productName = strings.TrimSpace(row["name"])
	}
	if productName == "" {
		return nil, &models.ImportRowError{Row: rowNum, Column: "product_name", Message: "product_name is required"}
	}

	var categoryID *uuid.UUID
	if categoryName := strings.TrimSpace(row["category"]); categoryName != "" {
		category, created, err := tx.GetOrCreateCategory(categoryName)
		if err != nil {
			return nil, &models.ImportRowError{Row: rowNum, Column: "category", Message: err.Error()}
		}
		if created {
			delta.categoriesCreated++
		}
		categoryID = &category.ID
	}

	if _, err := parseOptionalPrice(row["mrp"]); err != nil {
		return nil, &models.ImportRowError{Row: rowNum, Column: "mrp", Message: err.Error()}
	}
	if _, err := parseOptionalPrice(row["selling_price"]); err != nil {
		return nil, &models.ImportRowError{Row: rowNum, Column: "selling_price", Message: err.Error()}
	}
	stock, err := parseOptionalInt(row["stock"])
	if err != nil {
		return nil, &models.ImportRowError{Row: rowNum, Column: "stock", Message: err.Error()}
	}

	defaults := models.ProductDefaults{
		Description:  optionalString(row["description"]),
		MRP:          optionalString(row["mrp"]),
		SellingPrice: optionalString(row["selling_price"]),
		Stock:        stock,
	}

	product, created, err := tx.GetOrCreateProduct(productName, categoryID, defaults)
	if err != nil {
		return nil, &models.ImportRowError{Row: rowNum, Column: "product_name", Message: err.Error()}
	}
	if !created {
		// The product already exists: leave it untouched and skip its
		// variant and image columns so re-imports change nothing.
		delta.productsSkipped++
		return delta, nil
	}
	delta.productsCreated++

	sku := optionalString(row["sku"])
	size := optionalString(row["size"])
	color := optionalString(row["color"])
	if sku != nil || size != nil || color != nil {
		variant := &models.ProductVariant{
			SKU:          sku,
			Size:         size,
			Color:        color,
			SellingPrice: optionalString(row["selling_price"]),
			Stock:        stock,
			ImageURL:     optionalString(row["image_url"]),
		}
		if err := tx.CreateVariant(product.ID, variant); err != nil {
			return nil, &models.ImportRowError{Row: rowNum, Column: "sku", Message: err.Error()}
		}
		delta.variantsCreated++
	}

	for _, column := range imageColumns {
		url := strings.TrimSpace(row[column])
		if url == "" {
			continue
		}
		image := &models.ProductImage{
			ProductID: product.ID,
			ImageURL:  &url,
		}
		if err := tx.CreateProductImage(image); err != nil {
			return nil, &models.ImportRowError{Row: rowNum, Column: column, Message: err.Error()}
		}
		delta.imagesCreated++
	}

	return delta, nil
}

// parseCSV reads CSV data into row maps keyed by lowercased, trimmed header
// names. Each map carries its original 1-based file row under "_row" for
// error reporting.
func parseCSV(reader io.Reader) ([]string, []map[string]string, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true

	headerRecord, err := csvReader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header row: %w", err)
	}
	headers := normalizeHeaders(headerRecord)

	var rows []map[string]string
	rowNum := 1
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read row %d: %w", rowNum+1, err)
		}
		rowNum++

		row := make(map[string]string)
		for i, value := range record {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(value)
			}
		}
		row["_row"] = strconv.Itoa(rowNum)
		rows = append(rows, row)
	}

	return headers, rows, nil
}

// parseXLSX reads the first sheet of an XLSX workbook into the same row-map
// shape as parseCSV.
func parseXLSX(reader io.Reader) ([]string, []map[string]string, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("sheet is empty")
	}

	headers := normalizeHeaders(records[0])
	var rows []map[string]string
	for i, record := range records[1:] {
		row := make(map[string]string)
		for j, value := range record {
			if j < len(headers) {
				row[headers[j]] = strings.TrimSpace(value)
			}
		}
		row["_row"] = strconv.Itoa(i + 2)
		rows = append(rows, row)
	}

	return headers, rows, nil
}

// normalizeHeaders lowercases and trims header names and strips the " *"
// required marker that the downloadable templates append, so a filled-in
// template round-trips through the importer.
func normalizeHeaders(record []string) []string {
	headers := make([]string, len(record))
	for i, h := range record {
		h = strings.TrimSuffix(strings.TrimSpace(h), " *")
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return headers
}

// imageURLColumns returns the image_url-family headers in the order they
// appear in the file; column position decides image order.
func imageURLColumns(headers []string) []string {
	var columns []string
	for _, h := range headers {
		if h == "image_url" || strings.HasPrefix(h, "image_url_") {
			columns = append(columns, h)
		}
	}
	return columns
}

// optionalString returns nil for empty or whitespace-only values
func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// parseOptionalInt treats an empty cell as zero and rejects anything that is
// not a whole number.
func parseOptionalInt(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("'%s' is not a valid integer", trimmed)
	}
	if n < 0 {
		return 0, fmt.Errorf("'%s' must not be negative", trimmed)
	}
	return n, nil
}

// parseOptionalPrice validates a price cell without converting it; prices
// are stored as strings to avoid float rounding. Negatives and non-finite
// values are rejected along with unparseable text.
func parseOptionalPrice(value string) (*string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if err := models.ValidatePrice(trimmed); err != nil {
		return nil, fmt.Errorf("'%s' is not a valid price", trimmed)
	}
	return &trimmed, nil
}
