package models

import "fmt"

// ImportFormat represents the file format for import
type ImportFormat string

const (
	ImportFormatCSV  ImportFormat = "csv"
	ImportFormatXLSX ImportFormat = "xlsx"
)

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"` // string, number
	Example     string `json:"example"`
}

// ImportTemplate defines the structure of an import template
type ImportTemplate struct {
	Entity  string                 `json:"entity"`
	Version string                 `json:"version"`
	Columns []ImportTemplateColumn `json:"columns"`
}

// ImportRowError reports the row at which an import was aborted
type ImportRowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

func (e *ImportRowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column %s: %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ImportResult summarizes a completed or aborted import. Rows written before
// a failing row stay written; Error is set only when the import aborted.
type ImportResult struct {
	Success           bool            `json:"success"`
	TotalRows         int             `json:"totalRows"`
	RowsProcessed     int             `json:"rowsProcessed"`
	ProductsCreated   int             `json:"productsCreated"`
	ProductsSkipped   int             `json:"productsSkipped"`
	CategoriesCreated int             `json:"categoriesCreated"`
	VariantsCreated   int             `json:"variantsCreated"`
	ImagesCreated     int             `json:"imagesCreated"`
	Error             *ImportRowError `json:"error,omitempty"`
}

// ImportResponse wraps an import result for the HTTP surface
type ImportResponse struct {
	Success bool          `json:"success"`
	Data    *ImportResult `json:"data"`
	Message *string       `json:"message,omitempty"`
}

// ProductImportColumns returns the column definitions for product import
func ProductImportColumns() []ImportTemplateColumn {
	return []ImportTemplateColumn{
		{Name: "product_name", Description: "Product name ('name' is accepted as an alias)", Required: true, Type: "string", Example: "Runner"},
		{Name: "category", Description: "Category name - auto-creates if not exists; leave empty for a category-less product", Required: false, Type: "string", Example: "Shoes"},
		{Name: "description", Description: "Product description", Required: false, Type: "string", Example: ""},
		{Name: "mrp", Description: "Maximum retail price", Required: false, Type: "number", Example: "50.00"},
		{Name: "selling_price", Description: "Selling price", Required: false, Type: "number", Example: "40.00"},
		{Name: "stock", Description: "Initial stock quantity (defaults to 0)", Required: false, Type: "number", Example: "10"},
		{Name: "sku", Description: "Variant SKU - any of sku/size/color creates a variant", Required: false, Type: "string", Example: "SKU1"},
		{Name: "size", Description: "Variant size", Required: false, Type: "string", Example: "42"},
		{Name: "color", Description: "Variant color", Required: false, Type: "string", Example: "Blue"},
		{Name: "image_url", Description: "Product image URL - add image_url_2, image_url_3, ... for more images", Required: false, Type: "string", Example: "http://example.com/img.png"},
	}
}

// ProductImportTemplate returns the template definition for products
func ProductImportTemplate() ImportTemplate {
	return ImportTemplate{
		Entity:  "products",
		Version: "1.0",
		Columns: ProductImportColumns(),
	}
}
