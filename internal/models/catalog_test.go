package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestProductImageValidate(t *testing.T) {
	tests := []struct {
		name    string
		image   *ProductImage
		wantErr error
	}{
		{"uploaded only", &ProductImage{Image: strPtr("uploads/a.png")}, nil},
		{"url only", &ProductImage{ImageURL: strPtr("http://x/a.png")}, nil},
		{"both sources", &ProductImage{Image: strPtr("uploads/a.png"), ImageURL: strPtr("http://x/a.png")}, ErrImageSourceConflict},
		{"neither source", &ProductImage{}, ErrImageSourceMissing},
		{"whitespace counts as empty", &ProductImage{Image: strPtr("  ")}, ErrImageSourceMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.image.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestProductImageSource(t *testing.T) {
	assert.Equal(t, "uploads/a.png", (&ProductImage{Image: strPtr("uploads/a.png")}).ImageSource())
	assert.Equal(t, "http://x/a.png", (&ProductImage{ImageURL: strPtr("http://x/a.png")}).ImageSource())
	assert.Equal(t, "", (&ProductImage{}).ImageSource())
}

func TestReviewValidate(t *testing.T) {
	assert.NoError(t, (&Review{Rating: 1}).Validate())
	assert.NoError(t, (&Review{Rating: 5}).Validate())
	assert.ErrorIs(t, (&Review{Rating: 0}).Validate(), ErrRatingOutOfRange)
	assert.ErrorIs(t, (&Review{Rating: 6}).Validate(), ErrRatingOutOfRange)
	assert.ErrorIs(t, (&Review{Rating: -1}).Validate(), ErrRatingOutOfRange)
}

func TestValidatePrice(t *testing.T) {
	for _, valid := range []string{"0", "50.00", "40", "0.01", " 19.99 "} {
		assert.NoError(t, ValidatePrice(valid), "price %q", valid)
	}
	for _, invalid := range []string{"-5.00", "-0.01", "NaN", "Inf", "-Inf", "not-a-price", ""} {
		assert.ErrorIs(t, ValidatePrice(invalid), ErrInvalidPrice, "price %q", invalid)
	}
}

func TestProductDefaultsValidate(t *testing.T) {
	assert.NoError(t, (&ProductDefaults{Stock: 10}).Validate())
	assert.NoError(t, (&ProductDefaults{MRP: strPtr("50.00"), SellingPrice: strPtr("40.00")}).Validate())
	assert.ErrorIs(t, (&ProductDefaults{MRP: strPtr("-5.00")}).Validate(), ErrInvalidPrice)
	assert.ErrorIs(t, (&ProductDefaults{SellingPrice: strPtr("NaN")}).Validate(), ErrInvalidPrice)
	assert.ErrorIs(t, (&ProductDefaults{Stock: -1}).Validate(), ErrNegativeStock)
}

func TestProductImageURLs(t *testing.T) {
	p := &Product{
		Images: []*ProductImage{
			{Image: strPtr("uploads/a.png")},
			{ImageURL: strPtr("http://x/b.png")},
		},
		Variants: []*ProductVariant{
			{ImageURL: strPtr("http://x/v.png")},
			{},
		},
	}

	assert.Equal(t, []string{"uploads/a.png", "http://x/b.png", "http://x/v.png"}, p.ImageURLs())
}

func TestProductImageURLsEmpty(t *testing.T) {
	p := &Product{}
	assert.Empty(t, p.ImageURLs())
}
