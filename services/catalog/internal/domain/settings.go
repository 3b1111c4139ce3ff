package domain

import "time"

// CategoryMode restricts how many categories a product may have.
type CategoryMode string

const (
	CategoryModeSingle   CategoryMode = "single"
	CategoryModeMultiple CategoryMode = "multiple"
)

// StoreSettings is the store-wide configuration the mapper reads. It is passed
// explicitly to every call.
type StoreSettings struct {
	ManageStock         bool
	CategoryMode        CategoryMode
	Location            *time.Location
	BaseURL             string
	PlaceholderImageURL string
	CurrencySymbol      string
	PriceDecimals       int32
}

// DefaultStoreSettings returns settings for a store in UTC with stock
// management on and a single category per product.
func DefaultStoreSettings() StoreSettings {
	return StoreSettings{
		ManageStock:         true,
		CategoryMode:        CategoryModeSingle,
		Location:            time.UTC,
		BaseURL:             "http://localhost:8080",
		PlaceholderImageURL: "http://localhost:8080/assets/placeholder.png",
		CurrencySymbol:      "$",
		PriceDecimals:       2,
	}
}

// Loc returns the store location, UTC when unset.
func (s StoreSettings) Loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// SingleCategory reports whether products are limited to one category.
func (s StoreSettings) SingleCategory() bool {
	return s.CategoryMode == CategoryModeSingle
}
