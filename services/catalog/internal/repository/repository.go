package repository

import (
	"context"

	"github.com/utafrali/marketplace/services/catalog/internal/domain"
)

// ProductFilter defines filter criteria for listing a seller's products.
type ProductFilter struct {
	SellerID int64
	Statuses []domain.Status
	Limit    int
	Offset   int
}

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	// Create inserts a new product and sets its ID.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id int64) (*domain.Product, error)

	// ListBySeller returns products matching the filter, newest first, along
	// with the total number of matches.
	ListBySeller(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error)

	// Update overwrites an existing product.
	Update(ctx context.Context, product *domain.Product) error

	// Delete removes a product permanently.
	Delete(ctx context.Context, id int64) error

	// RelatedIDs returns up to limit published products of the same seller
	// sharing a category or tag with p.
	RelatedIDs(ctx context.Context, p *domain.Product, limit int) ([]int64, error)
}

// StoreRepository reads seller storefronts.
type StoreRepository interface {
	// Exists reports whether sellerID has an enabled store.
	Exists(ctx context.Context, sellerID int64) (bool, error)
}
