package mapper

import (
	"context"

	"github.com/utafrali/marketplace/services/catalog/internal/domain"
)

// Taxonomy resolves attribute taxonomies and terms. Lookups that find nothing
// return an error wrapping apperrors.ErrNotFound.
type Taxonomy interface {
	AttributeTaxonomy(ctx context.Context, id int64) (*domain.AttributeTaxonomy, error)
	AttributeTaxonomyByName(ctx context.Context, name string) (*domain.AttributeTaxonomy, error)
	Term(ctx context.Context, id int64) (*domain.Term, error)
	TermByName(ctx context.Context, taxonomy, name string) (*domain.Term, error)
	TermBySlug(ctx context.Context, taxonomy, slug string) (*domain.Term, error)
	Terms(ctx context.Context, ids []int64) ([]domain.Term, error)
}

// Media registers remote images and reads or updates managed assets.
type Media interface {
	// Sideload fetches src and registers it as a new asset owned by owner.
	Sideload(ctx context.Context, owner int64, src string) (int64, error)
	Asset(ctx context.Context, id int64) (*domain.Asset, error)
	UpdateAsset(ctx context.Context, id int64, u domain.AssetUpdate) error
}

// Catalog reads other products: a variation's parent and related products.
type Catalog interface {
	Product(ctx context.Context, id int64) (*domain.Product, error)
	RelatedIDs(ctx context.Context, p *domain.Product, limit int) ([]int64, error)
}

// UploadErrorPolicy decides whether a failed image sideload skips the image
// instead of failing the request.
type UploadErrorPolicy func(p *domain.Product, src string, err error) bool

// NeverSuppress fails the request on every sideload error.
func NeverSuppress(*domain.Product, string, error) bool { return false }

// AlwaysSuppress skips every image that fails to sideload.
func AlwaysSuppress(*domain.Product, string, error) bool { return true }
