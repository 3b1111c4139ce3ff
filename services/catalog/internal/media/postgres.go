package media

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/marketplace/pkg/database"
	apperrors "github.com/utafrali/marketplace/pkg/errors"
	"github.com/utafrali/marketplace/services/catalog/internal/domain"
)

// AssetRepository persists media assets in PostgreSQL.
type AssetRepository struct {
	db database.DBTX
}

// NewAssetRepository creates a new PostgreSQL-backed asset repository.
func NewAssetRepository(db database.DBTX) *AssetRepository {
	return &AssetRepository{db: db}
}

// Create inserts a and sets its generated ID.
func (r *AssetRepository) Create(ctx context.Context, a *domain.Asset) (err error) {
	query := `
		INSERT INTO media_assets (seller_id, url, storage_key, title, alt, mime_type, source_url, size, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	ctx, end := database.TraceQuery(ctx, "media_assets.create", query)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, query,
		a.SellerID,
		a.URL,
		a.StorageKey,
		a.Title,
		a.Alt,
		a.MimeType,
		a.SourceURL,
		a.Size,
		a.CreatedAt,
		a.ModifiedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert media asset: %w", err)
	}
	return nil
}

// GetByID returns the asset with the given id.
func (r *AssetRepository) GetByID(ctx context.Context, id int64) (_ *domain.Asset, err error) {
	query := `
		SELECT id, seller_id, url, storage_key, title, alt, mime_type, source_url, size, created_at, modified_at
		FROM media_assets
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "media_assets.get", query)
	defer func() { end(err) }()

	var a domain.Asset
	err = r.db.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.SellerID,
		&a.URL,
		&a.StorageKey,
		&a.Title,
		&a.Alt,
		&a.MimeType,
		&a.SourceURL,
		&a.Size,
		&a.CreatedAt,
		&a.ModifiedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("media asset", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("scan media asset: %w", err)
	}
	return &a, nil
}

// Update writes the editable metadata of a.
func (r *AssetRepository) Update(ctx context.Context, a *domain.Asset) (err error) {
	query := `
		UPDATE media_assets
		SET title = $1, alt = $2, source_url = $3, modified_at = $4
		WHERE id = $5`

	ctx, end := database.TraceQuery(ctx, "media_assets.update", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, a.Title, a.Alt, a.SourceURL, a.ModifiedAt, a.ID)
	if err != nil {
		return fmt.Errorf("update media asset: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("media asset", strconv.FormatInt(a.ID, 10))
	}
	return nil
}
