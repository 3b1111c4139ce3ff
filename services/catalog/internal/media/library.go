// Package media sideloads remote images into the seller media library and
// manages asset metadata.
package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/marketplace/services/catalog/internal/domain"
	"github.com/utafrali/marketplace/services/catalog/internal/media/storage"
)

var sideloadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_image_sideloads_total",
		Help: "Remote image sideloads by result",
	},
	[]string{"result"},
)

// AssetStore persists asset records.
type AssetStore interface {
	Create(ctx context.Context, a *domain.Asset) error
	GetByID(ctx context.Context, id int64) (*domain.Asset, error)
	Update(ctx context.Context, a *domain.Asset) error
}

// Library implements the media collaborator used by the product mapper.
type Library struct {
	fetcher *Fetcher
	storage storage.Storage
	assets  AssetStore
	now     func() time.Time
	logger  *slog.Logger
}

// NewLibrary creates a media library.
func NewLibrary(fetcher *Fetcher, store storage.Storage, assets AssetStore, logger *slog.Logger) *Library {
	return &Library{
		fetcher: fetcher,
		storage: store,
		assets:  assets,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger,
	}
}

// Sideload downloads src, stores it and records a new asset owned by owner.
// The stored object is removed again when the record cannot be saved.
func (l *Library) Sideload(ctx context.Context, owner int64, src string) (int64, error) {
	remote, err := l.fetcher.Fetch(ctx, src)
	if err != nil {
		sideloadsTotal.WithLabelValues("fetch_error").Inc()
		return 0, err
	}

	key := fmt.Sprintf("sellers/%d/%s-%s", owner, uuid.NewString(), remote.FileName)
	result, err := l.storage.Upload(ctx, &storage.UploadInput{
		Key:         key,
		ContentType: remote.MimeType,
		Size:        int64(len(remote.Data)),
		Data:        bytes.NewReader(remote.Data),
	})
	if err != nil {
		sideloadsTotal.WithLabelValues("storage_error").Inc()
		return 0, fmt.Errorf("upload to storage: %w", err)
	}

	now := l.now()
	asset := &domain.Asset{
		SellerID:   owner,
		URL:        result.URL,
		StorageKey: result.Key,
		Title:      strings.TrimSuffix(remote.FileName, path.Ext(remote.FileName)),
		MimeType:   remote.MimeType,
		SourceURL:  src,
		Size:       int64(len(remote.Data)),
		CreatedAt:  now,
		ModifiedAt: now,
	}

	if err := l.assets.Create(ctx, asset); err != nil {
		if delErr := l.storage.Delete(ctx, result.Key); delErr != nil {
			l.logger.ErrorContext(ctx, "failed to clean up storage after db error",
				slog.String("key", result.Key),
				slog.String("error", delErr.Error()),
			)
		}
		sideloadsTotal.WithLabelValues("db_error").Inc()
		return 0, fmt.Errorf("create media asset: %w", err)
	}

	sideloadsTotal.WithLabelValues("success").Inc()
	l.logger.InfoContext(ctx, "image sideloaded",
		slog.Int64("asset_id", asset.ID),
		slog.Int64("seller_id", owner),
		slog.String("mime_type", asset.MimeType),
		slog.Int64("size", asset.Size),
	)
	return asset.ID, nil
}

// Asset returns the asset with the given id.
func (l *Library) Asset(ctx context.Context, id int64) (*domain.Asset, error) {
	return l.assets.GetByID(ctx, id)
}

// UpdateAsset applies u to the asset's metadata.
func (l *Library) UpdateAsset(ctx context.Context, id int64, u domain.AssetUpdate) error {
	if u.Empty() {
		return nil
	}

	a, err := l.assets.GetByID(ctx, id)
	if err != nil {
		return err
	}
	u.Apply(a)
	a.ModifiedAt = l.now()

	if err := l.assets.Update(ctx, a); err != nil {
		return fmt.Errorf("update media asset: %w", err)
	}
	return nil
}
