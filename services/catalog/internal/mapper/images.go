package mapper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/utafrali/marketplace/pkg/errors"
	"github.com/utafrali/marketplace/pkg/sanitize"
	"github.com/utafrali/marketplace/services/catalog/internal/domain"
)

// assignImages resolves images into the primary image and the gallery of p.
// An empty list clears both. The first entry sent with position 0 becomes the
// primary image; every other entry goes to the gallery in payload order. When
// no entry has position 0 the primary image is kept.
func (m *Mapper) assignImages(ctx context.Context, p *domain.Product, images []ImageInput) error {
	entries := make([]ImageInput, 0, len(images))
	for _, img := range images {
		if !img.IsEmpty() {
			entries = append(entries, img)
		}
	}

	if len(entries) == 0 {
		p.ImageID = 0
		p.GalleryImageIDs = []int64{}
		return nil
	}

	gallery := make([]int64, 0, len(entries))
	primarySet := false

	for _, img := range entries {
		id := img.ID
		if id < 0 {
			id = -id
		}

		if id == 0 && img.Src != "" {
			sideloaded, err := m.media.Sideload(ctx, p.SellerID, img.Src)
			if err != nil {
				if m.suppressUpload(p, img.Src, err) {
					m.logger.WarnContext(ctx, "skipping image that failed to upload",
						slog.String("src", img.Src),
						slog.String("error", err.Error()),
					)
					continue
				}
				return apperrors.ImageFailure(apperrors.CodeImageUploadFailed,
					fmt.Sprintf("error getting remote image %s", img.Src), err)
			}
			id = sideloaded
		}

		if err := m.checkImage(ctx, id); err != nil {
			return err
		}

		if pos, ok := img.Position.Get(); ok && pos == 0 && !primarySet {
			p.ImageID = id
			primarySet = true
		} else {
			gallery = append(gallery, id)
		}

		if err := m.updateAssetMeta(ctx, id, img); err != nil {
			return err
		}
	}

	p.GalleryImageIDs = gallery
	return nil
}

func (m *Mapper) checkImage(ctx context.Context, id int64) error {
	invalid := func(cause error) error {
		return apperrors.ImageFailure(apperrors.CodeInvalidImageID,
			fmt.Sprintf("#%d is an invalid image ID.", id), cause)
	}
	if id == 0 {
		return invalid(nil)
	}
	asset, err := m.media.Asset(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return invalid(err)
	}
	if err != nil {
		return err
	}
	if !asset.IsImage() {
		return invalid(nil)
	}
	return nil
}

func (m *Mapper) updateAssetMeta(ctx context.Context, id int64, img ImageInput) error {
	var u domain.AssetUpdate
	if alt := sanitize.Plain(img.Alt); alt != "" {
		u.Alt = &alt
	}
	if img.Name != "" {
		name := img.Name
		u.Title = &name
	}
	if img.Src != "" {
		src := img.Src
		u.SourceURL = &src
	}
	if u.Empty() {
		return nil
	}
	return m.media.UpdateAsset(ctx, id, u)
}
