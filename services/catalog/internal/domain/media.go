package domain

import (
	"strings"
	"time"
)

// Asset is a media library entry owned by a seller.
type Asset struct {
	ID         int64     `json:"id"`
	SellerID   int64     `json:"seller_id"`
	URL        string    `json:"url"`
	StorageKey string    `json:"storage_key"`
	Title      string    `json:"title"`
	Alt        string    `json:"alt"`
	MimeType   string    `json:"mime_type"`
	SourceURL  string    `json:"source_url"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// IsImage reports whether the asset holds an image.
func (a *Asset) IsImage() bool {
	return strings.HasPrefix(a.MimeType, "image/")
}

// AssetUpdate carries optional metadata changes. Nil fields are left alone.
type AssetUpdate struct {
	Title     *string
	Alt       *string
	SourceURL *string
}

// Empty reports whether u changes nothing.
func (u AssetUpdate) Empty() bool {
	return u.Title == nil && u.Alt == nil && u.SourceURL == nil
}

// Apply copies the set fields of u onto a.
func (u AssetUpdate) Apply(a *Asset) {
	if u.Title != nil {
		a.Title = *u.Title
	}
	if u.Alt != nil {
		a.Alt = *u.Alt
	}
	if u.SourceURL != nil {
		a.SourceURL = *u.SourceURL
	}
}
