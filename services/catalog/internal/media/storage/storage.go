// Package storage abstracts where sideloaded media bytes are kept.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by Delete for an unknown key.
var ErrObjectNotFound = errors.New("storage object not found")

// Storage keeps the bytes of sideloaded product images. The library deletes
// an uploaded object again when its asset row cannot be written.
type Storage interface {
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
}

// UploadInput is one image to store under Key. Size may be 0 when unknown.
type UploadInput struct {
	Key         string
	ContentType string
	Size        int64
	Data        io.Reader
}

// UploadResult carries the stored key and the public URL the image is served from.
type UploadResult struct {
	Key string
	URL string
}
