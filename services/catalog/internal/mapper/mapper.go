// Package mapper converts between the product wire representation and the
// domain model. Apply turns a partial payload into a validated product,
// Project renders a product for callers.
package mapper

import (
	"log/slog"
	"time"
)

// Mapper holds the collaborators the applier and projector consult. It keeps
// no per-request state and is safe for concurrent use.
type Mapper struct {
	taxonomy       Taxonomy
	media          Media
	catalog        Catalog
	suppressUpload UploadErrorPolicy
	now            func() time.Time
	logger         *slog.Logger
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithUploadErrorPolicy sets the policy consulted when an image sideload fails.
func WithUploadErrorPolicy(p UploadErrorPolicy) Option {
	return func(m *Mapper) { m.suppressUpload = p }
}

// WithClock overrides the time source used for sale windows and placeholders.
func WithClock(now func() time.Time) Option {
	return func(m *Mapper) { m.now = now }
}

// WithLogger sets the logger used for skipped images and lookup fallbacks.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mapper) { m.logger = l }
}

// New creates a Mapper.
func New(taxonomy Taxonomy, media Media, catalog Catalog, opts ...Option) *Mapper {
	m := &Mapper{
		taxonomy:       taxonomy,
		media:          media,
		catalog:        catalog,
		suppressUpload: NeverSuppress,
		now:            time.Now,
		logger:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
