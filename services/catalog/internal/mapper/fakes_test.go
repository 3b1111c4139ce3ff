package mapper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/marketplace/pkg/errors"
	"github.com/utafrali/marketplace/services/catalog/internal/domain"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeTaxonomy struct {
	attributes []domain.AttributeTaxonomy
	terms      []domain.Term
	failWith   error
}

func newFakeTaxonomy() *fakeTaxonomy {
	return &fakeTaxonomy{
		attributes: []domain.AttributeTaxonomy{
			{ID: 1, Name: "pa_color", Label: "Color"},
			{ID: 2, Name: "pa_size", Label: "Size"},
		},
		terms: []domain.Term{
			{ID: 5, Taxonomy: domain.TaxonomyCategory, Name: "Shirts", Slug: "shirts"},
			{ID: 6, Taxonomy: domain.TaxonomyCategory, Name: "Sale", Slug: "sale"},
			{ID: 9, Taxonomy: domain.TaxonomyTag, Name: "Cotton", Slug: "cotton"},
			{ID: 20, Taxonomy: domain.TaxonomyShippingClass, Name: "Bulky", Slug: "bulky"},
			{ID: 31, Taxonomy: "pa_color", Name: "Dark Blue", Slug: "dark-blue"},
			{ID: 32, Taxonomy: "pa_color", Name: "Red", Slug: "red"},
			{ID: 41, Taxonomy: "pa_size", Name: "Large", Slug: "l"},
		},
	}
}

func (f *fakeTaxonomy) AttributeTaxonomy(_ context.Context, id int64) (*domain.AttributeTaxonomy, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, a := range f.attributes {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, apperrors.NotFound("attribute taxonomy", fmt.Sprint(id))
}

func (f *fakeTaxonomy) AttributeTaxonomyByName(_ context.Context, name string) (*domain.AttributeTaxonomy, error) {
	for _, a := range f.attributes {
		if a.Name == name {
			return &a, nil
		}
	}
	return nil, apperrors.NotFound("attribute taxonomy", name)
}

func (f *fakeTaxonomy) find(match func(domain.Term) bool) (*domain.Term, error) {
	for _, t := range f.terms {
		if match(t) {
			return &t, nil
		}
	}
	return nil, apperrors.NotFound("term", "")
}

func (f *fakeTaxonomy) Term(_ context.Context, id int64) (*domain.Term, error) {
	return f.find(func(t domain.Term) bool { return t.ID == id })
}

func (f *fakeTaxonomy) TermByName(_ context.Context, taxonomy, name string) (*domain.Term, error) {
	return f.find(func(t domain.Term) bool { return t.Taxonomy == taxonomy && t.Name == name })
}

func (f *fakeTaxonomy) TermBySlug(_ context.Context, taxonomy, slug string) (*domain.Term, error) {
	return f.find(func(t domain.Term) bool { return t.Taxonomy == taxonomy && t.Slug == slug })
}

func (f *fakeTaxonomy) Terms(_ context.Context, ids []int64) ([]domain.Term, error) {
	var out []domain.Term
	for _, id := range ids {
		if t, err := f.find(func(t domain.Term) bool { return t.ID == id }); err == nil {
			out = append(out, *t)
		}
	}
	return out, nil
}

type fakeMedia struct {
	assets     map[int64]*domain.Asset
	nextID     int64
	failSrc    map[string]error
	sideloaded []string
	updates    map[int64]domain.AssetUpdate
}

func newFakeMedia() *fakeMedia {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return &fakeMedia{
		assets: map[int64]*domain.Asset{
			100: {ID: 100, URL: "https://cdn.example.com/a.jpg", Title: "A", MimeType: "image/jpeg", CreatedAt: created, ModifiedAt: created},
			101: {ID: 101, URL: "https://cdn.example.com/b.png", Title: "B", MimeType: "image/png", CreatedAt: created, ModifiedAt: created},
			102: {ID: 102, URL: "https://cdn.example.com/c.webp", Title: "C", MimeType: "image/webp", CreatedAt: created, ModifiedAt: created},
			200: {ID: 200, URL: "https://cdn.example.com/manual.pdf", MimeType: "application/pdf"},
		},
		nextID:  500,
		failSrc: map[string]error{},
		updates: map[int64]domain.AssetUpdate{},
	}
}

func (f *fakeMedia) Sideload(_ context.Context, owner int64, src string) (int64, error) {
	if err, ok := f.failSrc[src]; ok {
		return 0, err
	}
	f.nextID++
	f.assets[f.nextID] = &domain.Asset{ID: f.nextID, SellerID: owner, URL: src, MimeType: "image/jpeg", SourceURL: src}
	f.sideloaded = append(f.sideloaded, src)
	return f.nextID, nil
}

func (f *fakeMedia) Asset(_ context.Context, id int64) (*domain.Asset, error) {
	a, ok := f.assets[id]
	if !ok {
		return nil, apperrors.NotFound("asset", fmt.Sprint(id))
	}
	return a, nil
}

func (f *fakeMedia) UpdateAsset(_ context.Context, id int64, u domain.AssetUpdate) error {
	a, ok := f.assets[id]
	if !ok {
		return apperrors.NotFound("asset", fmt.Sprint(id))
	}
	u.Apply(a)
	f.updates[id] = u
	return nil
}

type fakeCatalog struct {
	products map[int64]*domain.Product
	related  []int64
}

func (f *fakeCatalog) Product(_ context.Context, id int64) (*domain.Product, error) {
	if p, ok := f.products[id]; ok {
		return p, nil
	}
	return nil, apperrors.NotFound("product", fmt.Sprint(id))
}

func (f *fakeCatalog) RelatedIDs(context.Context, *domain.Product, int) ([]int64, error) {
	return f.related, nil
}

type fixture struct {
	tax     *fakeTaxonomy
	media   *fakeMedia
	catalog *fakeCatalog
	mapper  *Mapper
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{
		tax:     newFakeTaxonomy(),
		media:   newFakeMedia(),
		catalog: &fakeCatalog{products: map[int64]*domain.Product{}},
	}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	f.mapper = New(f.tax, f.media, f.catalog, opts...)
	return f
}

func payload(t *testing.T, raw string) *Payload {
	t.Helper()
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	return &p
}

func settings() domain.StoreSettings {
	s := domain.DefaultStoreSettings()
	s.BaseURL = "https://shop.example.com"
	s.PlaceholderImageURL = "https://shop.example.com/placeholder.png"
	return s
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	require.Equal(t, code, appErr.Code)
}
