package mapper

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	apperrors "github.com/utafrali/marketplace/pkg/errors"
	"github.com/utafrali/marketplace/pkg/sanitize"
	"github.com/utafrali/marketplace/services/catalog/internal/domain"
)

// Context selects how a product is rendered.
type Context string

const (
	// ContextView renders descriptions as HTML and formats the rating.
	ContextView Context = "view"
	// ContextEdit returns stored values unchanged.
	ContextEdit Context = "edit"
)

// ParseContext returns the context named s, view when s is empty or unknown.
func ParseContext(s string) Context {
	if Context(s) == ContextEdit {
		return ContextEdit
	}
	return ContextView
}

// relatedLimit caps related_ids.
const relatedLimit = 5

// Record is the wire representation of a product. Every field is emitted for
// every kind.
type Record struct {
	ID                int64                    `json:"id"`
	Name              string                   `json:"name"`
	Slug              string                   `json:"slug"`
	PostAuthor        int64                    `json:"post_author"`
	Permalink         string                   `json:"permalink"`
	DateCreated       *string                  `json:"date_created"`
	DateCreatedGMT    *string                  `json:"date_created_gmt"`
	DateModified      *string                  `json:"date_modified"`
	DateModifiedGMT   *string                  `json:"date_modified_gmt"`
	Type              domain.Kind              `json:"type"`
	Status            domain.Status            `json:"status"`
	Featured          bool                     `json:"featured"`
	CatalogVisibility domain.CatalogVisibility `json:"catalog_visibility"`
	Description       string                   `json:"description"`
	ShortDescription  string                   `json:"short_description"`
	SKU               string                   `json:"sku"`
	Price             string                   `json:"price"`
	RegularPrice      string                   `json:"regular_price"`
	SalePrice         string                   `json:"sale_price"`
	DateOnSaleFrom    *string                  `json:"date_on_sale_from"`
	DateOnSaleFromGMT *string                  `json:"date_on_sale_from_gmt"`
	DateOnSaleTo      *string                  `json:"date_on_sale_to"`
	DateOnSaleToGMT   *string                  `json:"date_on_sale_to_gmt"`
	PriceHTML         string                   `json:"price_html"`
	OnSale            bool                     `json:"on_sale"`
	Purchasable       bool                     `json:"purchasable"`
	TotalSales        int                      `json:"total_sales"`
	Virtual           bool                     `json:"virtual"`
	Downloadable      bool                     `json:"downloadable"`
	Downloads         []domain.Download        `json:"downloads"`
	DownloadLimit     int                      `json:"download_limit"`
	DownloadExpiry    int                      `json:"download_expiry"`
	ExternalURL       string                   `json:"external_url"`
	ButtonText        string                   `json:"button_text"`
	TaxStatus         domain.TaxStatus         `json:"tax_status"`
	TaxClass          string                   `json:"tax_class"`
	ManageStock       bool                     `json:"manage_stock"`
	StockQuantity     *int                     `json:"stock_quantity"`
	InStock           bool                     `json:"in_stock"`
	Backorders        domain.Backorders        `json:"backorders"`
	BackordersAllowed bool                     `json:"backorders_allowed"`
	Backordered       bool                     `json:"backordered"`
	SoldIndividually  bool                     `json:"sold_individually"`
	Weight            string                   `json:"weight"`
	Dimensions        domain.Dimensions        `json:"dimensions"`
	ShippingRequired  bool                     `json:"shipping_required"`
	ShippingTaxable   bool                     `json:"shipping_taxable"`
	ShippingClass     string                   `json:"shipping_class"`
	ShippingClassID   int64                    `json:"shipping_class_id"`
	ReviewsAllowed    bool                     `json:"reviews_allowed"`
	AverageRating     string                   `json:"average_rating"`
	RatingCount       int                      `json:"rating_count"`
	RelatedIDs        []int64                  `json:"related_ids"`
	UpsellIDs         []int64                  `json:"upsell_ids"`
	CrossSellIDs      []int64                  `json:"cross_sell_ids"`
	ParentID          int64                    `json:"parent_id"`
	PurchaseNote      string                   `json:"purchase_note"`
	Categories        []TermRecord             `json:"categories"`
	Tags              []TermRecord             `json:"tags"`
	Images            []ImageRecord            `json:"images"`
	Attributes        []AttributeRecord        `json:"attributes"`
	DefaultAttributes []DefaultAttributeRecord `json:"default_attributes"`
	Variations        []int64                  `json:"variations"`
	GroupedProducts   []int64                  `json:"grouped_products"`
	MenuOrder         int                      `json:"menu_order"`
	MetaData          []domain.MetaEntry       `json:"meta_data"`
}

// TermRecord is a category or tag.
type TermRecord struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ImageRecord is one product image. Position is the index in the combined
// primary and gallery list.
type ImageRecord struct {
	ID              int64   `json:"id"`
	DateCreated     *string `json:"date_created"`
	DateCreatedGMT  *string `json:"date_created_gmt"`
	DateModified    *string `json:"date_modified"`
	DateModifiedGMT *string `json:"date_modified_gmt"`
	Src             string  `json:"src"`
	Name            string  `json:"name"`
	Alt             string  `json:"alt"`
	Position        int     `json:"position"`
}

// AttributeRecord is an attribute definition, or for a variation the option
// it selects. Definition fields are omitted on variation selections.
type AttributeRecord struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Position  *int     `json:"position,omitzero"`
	Visible   *bool    `json:"visible,omitzero"`
	Variation *bool    `json:"variation,omitzero"`
	Options   []string `json:"options,omitzero"`
	Option    string   `json:"option,omitzero"`
}

// DefaultAttributeRecord is a variable product's preselected option.
type DefaultAttributeRecord struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Option string `json:"option"`
}

// Project renders p. It never modifies p.
func (m *Mapper) Project(ctx context.Context, settings domain.StoreSettings, p *domain.Product, view Context) (*Record, error) {
	c := p.Commerce()
	loc := settings.Loc()
	now := m.now()
	onSale := p.OnSale(now)

	r := &Record{
		ID:                p.ID,
		Name:              p.Name,
		Slug:              p.Slug,
		PostAuthor:        p.SellerID,
		Permalink:         permalink(settings, p),
		DateCreated:       formatTime(p.CreatedAt, loc),
		DateCreatedGMT:    formatTime(p.CreatedAt, time.UTC),
		DateModified:      formatTime(p.ModifiedAt, loc),
		DateModifiedGMT:   formatTime(p.ModifiedAt, time.UTC),
		Type:              p.Kind(),
		Status:            p.Status,
		Featured:          p.Featured,
		CatalogVisibility: p.CatalogVisibility,
		Description:       p.Description,
		ShortDescription:  p.ShortDescription,
		SKU:               c.SKU,
		Price:             c.Price,
		RegularPrice:      c.RegularPrice,
		SalePrice:         c.SalePrice,
		DateOnSaleFrom:    formatDate(c.SaleFrom, loc),
		DateOnSaleFromGMT: formatDate(c.SaleFrom, time.UTC),
		DateOnSaleTo:      formatDate(c.SaleTo, loc),
		DateOnSaleToGMT:   formatDate(c.SaleTo, time.UTC),
		PriceHTML:         priceHTML(settings, c, onSale),
		OnSale:            onSale,
		TotalSales:        p.TotalSales,
		Virtual:           c.Virtual,
		Downloadable:      c.Downloadable,
		Downloads:         []domain.Download{},
		DownloadLimit:     c.DownloadLimit,
		DownloadExpiry:    c.DownloadExpiry,
		TaxStatus:         c.TaxStatus,
		TaxClass:          c.TaxClass,
		ManageStock:       c.ManageStock,
		StockQuantity:     c.StockQuantity,
		InStock:           c.StockStatus != domain.StockOutOfStock,
		Backorders:        c.Backorders,
		BackordersAllowed: c.Backorders == domain.BackordersYes || c.Backorders == domain.BackordersNotify,
		Backordered:       c.StockStatus == domain.StockOnBackorder,
		SoldIndividually:  c.SoldIndividually,
		Weight:            c.Weight,
		Dimensions:        c.Dimensions,
		ShippingClassID:   c.ShippingClassID,
		ReviewsAllowed:    p.ReviewsAllowed,
		AverageRating:     p.AverageRating.String(),
		RatingCount:       p.RatingCount,
		UpsellIDs:         nonNil(c.UpsellIDs),
		CrossSellIDs:      nonNil(c.CrossSellIDs),
		ParentID:          c.ParentID,
		PurchaseNote:      p.PurchaseNote,
		DefaultAttributes: []DefaultAttributeRecord{},
		Variations:        []int64{},
		GroupedProducts:   []int64{},
		MenuOrder:         p.MenuOrder,
		MetaData:          slices.Clone(p.Meta),
	}
	if r.MetaData == nil {
		r.MetaData = []domain.MetaEntry{}
	}
	if c.Downloadable {
		r.Downloads = nonNil(c.Downloads)
	}

	if view == ContextView {
		r.Description = autop(p.Description)
		r.ShortDescription = autop(p.ShortDescription)
		r.PurchaseNote = autop(sanitize.RichText(p.PurchaseNote))
		r.AverageRating = p.AverageRating.StringFixed(2)
	}

	var err error
	if r.ShippingClass, err = m.shippingClassSlug(ctx, c.ShippingClassID); err != nil {
		return nil, err
	}
	if r.Categories, err = m.termRecords(ctx, p.CategoryIDs); err != nil {
		return nil, err
	}
	if r.Tags, err = m.termRecords(ctx, p.TagIDs); err != nil {
		return nil, err
	}
	if r.Images, err = m.imageRecords(ctx, settings, p); err != nil {
		return nil, err
	}
	if r.RelatedIDs, err = m.relatedIDs(ctx, p); err != nil {
		return nil, err
	}

	kv := &projectionVisitor{m: m, ctx: ctx, p: p, r: r}
	p.Details.Accept(kv)
	if kv.err != nil {
		return nil, kv.err
	}
	return r, nil
}

// projectionVisitor fills the kind-dependent part of a record.
type projectionVisitor struct {
	m   *Mapper
	ctx context.Context
	p   *domain.Product
	r   *Record
	err error
}

func (v *projectionVisitor) VisitSimple(d *domain.Simple) {
	v.r.Purchasable = d.Price != ""
	v.r.ShippingRequired = !d.Virtual
	v.finishShipping(&d.Commerce)
	v.r.Attributes, v.err = v.m.attributeRecords(v.ctx, v.p)
}

func (v *projectionVisitor) VisitVariable(d *domain.Variable) {
	v.r.Purchasable = d.Price != ""
	v.r.ShippingRequired = !d.Virtual
	v.finishShipping(&d.Commerce)
	if v.r.Attributes, v.err = v.m.attributeRecords(v.ctx, v.p); v.err != nil {
		return
	}
	v.r.DefaultAttributes, v.err = v.m.defaultAttributeRecords(v.ctx, v.p, d.DefaultAttributes)
}

func (v *projectionVisitor) VisitGrouped(d *domain.Grouped) {
	v.r.GroupedProducts = nonNil(d.Children)
	v.r.Attributes, v.err = v.m.attributeRecords(v.ctx, v.p)
}

func (v *projectionVisitor) VisitExternal(d *domain.External) {
	v.r.ExternalURL = d.URL
	v.r.ButtonText = d.ButtonText
	v.r.Attributes, v.err = v.m.attributeRecords(v.ctx, v.p)
}

func (v *projectionVisitor) VisitVariation(d *domain.Variation) {
	v.r.Purchasable = d.Price != ""
	v.r.ShippingRequired = !d.Virtual
	v.finishShipping(&d.Commerce)
	v.r.Attributes, v.err = v.m.variationAttributeRecords(v.ctx, d)
}

func (v *projectionVisitor) finishShipping(c *domain.Commerce) {
	v.r.ShippingTaxable = v.r.ShippingRequired &&
		(c.TaxStatus == domain.TaxStatusTaxable || c.TaxStatus == domain.TaxStatusShipping)
}

func permalink(settings domain.StoreSettings, p *domain.Product) string {
	base := strings.TrimRight(settings.BaseURL, "/")
	if p.Slug == "" {
		return fmt.Sprintf("%s/?p=%d", base, p.ID)
	}
	return base + "/product/" + p.Slug + "/"
}

func (m *Mapper) shippingClassSlug(ctx context.Context, id int64) (string, error) {
	if id == 0 {
		return "", nil
	}
	term, err := m.taxonomy.Term(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return term.Slug, nil
}

func (m *Mapper) termRecords(ctx context.Context, ids []int64) ([]TermRecord, error) {
	out := []TermRecord{}
	if len(ids) == 0 {
		return out, nil
	}
	terms, err := m.taxonomy.Terms(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, t := range terms {
		out = append(out, TermRecord{ID: t.ID, Name: t.Name, Slug: t.Slug})
	}
	return out, nil
}

func (m *Mapper) relatedIDs(ctx context.Context, p *domain.Product) ([]int64, error) {
	if p.ID == 0 {
		return []int64{}, nil
	}
	ids, err := m.catalog.RelatedIDs(ctx, p, relatedLimit)
	if err != nil {
		return nil, err
	}
	return nonNil(ids), nil
}

// imageRecords lists the primary image then the gallery. Assets that no longer
// exist are skipped without renumbering. A product without images gets a
// placeholder.
func (m *Mapper) imageRecords(ctx context.Context, settings domain.StoreSettings, p *domain.Product) ([]ImageRecord, error) {
	loc := settings.Loc()
	ids := make([]int64, 0, len(p.GalleryImageIDs)+1)
	if p.ImageID != 0 {
		ids = append(ids, p.ImageID)
	}
	ids = append(ids, p.GalleryImageIDs...)

	images := make([]ImageRecord, 0, len(ids))
	for pos, id := range ids {
		asset, err := m.media.Asset(ctx, id)
		if errors.Is(err, apperrors.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		images = append(images, ImageRecord{
			ID:              asset.ID,
			DateCreated:     formatTime(asset.CreatedAt, loc),
			DateCreatedGMT:  formatTime(asset.CreatedAt, time.UTC),
			DateModified:    formatTime(asset.ModifiedAt, loc),
			DateModifiedGMT: formatTime(asset.ModifiedAt, time.UTC),
			Src:             asset.URL,
			Name:            asset.Title,
			Alt:             asset.Alt,
			Position:        pos,
		})
	}

	if len(images) == 0 {
		now := m.now()
		images = append(images, ImageRecord{
			DateCreated:     formatTime(now, loc),
			DateCreatedGMT:  formatTime(now, time.UTC),
			DateModified:    formatTime(now, loc),
			DateModifiedGMT: formatTime(now, time.UTC),
			Src:             settings.PlaceholderImageURL,
			Name:            "Placeholder",
			Alt:             "Placeholder",
		})
	}
	return images, nil
}

func (m *Mapper) attributeRecords(ctx context.Context, p *domain.Product) ([]AttributeRecord, error) {
	out := make([]AttributeRecord, 0, len(p.Attributes))
	for _, a := range p.Attributes {
		name, err := m.attributeLabel(ctx, a.Key(), p)
		if err != nil {
			return nil, err
		}
		options := slices.Clone(a.Options)
		if a.IsTaxonomy() {
			if options, err = m.termNames(ctx, a.Name, a.Options); err != nil {
				return nil, err
			}
		}
		if options == nil {
			options = []string{}
		}
		out = append(out, AttributeRecord{
			ID:        a.TaxonomyID,
			Name:      name,
			Position:  &a.Position,
			Visible:   &a.Visible,
			Variation: &a.Variation,
			Options:   options,
		})
	}
	return out, nil
}

// variationAttributeRecords pairs the parent's variation attributes with the
// options the variation selects. Taxonomy options are shown by term name,
// falling back to the stored slug.
func (m *Mapper) variationAttributeRecords(ctx context.Context, d *domain.Variation) ([]AttributeRecord, error) {
	parent, err := m.catalog.Product(ctx, d.ParentID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	keys := make([]string, 0, len(d.Selected))
	if parent != nil {
		for _, a := range parent.Attributes {
			if _, ok := d.Selected[a.Key()]; ok {
				keys = append(keys, a.Key())
			}
		}
	}
	for k := range d.Selected {
		if !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	if parent == nil {
		slices.Sort(keys)
	}

	out := make([]AttributeRecord, 0, len(keys))
	for _, key := range keys {
		value := d.Selected[key]
		if value == "" {
			continue
		}
		name, err := m.attributeLabel(ctx, key, parent)
		if err != nil {
			return nil, err
		}
		rec := AttributeRecord{Name: name, Option: value}
		if isTaxonomyKey(key) {
			if rec.ID, err = m.attributeTaxonomyID(ctx, key); err != nil {
				return nil, err
			}
			if rec.Option, err = m.termName(ctx, key, value); err != nil {
				return nil, err
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *Mapper) defaultAttributeRecords(ctx context.Context, p *domain.Product, defaults []domain.DefaultAttribute) ([]DefaultAttributeRecord, error) {
	out := make([]DefaultAttributeRecord, 0, len(defaults))
	for _, d := range defaults {
		if d.Option == "" {
			continue
		}
		name, err := m.attributeLabel(ctx, d.Name, p)
		if err != nil {
			return nil, err
		}
		rec := DefaultAttributeRecord{Name: name, Option: d.Option}
		if isTaxonomyKey(d.Name) {
			if rec.ID, err = m.attributeTaxonomyID(ctx, d.Name); err != nil {
				return nil, err
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// attributeLabel returns the display name of the attribute with key on p: the
// taxonomy label, the custom name, or the key without its taxonomy prefix when
// p has no such attribute.
func (m *Mapper) attributeLabel(ctx context.Context, key string, p *domain.Product) (string, error) {
	if p == nil {
		return strings.TrimPrefix(key, taxonomyPrefix), nil
	}
	a, ok := p.FindAttribute(key)
	if !ok {
		return strings.TrimPrefix(key, taxonomyPrefix), nil
	}
	if !a.IsTaxonomy() {
		return a.Name, nil
	}
	tax, err := m.taxonomy.AttributeTaxonomy(ctx, a.TaxonomyID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return strings.TrimPrefix(key, taxonomyPrefix), nil
	}
	if err != nil {
		return "", err
	}
	return tax.Label, nil
}

func (m *Mapper) attributeTaxonomyID(ctx context.Context, name string) (int64, error) {
	tax, err := m.taxonomy.AttributeTaxonomyByName(ctx, name)
	if errors.Is(err, apperrors.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return tax.ID, nil
}

func (m *Mapper) termNames(ctx context.Context, taxonomy string, slugs []string) ([]string, error) {
	names := make([]string, 0, len(slugs))
	for _, s := range slugs {
		name, err := m.termName(ctx, taxonomy, s)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// termName resolves a term slug to its name, or returns the slug when the term
// does not exist.
func (m *Mapper) termName(ctx context.Context, taxonomy, slug string) (string, error) {
	term, err := m.taxonomy.TermBySlug(ctx, taxonomy, slug)
	if errors.Is(err, apperrors.ErrNotFound) {
		return slug, nil
	}
	if err != nil {
		return "", err
	}
	return term.Name, nil
}

// taxonomyPrefix marks attribute keys backed by a global taxonomy.
const taxonomyPrefix = "pa_"

func isTaxonomyKey(key string) bool {
	return strings.HasPrefix(key, taxonomyPrefix)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return slices.Clone(s)
}
