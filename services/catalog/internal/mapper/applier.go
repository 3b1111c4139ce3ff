package mapper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/marketplace/pkg/errors"
	"github.com/utafrali/marketplace/pkg/optional"
	"github.com/utafrali/marketplace/pkg/sanitize"
	"github.com/utafrali/marketplace/pkg/slug"
	"github.com/utafrali/marketplace/services/catalog/internal/domain"
)

// Date layouts accepted for sale window boundaries.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Apply returns a copy of existing with every field present in p applied.
// existing is never modified; nil means a blank simple product. When creating
// is true the payload must carry a name and at least one category.
//
// Apply validates but never persists. Image entries sent by URL are sideloaded
// into the media library and asset metadata is updated as a side effect.
func (m *Mapper) Apply(ctx context.Context, settings domain.StoreSettings, existing *domain.Product, p *Payload, creating bool) (*domain.Product, error) {
	if creating {
		if strings.TrimSpace(p.Name.OrElse("")) == "" {
			return nil, apperrors.Validation(apperrors.CodeProductNameRequired, "product name is required")
		}
		if len(p.Categories.OrElse(nil)) == 0 {
			return nil, apperrors.Validation(apperrors.CodeProductCategoryRequired, "product category is required")
		}
	}
	if cats, ok := p.Categories.Get(); ok && settings.SingleCategory() && len(cats) > 1 {
		return nil, apperrors.Validation(apperrors.CodeTooManyCategories, "a product can belong to only one category")
	}

	if existing != nil && existing.Kind() == domain.KindVariation {
		return nil, apperrors.Validation(apperrors.CodeVariationNotAllowed,
			"product variations cannot be managed through the products resource")
	}
	prod := resolveKind(existing, p)
	if prod.Kind() == domain.KindVariation {
		return nil, apperrors.Validation(apperrors.CodeVariationNotAllowed,
			"product variations cannot be managed through the products resource")
	}

	a := &applier{Mapper: m, ctx: ctx, settings: settings, in: p, prod: prod}
	steps := []func() error{
		a.content,
		a.shipping,
		a.attributes,
		a.pricing,
		a.inventory,
		a.links,
		a.terms,
		a.downloads,
		a.kindFields,
		a.images,
		a.meta,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	prod.Commerce().ComputePrice(m.now())
	if prod.Slug == "" && prod.Name != "" {
		prod.Slug = slug.Generate(sanitize.Plain(prod.Name))
	}
	return prod, nil
}

func resolveKind(existing *domain.Product, p *Payload) *domain.Product {
	base := existing
	if base == nil {
		base = domain.New(domain.KindSimple)
	}
	t, ok := p.Type.Get()
	if !ok {
		return base.Clone()
	}
	kind, known := domain.ParseKind(t)
	if !known {
		kind = domain.KindSimple
	}
	return base.ConvertTo(kind)
}

type applier struct {
	*Mapper
	ctx      context.Context
	settings domain.StoreSettings
	in       *Payload
	prod     *domain.Product
}

func (a *applier) content() error {
	p, in := a.prod, a.in

	if v, ok := in.Name.Get(); ok {
		p.Name = sanitize.RichText(v)
	}
	if v, ok := in.Description.Get(); ok {
		p.Description = sanitize.RichText(v)
	}
	if v, ok := in.ShortDescription.Get(); ok {
		p.ShortDescription = sanitize.RichText(v)
	}
	if v, ok := in.Status.Get(); ok {
		p.Status = domain.ParseStatus(v)
	}
	if v, ok := in.Slug.Get(); ok {
		p.Slug = slug.Generate(v)
	}
	if v, ok := in.MenuOrder.Get(); ok {
		p.MenuOrder = v
	}
	if v, ok := in.ReviewsAllowed.Get(); ok {
		p.ReviewsAllowed = v
	}
	if v, ok := in.Virtual.Get(); ok {
		p.Commerce().Virtual = v
	}
	if v, ok := in.TaxStatus.Get(); ok {
		ts := domain.TaxStatus(v)
		if !ts.Valid() {
			return apperrors.Validation(apperrors.CodeInvalidTaxStatus, "invalid product tax status: "+v)
		}
		p.Commerce().TaxStatus = ts
	}
	if v, ok := in.TaxClass.Get(); ok {
		p.Commerce().TaxClass = slug.Generate(sanitize.Plain(v))
	}
	if v, ok := in.CatalogVisibility.Get(); ok {
		cv := domain.CatalogVisibility(v)
		if !cv.Valid() {
			return apperrors.Validation(apperrors.CodeInvalidCatalogVisibility, "invalid catalog visibility option: "+v)
		}
		p.CatalogVisibility = cv
	}
	if v, ok := in.PurchaseNote.Get(); ok {
		p.PurchaseNote = sanitize.Plain(v)
	}
	if v, ok := in.Featured.Get(); ok {
		p.Featured = v
	}
	return nil
}

func (a *applier) shipping() error {
	c, in := a.prod.Commerce(), a.in

	if in.Virtual.OrElse(false) {
		c.Weight = ""
		c.Dimensions = domain.Dimensions{}
	} else {
		if v, ok := in.Weight.Get(); ok {
			c.Weight = strings.TrimSpace(v)
		}
		if d, ok := in.Dimensions.Get(); ok {
			if v, ok := d.Height.Get(); ok {
				c.Dimensions.Height = strings.TrimSpace(v)
			}
			if v, ok := d.Width.Get(); ok {
				c.Dimensions.Width = strings.TrimSpace(v)
			}
			if v, ok := d.Length.Get(); ok {
				c.Dimensions.Length = strings.TrimSpace(v)
			}
		}
	}

	if v, ok := in.ShippingClass.Get(); ok {
		c.ShippingClassID = 0
		if s := sanitize.Plain(v); s != "" {
			term, err := a.taxonomy.TermBySlug(a.ctx, domain.TaxonomyShippingClass, s)
			switch {
			case err == nil:
				c.ShippingClassID = term.ID
			case !errors.Is(err, apperrors.ErrNotFound):
				return err
			}
		}
	}

	if v, ok := in.SKU.Get(); ok {
		c.SKU = sanitize.Plain(v)
	}
	return nil
}

func (a *applier) attributes() error {
	raw, ok := a.in.Attributes.Get()
	if !ok {
		return nil
	}
	attrs, err := a.normalizeAttributes(a.ctx, raw)
	if err != nil {
		return err
	}
	a.prod.Attributes = attrs
	return nil
}

// pricingVisitor clears prices owned by children on variable and grouped products
// and applies payload prices to every other kind.
type pricingVisitor struct {
	a   *applier
	err error
}

func (v *pricingVisitor) VisitSimple(d *domain.Simple)       { v.err = v.a.prices(&d.Commerce) }
func (v *pricingVisitor) VisitExternal(d *domain.External)   { v.err = v.a.prices(&d.Commerce) }
func (v *pricingVisitor) VisitVariation(d *domain.Variation) { v.err = v.a.prices(&d.Commerce) }
func (v *pricingVisitor) VisitVariable(d *domain.Variable)   { d.ClearPricing() }
func (v *pricingVisitor) VisitGrouped(d *domain.Grouped)     { d.ClearPricing() }

func (a *applier) pricing() error {
	v := &pricingVisitor{a: a}
	a.prod.Details.Accept(v)
	return v.err
}

func (a *applier) prices(c *domain.Commerce) error {
	in := a.in
	if v, ok := in.RegularPrice.Get(); ok {
		price, err := parsePrice("regular_price", v)
		if err != nil {
			return err
		}
		c.RegularPrice = price
	}
	if v, ok := in.SalePrice.Get(); ok {
		price, err := parsePrice("sale_price", v)
		if err != nil {
			return err
		}
		c.SalePrice = price
	}

	// The UTC variant of each boundary is applied after the local one and
	// wins when both are sent.
	loc := a.settings.Loc()
	boundaries := []struct {
		field string
		value optional.Value[string]
		loc   *time.Location
		dst   **time.Time
	}{
		{"date_on_sale_from", in.DateOnSaleFrom, loc, &c.SaleFrom},
		{"date_on_sale_from_gmt", in.DateOnSaleFromGMT, time.UTC, &c.SaleFrom},
		{"date_on_sale_to", in.DateOnSaleTo, loc, &c.SaleTo},
		{"date_on_sale_to_gmt", in.DateOnSaleToGMT, time.UTC, &c.SaleTo},
	}
	for _, b := range boundaries {
		v, ok := b.value.Get()
		if !ok {
			continue
		}
		t, err := parseDate(b.field, v, b.loc)
		if err != nil {
			return err
		}
		*b.dst = t
	}
	return nil
}

func (a *applier) inventory() error {
	in := a.in
	stock := StockInput{
		InStock:        in.InStock,
		ManageStock:    in.ManageStock,
		StockQuantity:  in.StockQuantity,
		InventoryDelta: in.InventoryDelta,
	}
	if v, ok := in.Backorders.Get(); ok {
		b := domain.Backorders(v)
		if !b.Valid() {
			return apperrors.Validation(apperrors.CodeInvalidBackorders, "invalid backorders option: "+v)
		}
		stock.Backorders = optional.Some(b)
	}

	c := a.prod.Commerce()
	if v, ok := in.ParentID.Get(); ok {
		c.ParentID = max(v, 0)
	}
	if v, ok := in.SoldIndividually.Get(); ok {
		c.SoldIndividually = v
	}

	ResolveStock(a.settings, a.prod, stock)
	return nil
}

func (a *applier) links() error {
	c := a.prod.Commerce()
	if ids, ok := a.in.UpsellIDs.Get(); ok {
		c.UpsellIDs = positiveIDs(ids)
	}
	if ids, ok := a.in.CrossSellIDs.Get(); ok {
		c.CrossSellIDs = positiveIDs(ids)
	}
	return nil
}

func (a *applier) terms() error {
	if refs, ok := a.in.Categories.Get(); ok {
		a.prod.CategoryIDs = termIDs(refs)
	}
	if refs, ok := a.in.Tags.Get(); ok {
		a.prod.TagIDs = termIDs(refs)
	}
	return nil
}

func (a *applier) downloads() error {
	c, in := a.prod.Commerce(), a.in
	if v, ok := in.Downloadable.Get(); ok {
		c.Downloadable = v
	}
	if !c.Downloadable {
		return nil
	}

	if files, ok := in.Downloads.Get(); ok {
		downloads := make([]domain.Download, 0, len(files))
		for _, f := range files {
			file := strings.TrimSpace(f.File)
			if file == "" {
				continue
			}
			downloads = append(downloads, domain.NewDownload(sanitize.Plain(f.Name), file))
		}
		c.Downloads = downloads
	}
	if v, ok := in.DownloadLimit.Get(); ok {
		c.DownloadLimit = downloadBound(v)
	}
	if v, ok := in.DownloadExpiry.Get(); ok {
		c.DownloadExpiry = downloadBound(v)
	}
	return nil
}

// kindFieldsVisitor applies the fields only one kind stores.
type kindFieldsVisitor struct {
	a   *applier
	err error
}

func (v *kindFieldsVisitor) VisitSimple(*domain.Simple)       {}
func (v *kindFieldsVisitor) VisitVariation(*domain.Variation) {}

func (v *kindFieldsVisitor) VisitExternal(d *domain.External) {
	if s, ok := v.a.in.ExternalURL.Get(); ok {
		d.URL = strings.TrimSpace(s)
	}
	if s, ok := v.a.in.ButtonText.Get(); ok {
		d.ButtonText = sanitize.Plain(s)
	}
}

func (v *kindFieldsVisitor) VisitVariable(d *domain.Variable) {
	raw, ok := v.a.in.DefaultAttributes.Get()
	if !ok {
		return
	}
	defaults, err := v.a.normalizeDefaultAttributes(v.a.ctx, v.a.prod, raw)
	if err != nil {
		v.err = err
		return
	}
	d.DefaultAttributes = defaults
}

func (v *kindFieldsVisitor) VisitGrouped(d *domain.Grouped) {
	if ids, ok := v.a.in.GroupedProducts.Get(); ok {
		d.Children = childIDs(ids)
	}
}

func (a *applier) kindFields() error {
	v := &kindFieldsVisitor{a: a}
	a.prod.Details.Accept(v)
	return v.err
}

func (a *applier) images() error {
	imgs, ok := a.in.Images.Get()
	if !ok {
		return nil
	}
	return a.assignImages(a.ctx, a.prod, imgs)
}

// isNullJSON reports whether v is absent or the JSON literal null.
func isNullJSON(v []byte) bool {
	v = bytes.TrimSpace(v)
	return len(v) == 0 || bytes.Equal(v, []byte("null"))
}

func (a *applier) meta() error {
	entries, ok := a.in.MetaData.Get()
	if !ok {
		return nil
	}
	for _, e := range entries {
		if e.Key == "" || isNullJSON(e.Value) {
			continue
		}
		a.prod.UpsertMeta(e.ID, e.Key, e.Value)
	}
	return nil
}

// parsePrice accepts "" to clear or a non-negative decimal.
func parsePrice(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return "", apperrors.Validation(apperrors.CodeInvalidPrice,
			fmt.Sprintf("%s must be a non-negative decimal", field))
	}
	return s, nil
}

// parseDate reads s in loc unless it carries its own offset. "" clears the
// boundary.
func parseDate(field, s string, loc *time.Location) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			u := t.UTC()
			return &u, nil
		}
	}
	return nil, apperrors.Validation(apperrors.CodeInvalidDate, fmt.Sprintf("%s is not a valid date", field))
}

func positiveIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			out = append(out, id)
		}
	}
	return out
}

func termIDs(refs []TermRef) []int64 {
	out := make([]int64, len(refs))
	for i, r := range refs {
		out[i] = r.ID
	}
	return out
}

func childIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id < 0 {
			id = -id
		}
		if id != 0 && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// downloadBound maps -1 to unlimited and any other value to its magnitude.
func downloadBound(n int) int {
	if n == -1 {
		return -1
	}
	return abs(n)
}
