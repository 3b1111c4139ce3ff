package domain

import (
	"slices"

	"github.com/utafrali/marketplace/pkg/slug"
)

// Term taxonomies.
const (
	TaxonomyCategory      = "product_cat"
	TaxonomyTag           = "product_tag"
	TaxonomyShippingClass = "product_shipping_class"
)

// Attribute is a product attribute. TaxonomyID is non-zero for a
// taxonomy-backed attribute, whose Name is the taxonomy name (pa_color) and
// whose Options are term slugs. Custom attributes carry the name and options
// as the seller typed them.
type Attribute struct {
	TaxonomyID int64    `json:"taxonomy_id"`
	Name       string   `json:"name"`
	Options    []string `json:"options"`
	Position   int      `json:"position"`
	Visible    bool     `json:"visible"`
	Variation  bool     `json:"variation"`
}

// IsTaxonomy reports whether a is backed by a global attribute taxonomy.
func (a Attribute) IsTaxonomy() bool {
	return a.TaxonomyID > 0
}

// Key identifies a within a product. Variations and default attributes refer
// to attributes by key.
func (a Attribute) Key() string {
	if a.IsTaxonomy() {
		return a.Name
	}
	return slug.Generate(a.Name)
}

func (a Attribute) Clone() Attribute {
	a.Options = slices.Clone(a.Options)
	return a
}

// FindAttribute returns the attribute of p with the given key.
func (p *Product) FindAttribute(key string) (Attribute, bool) {
	for _, a := range p.Attributes {
		if a.Key() == key {
			return a, true
		}
	}
	return Attribute{}, false
}

// DefaultAttribute preselects Option for the attribute with key Name on a
// variable product's form.
type DefaultAttribute struct {
	Name   string `json:"name"`
	Option string `json:"option"`
}

// AttributeTaxonomy is a store-wide attribute such as Color. Name is the
// taxonomy name (pa_color), Label is for display.
type AttributeTaxonomy struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Label string `json:"label"`
}

// Term is a value in a taxonomy: a category, tag, shipping class or an
// attribute option.
type Term struct {
	ID       int64  `json:"id"`
	Taxonomy string `json:"taxonomy"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
}
