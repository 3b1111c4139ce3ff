package domain

import (
	"maps"
	"slices"
	"time"
)

// Kind is the product type.
type Kind string

const (
	KindSimple    Kind = "simple"
	KindVariable  Kind = "variable"
	KindGrouped   Kind = "grouped"
	KindExternal  Kind = "external"
	KindVariation Kind = "variation"
)

// ParseKind reports the kind named s. Unknown names report false.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindSimple, KindVariable, KindGrouped, KindExternal, KindVariation:
		return k, true
	}
	return "", false
}

// Details holds the kind-specific part of a product. The set of
// implementations is closed; use Accept with a Visitor to branch on kind so
// that adding a kind breaks every switch that must handle it.
type Details interface {
	Kind() Kind
	Base() *Commerce
	Accept(v Visitor)
	clone() Details
}

// Visitor has one method per product kind.
type Visitor interface {
	VisitSimple(d *Simple)
	VisitVariable(d *Variable)
	VisitGrouped(d *Grouped)
	VisitExternal(d *External)
	VisitVariation(d *Variation)
}

// NewDetails returns empty details for kind. Unknown kinds yield Simple.
func NewDetails(kind Kind) Details {
	base := Commerce{
		TaxStatus:      TaxStatusTaxable,
		StockStatus:    StockInStock,
		Backorders:     BackordersNo,
		UpsellIDs:      []int64{},
		CrossSellIDs:   []int64{},
		Downloads:      []Download{},
		DownloadLimit:  -1,
		DownloadExpiry: -1,
	}
	switch kind {
	case KindVariable:
		return &Variable{Commerce: base, DefaultAttributes: []DefaultAttribute{}}
	case KindGrouped:
		return &Grouped{Commerce: base, Children: []int64{}}
	case KindExternal:
		return &External{Commerce: base}
	case KindVariation:
		return &Variation{Commerce: base, Selected: map[string]string{}}
	default:
		return &Simple{Commerce: base}
	}
}

// TaxStatus values.
type TaxStatus string

const (
	TaxStatusTaxable  TaxStatus = "taxable"
	TaxStatusShipping TaxStatus = "shipping"
	TaxStatusNone     TaxStatus = "none"
)

func (t TaxStatus) Valid() bool {
	return t == TaxStatusTaxable || t == TaxStatusShipping || t == TaxStatusNone
}

// StockStatus values.
type StockStatus string

const (
	StockInStock     StockStatus = "instock"
	StockOutOfStock  StockStatus = "outofstock"
	StockOnBackorder StockStatus = "onbackorder"
)

// Backorders is the backorder policy.
type Backorders string

const (
	BackordersNo     Backorders = "no"
	BackordersNotify Backorders = "notify"
	BackordersYes    Backorders = "yes"
)

func (b Backorders) Valid() bool {
	return b == BackordersNo || b == BackordersNotify || b == BackordersYes
}

// Dimensions are decimal strings; "" means unset.
type Dimensions struct {
	Length string `json:"length"`
	Width  string `json:"width"`
	Height string `json:"height"`
}

// Commerce carries the fields every kind stores even when the kind does not
// use them. Prices are decimal strings and "" means unset.
type Commerce struct {
	SKU              string      `json:"sku"`
	RegularPrice     string      `json:"regular_price"`
	SalePrice        string      `json:"sale_price"`
	Price            string      `json:"price"`
	SaleFrom         *time.Time  `json:"sale_from,omitempty"`
	SaleTo           *time.Time  `json:"sale_to,omitempty"`
	TaxStatus        TaxStatus   `json:"tax_status"`
	TaxClass         string      `json:"tax_class"`
	Virtual          bool        `json:"virtual"`
	Weight           string      `json:"weight"`
	Dimensions       Dimensions  `json:"dimensions"`
	ShippingClassID  int64       `json:"shipping_class_id"`
	ManageStock      bool        `json:"manage_stock"`
	StockQuantity    *int        `json:"stock_quantity,omitempty"`
	StockStatus      StockStatus `json:"stock_status"`
	Backorders       Backorders  `json:"backorders"`
	SoldIndividually bool        `json:"sold_individually"`
	UpsellIDs        []int64     `json:"upsell_ids"`
	CrossSellIDs     []int64     `json:"cross_sell_ids"`
	ParentID         int64       `json:"parent_id"`
	Downloadable     bool        `json:"downloadable"`
	Downloads        []Download  `json:"downloads"`
	DownloadLimit    int         `json:"download_limit"`
	DownloadExpiry   int         `json:"download_expiry"`
}

// Base lets every kind satisfy Details through embedding.
func (c *Commerce) Base() *Commerce { return c }

func (c Commerce) cloneCommerce() Commerce {
	out := c
	out.UpsellIDs = slices.Clone(c.UpsellIDs)
	out.CrossSellIDs = slices.Clone(c.CrossSellIDs)
	out.Downloads = slices.Clone(c.Downloads)
	if c.SaleFrom != nil {
		t := *c.SaleFrom
		out.SaleFrom = &t
	}
	if c.SaleTo != nil {
		t := *c.SaleTo
		out.SaleTo = &t
	}
	if c.StockQuantity != nil {
		q := *c.StockQuantity
		out.StockQuantity = &q
	}
	return out
}

// ClearPricing empties every price field and the sale window.
func (c *Commerce) ClearPricing() {
	c.RegularPrice = ""
	c.SalePrice = ""
	c.Price = ""
	c.SaleFrom = nil
	c.SaleTo = nil
}

// Simple is a standalone purchasable product.
type Simple struct {
	Commerce
}

func (d *Simple) Kind() Kind       { return KindSimple }
func (d *Simple) Accept(v Visitor) { v.VisitSimple(d) }
func (d *Simple) clone() Details   { return &Simple{Commerce: d.cloneCommerce()} }

// Variable is sold through its variations; prices and stock status belong to
// them.
type Variable struct {
	Commerce
	DefaultAttributes []DefaultAttribute `json:"default_attributes"`
}

func (d *Variable) Kind() Kind       { return KindVariable }
func (d *Variable) Accept(v Visitor) { v.VisitVariable(d) }
func (d *Variable) clone() Details {
	return &Variable{Commerce: d.cloneCommerce(), DefaultAttributes: slices.Clone(d.DefaultAttributes)}
}

// Grouped bundles other products.
type Grouped struct {
	Commerce
	Children []int64 `json:"children"`
}

func (d *Grouped) Kind() Kind       { return KindGrouped }
func (d *Grouped) Accept(v Visitor) { v.VisitGrouped(d) }
func (d *Grouped) clone() Details {
	return &Grouped{Commerce: d.cloneCommerce(), Children: slices.Clone(d.Children)}
}

// External links to a product sold elsewhere.
type External struct {
	Commerce
	URL        string `json:"product_url"`
	ButtonText string `json:"button_text"`
}

func (d *External) Kind() Kind       { return KindExternal }
func (d *External) Accept(v Visitor) { v.VisitExternal(d) }
func (d *External) clone() Details {
	return &External{Commerce: d.cloneCommerce(), URL: d.URL, ButtonText: d.ButtonText}
}

// Variation is one option combination of a Variable parent (Commerce.ParentID).
// Selected maps the parent's attribute key to the chosen option slug or value.
type Variation struct {
	Commerce
	Selected map[string]string `json:"selected"`
}

func (d *Variation) Kind() Kind       { return KindVariation }
func (d *Variation) Accept(v Visitor) { v.VisitVariation(d) }
func (d *Variation) clone() Details {
	return &Variation{Commerce: d.cloneCommerce(), Selected: maps.Clone(d.Selected)}
}
