package mapper

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/utafrali/marketplace/pkg/optional"
	"github.com/utafrali/marketplace/pkg/validator"
)

// OptionDelimiter separates attribute options sent as a single string.
const OptionDelimiter = "|"

// Payload is a partial product write. Each field is applied only when present
// with a non-null value; absent and null fields leave the product untouched.
type Payload struct {
	Type               optional.Value[string]                  `json:"type,omitzero"`
	Name               optional.Value[string]                  `json:"name,omitzero"`
	Slug               optional.Value[string]                  `json:"slug,omitzero"`
	Description        optional.Value[string]                  `json:"description,omitzero"`
	ShortDescription   optional.Value[string]                  `json:"short_description,omitzero"`
	Status             optional.Value[string]                  `json:"status,omitzero"`
	MenuOrder          optional.Value[int]                     `json:"menu_order,omitzero"`
	ReviewsAllowed     optional.Value[bool]                    `json:"reviews_allowed,omitzero"`
	Virtual            optional.Value[bool]                    `json:"virtual,omitzero"`
	TaxStatus          optional.Value[string]                  `json:"tax_status,omitzero"`
	TaxClass           optional.Value[string]                  `json:"tax_class,omitzero"`
	CatalogVisibility  optional.Value[string]                  `json:"catalog_visibility,omitzero"`
	PurchaseNote       optional.Value[string]                  `json:"purchase_note,omitzero"`
	Featured           optional.Value[bool]                    `json:"featured,omitzero"`
	Weight             optional.Value[string]                  `json:"weight,omitzero"`
	Dimensions         optional.Value[DimensionsInput]         `json:"dimensions,omitzero"`
	ShippingClass      optional.Value[string]                  `json:"shipping_class,omitzero"`
	SKU                optional.Value[string]                  `json:"sku,omitzero"`
	Attributes         optional.Value[[]AttributeInput]        `json:"attributes,omitzero"`
	RegularPrice       optional.Value[string]                  `json:"regular_price,omitzero"`
	SalePrice          optional.Value[string]                  `json:"sale_price,omitzero"`
	DateOnSaleFrom     optional.Value[string]                  `json:"date_on_sale_from,omitzero"`
	DateOnSaleFromGMT  optional.Value[string]                  `json:"date_on_sale_from_gmt,omitzero"`
	DateOnSaleTo       optional.Value[string]                  `json:"date_on_sale_to,omitzero"`
	DateOnSaleToGMT    optional.Value[string]                  `json:"date_on_sale_to_gmt,omitzero"`
	ParentID           optional.Value[int64]                   `json:"parent_id,omitzero"`
	SoldIndividually   optional.Value[bool]                    `json:"sold_individually,omitzero"`
	InStock            optional.Value[bool]                    `json:"in_stock,omitzero"`
	ManageStock        optional.Value[bool]                    `json:"manage_stock,omitzero"`
	Backorders         optional.Value[string]                  `json:"backorders,omitzero"`
	StockQuantity      optional.Value[int]                     `json:"stock_quantity,omitzero"`
	InventoryDelta     optional.Value[int]                     `json:"inventory_delta,omitzero"`
	UpsellIDs          optional.Value[[]int64]                 `json:"upsell_ids,omitzero"`
	CrossSellIDs       optional.Value[[]int64]                 `json:"cross_sell_ids,omitzero"`
	Categories         optional.Value[[]TermRef]               `json:"categories,omitzero"`
	Tags               optional.Value[[]TermRef]               `json:"tags,omitzero"`
	Downloadable       optional.Value[bool]                    `json:"downloadable,omitzero"`
	Downloads          optional.Value[[]DownloadInput]         `json:"downloads,omitzero"`
	DownloadLimit      optional.Value[int]                     `json:"download_limit,omitzero"`
	DownloadExpiry     optional.Value[int]                     `json:"download_expiry,omitzero"`
	ExternalURL        optional.Value[string]                  `json:"external_url,omitzero"`
	ButtonText         optional.Value[string]                  `json:"button_text,omitzero"`
	DefaultAttributes  optional.Value[[]DefaultAttributeInput] `json:"default_attributes,omitzero"`
	GroupedProducts    optional.Value[[]int64]                 `json:"grouped_products,omitzero"`
	Images             optional.Value[[]ImageInput]            `json:"images,omitzero"`
	MetaData           optional.Value[[]MetaInput]             `json:"meta_data,omitzero"`
}

// DimensionsInput is a partial dimensions object.
type DimensionsInput struct {
	Length optional.Value[string] `json:"length,omitzero"`
	Width  optional.Value[string] `json:"width,omitzero"`
	Height optional.Value[string] `json:"height,omitzero"`
}

// TermRef points at a category or tag by id.
type TermRef struct {
	ID int64 `json:"id"`
}

// AttributeInput is one entry of the attributes list. ID selects a global
// attribute taxonomy; Name alone defines a custom attribute.
type AttributeInput struct {
	ID        int64                      `json:"id"`
	Name      string                     `json:"name"`
	Position  int                        `json:"position"`
	Visible   bool                       `json:"visible"`
	Variation bool                       `json:"variation"`
	Options   optional.Value[OptionList] `json:"options,omitzero"`
}

// DefaultAttributeInput preselects Option for the attribute named by ID or Name.
type DefaultAttributeInput struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Option string `json:"option"`
}

// ImageInput references an existing asset by ID or a remote Src to sideload.
type ImageInput struct {
	ID       int64               `json:"id"`
	Src      string              `json:"src"`
	Name     string              `json:"name"`
	Alt      string              `json:"alt"`
	Position optional.Value[int] `json:"position,omitzero"`
}

// IsEmpty reports whether the entry carries nothing at all.
func (i ImageInput) IsEmpty() bool {
	return i.ID == 0 && i.Src == "" && i.Name == "" && i.Alt == "" && !i.Position.IsSet()
}

// DownloadInput is one downloadable file.
type DownloadInput struct {
	Name string `json:"name"`
	File string `json:"file"`
}

// MetaInput updates the meta entry with ID, or appends one when ID is zero or
// unknown.
type MetaInput struct {
	ID    int64           `json:"id"`
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// OptionList accepts either a JSON array of strings or one string with options
// separated by OptionDelimiter.
type OptionList []string

func (o *OptionList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*o = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("options must be a string or a list of strings")
	}
	*o = strings.Split(s, OptionDelimiter)
	return nil
}

type imageCheck struct {
	Src string `validate:"omitempty,url"`
}

type dimensionsCheck struct {
	Length string `validate:"price"`
	Width  string `validate:"price"`
	Height string `validate:"price"`
}

type payloadCheck struct {
	ExternalURL string `validate:"omitempty,url"`
	Weight      string `validate:"price"`
	Dimensions  dimensionsCheck
	Images      []imageCheck `validate:"dive"`
}

// Validate checks the formats of URL and measurement fields. Business rules
// are enforced by Apply.
func (p *Payload) Validate() error {
	c := payloadCheck{
		ExternalURL: p.ExternalURL.OrElse(""),
		Weight:      p.Weight.OrElse(""),
	}
	if d, ok := p.Dimensions.Get(); ok {
		c.Dimensions = dimensionsCheck{
			Length: d.Length.OrElse(""),
			Width:  d.Width.OrElse(""),
			Height: d.Height.OrElse(""),
		}
	}
	for _, img := range p.Images.OrElse(nil) {
		c.Images = append(c.Images, imageCheck{Src: img.Src})
	}
	return validator.Validate(c)
}
