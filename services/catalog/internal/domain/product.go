package domain

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the publication state of a product.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusPending Status = "pending"
	StatusPrivate Status = "private"
	StatusPublish Status = "publish"
	StatusFuture  Status = "future"
	StatusTrash   Status = "trash"
)

var validStatuses = []Status{StatusDraft, StatusPending, StatusPrivate, StatusPublish, StatusFuture, StatusTrash}

// ParseStatus returns the status named s, or draft when s is not a known status.
func ParseStatus(s string) Status {
	if slices.Contains(validStatuses, Status(s)) {
		return Status(s)
	}
	return StatusDraft
}

// ListableStatuses are the statuses a seller sees in their own product list.
func ListableStatuses() []Status {
	return []Status{StatusPublish, StatusPending, StatusDraft}
}

// CatalogVisibility controls where a product is shown in the storefront.
type CatalogVisibility string

const (
	VisibilityVisible CatalogVisibility = "visible"
	VisibilityCatalog CatalogVisibility = "catalog"
	VisibilitySearch  CatalogVisibility = "search"
	VisibilityHidden  CatalogVisibility = "hidden"
)

func (v CatalogVisibility) Valid() bool {
	switch v {
	case VisibilityVisible, VisibilityCatalog, VisibilitySearch, VisibilityHidden:
		return true
	}
	return false
}

// MetaEntry is one free-form metadata row. Keys may repeat; ID addresses a
// single row.
type MetaEntry struct {
	ID    int64           `json:"id"`
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Product is the internal catalog object. Fields shared by every kind live
// here; kind-specific fields live in Details.
type Product struct {
	ID                int64             `json:"id"`
	SellerID          int64             `json:"seller_id"`
	Name              string            `json:"name"`
	Slug              string            `json:"slug"`
	Description       string            `json:"description"`
	ShortDescription  string            `json:"short_description"`
	Status            Status            `json:"status"`
	CatalogVisibility CatalogVisibility `json:"catalog_visibility"`
	Featured          bool              `json:"featured"`
	MenuOrder         int               `json:"menu_order"`
	ReviewsAllowed    bool              `json:"reviews_allowed"`
	PurchaseNote      string            `json:"purchase_note"`
	CategoryIDs       []int64           `json:"category_ids"`
	TagIDs            []int64           `json:"tag_ids"`
	Attributes        []Attribute       `json:"attributes"`
	ImageID           int64             `json:"image_id"`
	GalleryImageIDs   []int64           `json:"gallery_image_ids"`
	Meta              []MetaEntry       `json:"meta"`
	TotalSales        int               `json:"total_sales"`
	AverageRating     decimal.Decimal   `json:"average_rating"`
	RatingCount       int               `json:"rating_count"`
	CreatedAt         time.Time         `json:"created_at"`
	ModifiedAt        time.Time         `json:"modified_at"`

	Details Details `json:"-"`
}

// New returns a blank product of the given kind with storefront defaults.
func New(kind Kind) *Product {
	return &Product{
		Status:            StatusDraft,
		CatalogVisibility: VisibilityVisible,
		ReviewsAllowed:    true,
		CategoryIDs:       []int64{},
		TagIDs:            []int64{},
		Attributes:        []Attribute{},
		GalleryImageIDs:   []int64{},
		Meta:              []MetaEntry{},
		Details:           NewDetails(kind),
	}
}

func (p *Product) Kind() Kind {
	return p.Details.Kind()
}

// Commerce returns the pricing, stock and shipping fields of p.
func (p *Product) Commerce() *Commerce {
	return p.Details.Base()
}

// IsNew reports whether p has not been persisted yet.
func (p *Product) IsNew() bool {
	return p.ID == 0
}

// OwnedBy reports whether sellerID authored p.
func (p *Product) OwnedBy(sellerID int64) bool {
	return sellerID != 0 && p.SellerID == sellerID
}

// Clone returns a deep copy of p.
func (p *Product) Clone() *Product {
	c := *p
	c.CategoryIDs = slices.Clone(p.CategoryIDs)
	c.TagIDs = slices.Clone(p.TagIDs)
	c.GalleryImageIDs = slices.Clone(p.GalleryImageIDs)
	c.Attributes = make([]Attribute, len(p.Attributes))
	for i, a := range p.Attributes {
		c.Attributes[i] = a.Clone()
	}
	c.Meta = make([]MetaEntry, len(p.Meta))
	for i, m := range p.Meta {
		c.Meta[i] = MetaEntry{ID: m.ID, Key: m.Key, Value: slices.Clone(m.Value)}
	}
	if p.Details != nil {
		c.Details = p.Details.clone()
	}
	return &c
}

// ConvertTo returns a copy of p as kind. Shared and commerce fields carry
// over; fields specific to the old kind are dropped.
func (p *Product) ConvertTo(kind Kind) *Product {
	c := p.Clone()
	if c.Details != nil && c.Details.Kind() == kind {
		return c
	}
	d := NewDetails(kind)
	if c.Details != nil {
		*d.Base() = *c.Details.Base()
	}
	c.Details = d
	return c
}

// UpsertMeta updates the entry with id when id matches an existing entry;
// otherwise it appends a new entry. Entries are never merged by key.
func (p *Product) UpsertMeta(id int64, key string, value json.RawMessage) {
	if id > 0 {
		for i := range p.Meta {
			if p.Meta[i].ID == id {
				p.Meta[i].Key = key
				p.Meta[i].Value = value
				return
			}
		}
	}

	var next int64
	for _, m := range p.Meta {
		next = max(next, m.ID)
	}
	p.Meta = append(p.Meta, MetaEntry{ID: next + 1, Key: key, Value: value})
}
