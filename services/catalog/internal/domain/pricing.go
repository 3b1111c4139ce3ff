package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ParsePrice parses a stored price. "" and malformed values report false.
func ParsePrice(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// OnSale reports whether c's sale price applies at now: a sale price is set,
// lower than the regular price, and now falls inside the sale window.
func (c *Commerce) OnSale(now time.Time) bool {
	sale, ok := ParsePrice(c.SalePrice)
	if !ok {
		return false
	}
	regular, ok := ParsePrice(c.RegularPrice)
	if !ok || !sale.LessThan(regular) {
		return false
	}
	if c.SaleFrom != nil && now.Before(*c.SaleFrom) {
		return false
	}
	if c.SaleTo != nil && now.After(*c.SaleTo) {
		return false
	}
	return true
}

// ComputePrice sets Price to the active price at now.
func (c *Commerce) ComputePrice(now time.Time) {
	if c.OnSale(now) {
		c.Price = c.SalePrice
		return
	}
	c.Price = c.RegularPrice
}

// OnSale reports whether p is on sale at now. Variable and grouped products
// are priced by their children and never report a sale themselves.
func (p *Product) OnSale(now time.Time) bool {
	switch p.Kind() {
	case KindVariable, KindGrouped:
		return false
	}
	return p.Commerce().OnSale(now)
}
