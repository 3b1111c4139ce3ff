package mapper

import (
	"github.com/utafrali/marketplace/pkg/optional"
	"github.com/utafrali/marketplace/services/catalog/internal/domain"
)

// StockInput holds the payload fields that drive stock handling.
type StockInput struct {
	InStock        optional.Value[bool]
	ManageStock    optional.Value[bool]
	Backorders     optional.Value[domain.Backorders]
	StockQuantity  optional.Value[int]
	InventoryDelta optional.Value[int]
}

// ResolveStock applies the stock fields of in to p according to the store's
// stock management setting and the product kind.
func ResolveStock(settings domain.StoreSettings, p *domain.Product, in StockInput) {
	desired := p.Commerce().StockStatus
	if v, ok := in.InStock.Get(); ok {
		desired = domain.StockOutOfStock
		if v {
			desired = domain.StockInStock
		}
	}

	if settings.ManageStock {
		c := p.Commerce()
		if v, ok := in.ManageStock.Get(); ok {
			c.ManageStock = v
		}
		if v, ok := in.Backorders.Get(); ok {
			c.Backorders = v
		}
	}

	p.Details.Accept(stockPolicy{storeManaged: settings.ManageStock, desired: desired, in: in})
}

type stockPolicy struct {
	storeManaged bool
	desired      domain.StockStatus
	in           StockInput
}

func (s stockPolicy) VisitSimple(d *domain.Simple)       { s.own(&d.Commerce, true) }
func (s stockPolicy) VisitVariation(d *domain.Variation) { s.own(&d.Commerce, true) }

// Variable stock status follows its variations.
func (s stockPolicy) VisitVariable(d *domain.Variable) {
	if !s.storeManaged {
		return
	}
	s.own(&d.Commerce, false)
}

func (s stockPolicy) VisitGrouped(d *domain.Grouped) {
	if s.storeManaged {
		unmanage(&d.Commerce)
		d.Backorders = domain.BackordersNo
	}
	d.StockStatus = s.desired
}

func (s stockPolicy) VisitExternal(d *domain.External) {
	if !s.storeManaged {
		d.StockStatus = s.desired
		return
	}
	unmanage(&d.Commerce)
	d.Backorders = domain.BackordersNo
	d.StockStatus = domain.StockInStock
}

func (s stockPolicy) own(c *domain.Commerce, setStatus bool) {
	if !s.storeManaged {
		if setStatus {
			c.StockStatus = s.desired
		}
		return
	}

	if !c.ManageStock {
		unmanage(c)
		c.StockStatus = s.desired
		return
	}

	if setStatus {
		c.StockStatus = s.desired
	}
	if q, ok := s.in.StockQuantity.Get(); ok {
		c.StockQuantity = &q
	} else if delta, ok := s.in.InventoryDelta.Get(); ok {
		q := delta
		if c.StockQuantity != nil {
			q += *c.StockQuantity
		}
		c.StockQuantity = &q
	}
}

func unmanage(c *domain.Commerce) {
	c.ManageStock = false
	c.StockQuantity = nil
}
