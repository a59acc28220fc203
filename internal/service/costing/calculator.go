// Package costing turns a snapshot of factory records into per-unit product
// costs: recipe material cost, production losses, warranty value and the
// optional shared cost pools.
package costing

import (
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/tirecost/internal/domain/models"
	"github.com/mamadbah2/tirecost/internal/service/resolver"
)

// DefaultSaleCategory is the cash-flow category of product sales.
const DefaultSaleCategory = "Venda"

// Calculator evaluates costs over one immutable snapshot. Build a new one
// whenever the records change.
type Calculator struct {
	snap         models.Snapshot
	materials    []models.StockRecord
	products     []models.StockRecord
	saleCategory string
	resolver     *resolver.Resolver
	logger       *zap.Logger

	soldOnce sync.Once
	sold     map[string]float64
}

// NewCalculator wires a calculator for the given snapshot.
func NewCalculator(snap models.Snapshot, saleCategory string, logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if saleCategory == "" {
		saleCategory = DefaultSaleCategory
	}

	return &Calculator{
		snap:         snap,
		materials:    models.FilterStock(snap.Stock, models.ItemMaterial),
		products:     models.FilterStock(snap.Stock, models.ItemProduct),
		saleCategory: saleCategory,
		resolver:     resolver.New(logger.Named("resolver")),
		logger:       logger,
	}
}

// Snapshot returns the records the calculator works on.
func (c *Calculator) Snapshot() models.Snapshot {
	return c.snap
}

// Resolver returns the entity resolver bound to this calculator's logger.
func (c *Calculator) Resolver() *resolver.Resolver {
	return c.resolver
}

// IsSale reports whether a cash-flow record is a product sale.
func (c *Calculator) IsSale(sale models.SaleRecord) bool {
	return sale.Kind == models.KindIncome && models.SameName(sale.Category, c.saleCategory)
}

// materialUnitCost resolves a material reference to its stock unit cost.
// Unresolved materials cost 0.
func (c *Calculator) materialUnitCost(ref models.Reference) (resolver.Match[models.StockRecord], float64) {
	m := c.resolver.Material(ref, c.materials)
	if !m.Found {
		return m, 0
	}
	return m, m.Item.UnitCost
}

// SoldQuantity returns the units sold of a product, counting only sales of
// manufactured goods whose description links to the product.
func (c *Calculator) SoldQuantity(productName string) float64 {
	c.soldOnce.Do(func() {
		c.sold = make(map[string]float64)
		for _, sale := range c.snap.Sales {
			if !c.IsSale(sale) {
				continue
			}
			link := c.LinkSale(sale.Description)
			if link.Err != nil || !link.Info.Class.CountsAsManufactured() {
				continue
			}
			c.sold[models.NormalizeName(link.ProductName)] += link.Info.Quantity
		}
	})
	return c.sold[models.NormalizeName(productName)]
}

// ProducedQuantity sums the finished units of every production run of a product.
func (c *Calculator) ProducedQuantity(productName string) float64 {
	var total float64
	for _, entry := range c.snap.Production {
		if models.SameName(entry.ProductName, productName) {
			total += entry.QuantityProduced
		}
	}
	return total
}
