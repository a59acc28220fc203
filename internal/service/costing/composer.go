package costing

import (
	"math"

	"github.com/mamadbah2/tirecost/internal/domain/models"
)

// CostPools are the raw, undivided values of the optional cost terms.
type CostPools struct {
	Labor           float64 `json:"labor"`
	CashFlow        float64 `json:"cash_flow"`
	ProductionLoss  float64 `json:"production_loss"`
	DefectiveCredit float64 `json:"defective_credit"`
	Warranty        float64 `json:"warranty"`
}

// ComposeInput holds everything the composer needs for one product.
type ComposeInput struct {
	MaterialCost float64
	Produced     float64
	Sold         float64
	Pools        CostPools
	Options      models.CostOptions
}

// Composition is the composed per-unit cost and the denominator used.
type Composition struct {
	Breakdown   models.CostBreakdown `json:"breakdown"`
	Denominator float64              `json:"denominator"`
}

// Denominator is the quantity shared pools are divided by: the larger of
// produced and sold units, never below 1.
func Denominator(produced, sold float64) float64 {
	return math.Max(math.Max(produced, sold), 1)
}

// Compose adds the enabled optional terms to the material cost. A term only
// applies when its toggle is on and its raw pool is positive; a disabled term
// is exactly 0. The defective-sales credit is subtracted.
func Compose(in ComposeInput) Composition {
	den := Denominator(in.Produced, in.Sold)
	opts := in.Options

	term := func(enabled bool, raw float64) float64 {
		if !enabled || raw <= 0 {
			return 0
		}
		if opts.DivideByProduction {
			return raw / den
		}
		return raw
	}

	b := models.CostBreakdown{
		MaterialCost:       in.MaterialCost,
		LaborCost:          term(opts.IncludeLabor, in.Pools.Labor),
		CashFlowCost:       term(opts.IncludeCashFlowExpenses, in.Pools.CashFlow),
		ProductionLossCost: term(opts.IncludeProductionLosses, in.Pools.ProductionLoss),
		WarrantyCost:       term(opts.IncludeWarrantyValue, in.Pools.Warranty),
	}
	if credit := term(opts.IncludeDefectiveSalesCredit, in.Pools.DefectiveCredit); credit > 0 {
		b.DefectiveSalesCredit = -credit
	}
	b.Total = b.Sum()

	return Composition{Breakdown: b, Denominator: den}
}

// LaborPool sums the salaries of employees that are not archived.
func LaborPool(employees []models.Employee) float64 {
	var total float64
	for _, e := range employees {
		if !e.Archived {
			total += e.Salary
		}
	}
	return total
}

// CashFlowPool sums the amounts of every expense record.
func CashFlowPool(sales []models.SaleRecord) float64 {
	var total float64
	for _, s := range sales {
		if s.Kind == models.KindExpense {
			total += s.Amount
		}
	}
	return total
}

// ProductCost is the full costing of one product under a set of options.
type ProductCost struct {
	ProductName string               `json:"product_name"`
	Options     models.CostOptions   `json:"options"`
	Recipe      RecipeCost           `json:"recipe"`
	Losses      LossSummary          `json:"losses"`
	Warranty    WarrantySummary      `json:"warranty"`
	Defective   DefectiveSummary     `json:"defective"`
	Pools       CostPools            `json:"pools"`
	Produced    float64              `json:"produced"`
	Sold        float64              `json:"sold"`
	Denominator float64              `json:"denominator"`
	Breakdown   models.CostBreakdown `json:"breakdown"`
	CostPerUnit float64              `json:"cost_per_unit"`
}

// ProductCost runs the whole chain for a product: recipe, losses, warranty,
// the global pools and the composer.
func (c *Calculator) ProductCost(productName string, opts models.CostOptions) ProductCost {
	recipe := c.RecipeCost(productName)
	losses := c.Losses(productName)
	warranty := c.warrantyAt(productName, recipe)
	defective := DefectiveCredit(c.snap.DefectiveSales)

	pools := CostPools{
		Labor:           LaborPool(c.snap.Employees),
		CashFlow:        CashFlowPool(c.snap.Sales),
		ProductionLoss:  losses.TotalLossValue,
		DefectiveCredit: defective.TotalValue,
		Warranty:        warranty.TotalValue,
	}

	produced := c.ProducedQuantity(productName)
	sold := c.SoldQuantity(productName)

	comp := Compose(ComposeInput{
		MaterialCost: recipe.Cost,
		Produced:     produced,
		Sold:         sold,
		Pools:        pools,
		Options:      opts,
	})

	return ProductCost{
		ProductName: productName,
		Options:     opts,
		Recipe:      recipe,
		Losses:      losses,
		Warranty:    warranty,
		Defective:   defective,
		Pools:       pools,
		Produced:    produced,
		Sold:        sold,
		Denominator: comp.Denominator,
		Breakdown:   comp.Breakdown,
		CostPerUnit: comp.Breakdown.Total,
	}
}

// DefaultPools returns the snapshot-wide pools for simulations. Production
// losses and warranties are per product, so they start at 0.
func (c *Calculator) DefaultPools() CostPools {
	return CostPools{
		Labor:           LaborPool(c.snap.Employees),
		CashFlow:        CashFlowPool(c.snap.Sales),
		DefectiveCredit: DefectiveCredit(c.snap.DefectiveSales).TotalValue,
	}
}
