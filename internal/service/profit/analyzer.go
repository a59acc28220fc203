// Package profit computes revenue, cost and profit of manufactured tires from
// the sale records of the cash flow.
package profit

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/tirecost/internal/domain/models"
	"github.com/mamadbah2/tirecost/internal/service/costing"
)

// SortKey selects the ordering of the per-product results.
type SortKey string

const (
	SortByProfit  SortKey = "profit"
	SortByRevenue SortKey = "revenue"
	SortByMargin  SortKey = "margin"
)

// ParseSortKey maps a query value onto a SortKey, defaulting to profit.
func ParseSortKey(value string) SortKey {
	switch SortKey(strings.ToLower(strings.TrimSpace(value))) {
	case SortByRevenue:
		return SortByRevenue
	case SortByMargin:
		return SortByMargin
	default:
		return SortByProfit
	}
}

// ExclusionReason tells why a sale was left out of the analysis.
type ExclusionReason string

const (
	ExcludedResale           ExclusionReason = "resale"
	ExcludedUnknownClass     ExclusionReason = "unknown_class"
	ExcludedExtractionFailed ExclusionReason = "extraction_failed"
	ExcludedNoRecipe         ExclusionReason = "no_recipe"
)

// Query parameterizes one analysis run. An empty Product analyzes every
// product; otherwise only that product.
type Query struct {
	Product   string
	Options   models.CostOptions
	SortBy    SortKey
	Ascending bool
}

// TireAnalysis is the profitability of one product.
type TireAnalysis struct {
	ProductName          string  `json:"product_name"`
	CostPerUnit          float64 `json:"cost_per_unit"`
	TotalSales           float64 `json:"total_sales"`
	TotalRevenue         float64 `json:"total_revenue"`
	TotalCost            float64 `json:"total_cost"`
	TotalProfit          float64 `json:"total_profit"`
	SalesCount           int     `json:"sales_count"`
	ProfitMargin         float64 `json:"profit_margin"`
	AverageProfitPerUnit float64 `json:"average_profit_per_unit"`
}

// Summary is the outcome of one analysis run.
type Summary struct {
	Products             []TireAnalysis          `json:"products"`
	TotalUnits           float64                 `json:"total_units"`
	TotalRevenue         float64                 `json:"total_revenue"`
	TotalCost            float64                 `json:"total_cost"`
	TotalProfit          float64                 `json:"total_profit"`
	SalesCount           int                     `json:"sales_count"`
	OverallMargin        float64                 `json:"overall_margin"`
	AverageProfitPerUnit float64                 `json:"average_profit_per_unit"`
	AverageCostPerUnit   float64                 `json:"average_cost_per_unit"`
	Excluded             map[ExclusionReason]int `json:"excluded"`
}

// Analyzer matches sales to products and prices them with the cost composer.
type Analyzer struct {
	calc   *costing.Calculator
	logger *zap.Logger
}

// NewAnalyzer wires an Analyzer over a calculator.
func NewAnalyzer(calc *costing.Calculator, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{calc: calc, logger: logger}
}

// Analyze prices every included sale. A sale is included only when it is
// an income in the sale category, is tagged final or untagged, names a
// product and that product has a valid recipe. Anything else is counted in
// Summary.Excluded and dropped.
func (a *Analyzer) Analyze(sales []models.SaleRecord, q Query) Summary {
	out := Summary{Products: []TireAnalysis{}, Excluded: make(map[ExclusionReason]int)}

	byProduct := make(map[string]*TireAnalysis)
	order := make([]string, 0)
	unitCosts := make(map[string]float64)

	for _, sale := range sales {
		if !a.calc.IsSale(sale) {
			continue
		}

		link := a.calc.LinkSale(sale.Description)
		switch {
		case link.Info.Class == models.ClassResale:
			out.Excluded[ExcludedResale]++
			continue
		case !link.Info.Class.CountsAsManufactured():
			out.Excluded[ExcludedUnknownClass]++
			continue
		case link.Err != nil:
			out.Excluded[ExcludedExtractionFailed]++
			a.logger.Debug("sale description not usable", zap.String("sale_id", sale.ID), zap.Error(link.Err))
			continue
		}

		recipe, ok := a.calc.FindRecipe(link.ProductName)
		if !ok {
			out.Excluded[ExcludedNoRecipe]++
			continue
		}

		product := recipe.ProductName
		if q.Product != "" && !models.SameName(product, q.Product) {
			continue
		}

		key := models.NormalizeName(product)
		unitCost, seen := unitCosts[key]
		if !seen {
			unitCost = a.calc.ProductCost(product, q.Options).CostPerUnit
			unitCosts[key] = unitCost
		}

		entry, ok := byProduct[key]
		if !ok {
			entry = &TireAnalysis{ProductName: product, CostPerUnit: unitCost}
			byProduct[key] = entry
			order = append(order, key)
		}

		cost := unitCost * link.Info.Quantity
		entry.TotalSales += link.Info.Quantity
		entry.TotalRevenue += sale.Amount
		entry.TotalCost += cost
		entry.TotalProfit += sale.Amount - cost
		entry.SalesCount++
	}

	for _, key := range order {
		entry := byProduct[key]
		entry.ProfitMargin = ratio(entry.TotalProfit, entry.TotalRevenue)
		entry.AverageProfitPerUnit = ratio(entry.TotalProfit, entry.TotalSales)

		out.Products = append(out.Products, *entry)
		out.TotalUnits += entry.TotalSales
		out.TotalRevenue += entry.TotalRevenue
		out.TotalCost += entry.TotalCost
		out.TotalProfit += entry.TotalProfit
		out.SalesCount += entry.SalesCount
	}

	out.OverallMargin = ratio(out.TotalProfit, out.TotalRevenue)
	out.AverageProfitPerUnit = ratio(out.TotalProfit, out.TotalUnits)
	out.AverageCostPerUnit = ratio(out.TotalCost, out.TotalUnits)

	Sort(out.Products, q.SortBy, q.Ascending)
	return out
}

// Sort orders analyses by key. Ties are broken by product name.
func Sort(items []TireAnalysis, key SortKey, ascending bool) {
	metric := func(t TireAnalysis) float64 {
		switch key {
		case SortByRevenue:
			return t.TotalRevenue
		case SortByMargin:
			return t.ProfitMargin
		default:
			return t.TotalProfit
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		mi, mj := metric(items[i]), metric(items[j])
		if mi == mj {
			return items[i].ProductName < items[j].ProductName
		}
		if ascending {
			return mi < mj
		}
		return mi > mj
	})
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
