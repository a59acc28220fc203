package models

// CostOptions selects which optional terms the cost composer adds on top of
// the material cost. It is a value type; every calculator receives its own copy.
type CostOptions struct {
	IncludeLabor                bool `json:"include_labor"`
	IncludeCashFlowExpenses     bool `json:"include_cash_flow_expenses"`
	IncludeProductionLosses     bool `json:"include_production_losses"`
	IncludeDefectiveSalesCredit bool `json:"include_defective_sales_credit"`
	IncludeWarrantyValue        bool `json:"include_warranty_value"`
	DivideByProduction          bool `json:"divide_by_production"`
}

// CostBreakdown is the per-unit cost split by term.
// Total always equals the sum of the six named fields.
type CostBreakdown struct {
	MaterialCost         float64 `json:"material_cost"`
	LaborCost            float64 `json:"labor_cost"`
	CashFlowCost         float64 `json:"cash_flow_cost"`
	ProductionLossCost   float64 `json:"production_loss_cost"`
	DefectiveSalesCredit float64 `json:"defective_sales_credit"`
	WarrantyCost         float64 `json:"warranty_cost"`
	Total                float64 `json:"total"`
}

// Sum returns the sum of the named fields, ignoring Total.
func (b CostBreakdown) Sum() float64 {
	return b.MaterialCost + b.LaborCost + b.CashFlowCost + b.ProductionLossCost + b.DefectiveSalesCredit + b.WarrantyCost
}

// Scale multiplies every field, including Total, by factor.
func (b CostBreakdown) Scale(factor float64) CostBreakdown {
	return CostBreakdown{
		MaterialCost:         b.MaterialCost * factor,
		LaborCost:            b.LaborCost * factor,
		CashFlowCost:         b.CashFlowCost * factor,
		ProductionLossCost:   b.ProductionLossCost * factor,
		DefectiveSalesCredit: b.DefectiveSalesCredit * factor,
		WarrantyCost:         b.WarrantyCost * factor,
		Total:                b.Total * factor,
	}
}

// Add returns the field-wise sum of two breakdowns.
func (b CostBreakdown) Add(o CostBreakdown) CostBreakdown {
	return CostBreakdown{
		MaterialCost:         b.MaterialCost + o.MaterialCost,
		LaborCost:            b.LaborCost + o.LaborCost,
		CashFlowCost:         b.CashFlowCost + o.CashFlowCost,
		ProductionLossCost:   b.ProductionLossCost + o.ProductionLossCost,
		DefectiveSalesCredit: b.DefectiveSalesCredit + o.DefectiveSalesCredit,
		WarrantyCost:         b.WarrantyCost + o.WarrantyCost,
		Total:                b.Total + o.Total,
	}
}
