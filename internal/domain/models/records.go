package models

import "time"

// MaterialRequirement is one line of a recipe.
type MaterialRequirement struct {
	MaterialID     string  `json:"material_id"`
	MaterialName   string  `json:"material_name"`
	QuantityNeeded float64 `json:"quantity_needed"`
}

// Ref returns the material as a resolvable reference.
func (m MaterialRequirement) Ref() Reference {
	return Reference{ID: m.MaterialID, Name: m.MaterialName}
}

// Recipe is a product's bill of materials.
type Recipe struct {
	ID          string                `json:"id"`
	ProductName string                `json:"product_name"`
	Materials   []MaterialRequirement `json:"materials"`
	Archived    bool                  `json:"archived"`
}

// IsValid reports whether the recipe may be used for costing.
func (r Recipe) IsValid() bool {
	return !r.Archived && len(r.Materials) > 0
}

// MaterialConsumption records how much of a material a production run used.
type MaterialConsumption struct {
	MaterialID       string  `json:"material_id"`
	MaterialName     string  `json:"material_name,omitempty"`
	QuantityConsumed float64 `json:"quantity_consumed"`
}

// Ref returns the consumed material as a resolvable reference.
func (m MaterialConsumption) Ref() Reference {
	return Reference{ID: m.MaterialID, Name: m.MaterialName}
}

// MaterialLoss records raw material consumed without yielding finished units.
type MaterialLoss struct {
	MaterialID   string  `json:"material_id"`
	MaterialName string  `json:"material_name"`
	QuantityLost float64 `json:"quantity_lost"`
}

// Ref returns the lost material as a resolvable reference.
func (m MaterialLoss) Ref() Reference {
	return Reference{ID: m.MaterialID, Name: m.MaterialName}
}

// ProductionEntry is one production run, including consumption and losses.
type ProductionEntry struct {
	ID                string                `json:"id"`
	ProductName       string                `json:"product_name"`
	ProductionDate    time.Time             `json:"production_date"`
	QuantityProduced  float64               `json:"quantity_produced"`
	MaterialsConsumed []MaterialConsumption `json:"materials_consumed"`
	ProductionLoss    float64               `json:"production_loss"`
	MaterialLoss      []MaterialLoss        `json:"material_loss"`
}

// DefectiveSaleRecord captures revenue recovered by selling defective units.
type DefectiveSaleRecord struct {
	TireName  string    `json:"tire_name"`
	Quantity  float64   `json:"quantity"`
	SaleValue float64   `json:"sale_value"`
	SaleDate  time.Time `json:"sale_date"`
}

// WarrantyRecord captures units replaced free of charge after a sale.
type WarrantyRecord struct {
	ProductName     string    `json:"product_name"`
	Quantity        float64   `json:"quantity"`
	WarrantyDate    time.Time `json:"warranty_date"`
	CustomerName    string    `json:"customer_name"`
	SalespersonName string    `json:"salesperson_name"`
}

// SaleKind separates cash inflows from outflows.
type SaleKind string

const (
	KindIncome  SaleKind = "income"
	KindExpense SaleKind = "expense"
)

// ParseSaleKind maps cash-flow sheet labels onto a SaleKind.
func ParseSaleKind(value string) (SaleKind, bool) {
	switch NormalizeName(value) {
	case "income", "entrada", "receita":
		return KindIncome, true
	case "expense", "saida", "saída", "despesa":
		return KindExpense, true
	default:
		return "", false
	}
}

// SaleRecord is a cash-flow transaction. Income records in the sale
// category carry a structured Description linking them to a product.
type SaleRecord struct {
	ID              string    `json:"id"`
	Kind            SaleKind  `json:"kind"`
	Category        string    `json:"category"`
	Amount          float64   `json:"amount"`
	TransactionDate time.Time `json:"transaction_date"`
	Description     string    `json:"description"`
}

// Employee contributes its salary to the labor pool while not archived.
type Employee struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Salary   float64 `json:"salary"`
	Archived bool    `json:"archived"`
}

// Snapshot is a read-only, in-memory copy of every record the engine uses.
type Snapshot struct {
	Recipes        []Recipe              `json:"recipes"`
	Stock          []StockRecord         `json:"stock"`
	Production     []ProductionEntry     `json:"production"`
	DefectiveSales []DefectiveSaleRecord `json:"defective_sales"`
	Warranties     []WarrantyRecord      `json:"warranties"`
	Sales          []SaleRecord          `json:"sales"`
	Employees      []Employee            `json:"employees"`
	LoadedAt       time.Time             `json:"loaded_at"`
}

// FilterSalesByDate keeps sales whose transaction date falls within
// [start, end]. A zero bound is open.
func FilterSalesByDate(sales []SaleRecord, start, end time.Time) []SaleRecord {
	if start.IsZero() && end.IsZero() {
		return sales
	}

	out := make([]SaleRecord, 0, len(sales))
	for _, s := range sales {
		if !start.IsZero() && s.TransactionDate.Before(start) {
			continue
		}
		if !end.IsZero() && s.TransactionDate.After(end) {
			continue
		}
		out = append(out, s)
	}
	return out
}
