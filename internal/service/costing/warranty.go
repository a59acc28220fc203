package costing

import (
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/tirecost/internal/domain/models"
)

// WarrantyLine is the valuation of one warranty replacement.
type WarrantyLine struct {
	CustomerName    string    `json:"customer_name"`
	SalespersonName string    `json:"salesperson_name"`
	WarrantyDate    time.Time `json:"warranty_date"`
	Quantity        float64   `json:"quantity"`
	Value           float64   `json:"value"`
	MissingRecipe   bool      `json:"missing_recipe"`
}

// WarrantySummary aggregates warranty replacements of a product.
type WarrantySummary struct {
	ProductName   string         `json:"product_name"`
	HasRecipe     bool           `json:"has_recipe"`
	UnitCost      float64        `json:"unit_cost"`
	TotalQuantity float64        `json:"total_quantity"`
	TotalValue    float64        `json:"total_value"`
	RecordCount   int            `json:"record_count"`
	Lines         []WarrantyLine `json:"lines"`
}

// Warranty values warranty replacements at the current recipe material cost.
// Without a valid recipe every record is worth 0 and flagged.
func (c *Calculator) Warranty(productName string) WarrantySummary {
	return c.warrantyAt(productName, c.RecipeCost(productName))
}

func (c *Calculator) warrantyAt(productName string, recipe RecipeCost) WarrantySummary {
	out := WarrantySummary{
		ProductName: productName,
		HasRecipe:   recipe.HasRecipe,
		UnitCost:    recipe.Cost,
		Lines:       []WarrantyLine{},
	}

	for _, w := range c.snap.Warranties {
		if !models.SameName(w.ProductName, productName) {
			continue
		}

		line := WarrantyLine{
			CustomerName:    w.CustomerName,
			SalespersonName: w.SalespersonName,
			WarrantyDate:    w.WarrantyDate,
			Quantity:        w.Quantity,
			MissingRecipe:   !recipe.HasRecipe,
		}
		if recipe.HasRecipe {
			line.Value = recipe.Cost * w.Quantity
		}

		out.RecordCount++
		out.TotalQuantity += w.Quantity
		out.TotalValue += line.Value
		out.Lines = append(out.Lines, line)
	}

	if out.RecordCount > 0 && !recipe.HasRecipe {
		c.logger.Warn("warranty records without recipe valued at zero",
			zap.String("product", productName),
			zap.Int("records", out.RecordCount))
	}

	return out
}
