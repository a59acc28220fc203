package costing

import (
	"time"

	"github.com/mamadbah2/tirecost/internal/domain/models"
)

// EntryLoss is the loss valuation of one production run.
type EntryLoss struct {
	EntryID           string    `json:"entry_id,omitempty"`
	ProductionDate    time.Time `json:"production_date"`
	QuantityProduced  float64   `json:"quantity_produced"`
	ProductionLoss    float64   `json:"production_loss"`
	ConsumptionCost   float64   `json:"consumption_cost"`
	UnitMaterialCost  float64   `json:"unit_material_cost"`
	FinishedLossValue float64   `json:"finished_loss_value"`
	MaterialLossValue float64   `json:"material_loss_value"`
	TotalLossValue    float64   `json:"total_loss_value"`
}

// LossSummary aggregates the losses of every production run of a product.
// LossPercentage is lost/(produced+lost) as a fraction.
type LossSummary struct {
	ProductName          string      `json:"product_name"`
	Entries              int         `json:"entries"`
	ProducedQuantity     float64     `json:"produced_quantity"`
	LostQuantity         float64     `json:"lost_quantity"`
	LostMaterialQuantity float64     `json:"lost_material_quantity"`
	FinishedLossValue    float64     `json:"finished_loss_value"`
	MaterialLossValue    float64     `json:"material_loss_value"`
	TotalLossValue       float64     `json:"total_loss_value"`
	LossPercentage       float64     `json:"loss_percentage"`
	Details              []EntryLoss `json:"details"`
}

// Losses values finished-unit and raw-material losses of a product.
// Finished units are costed at the run's own per-unit consumption cost, not
// at the current recipe cost.
func (c *Calculator) Losses(productName string) LossSummary {
	out := LossSummary{ProductName: productName, Details: []EntryLoss{}}

	for _, entry := range c.snap.Production {
		if !models.SameName(entry.ProductName, productName) {
			continue
		}

		detail := c.entryLoss(entry)
		out.Entries++
		out.ProducedQuantity += entry.QuantityProduced
		out.LostQuantity += entry.ProductionLoss
		for _, ml := range entry.MaterialLoss {
			out.LostMaterialQuantity += ml.QuantityLost
		}
		out.FinishedLossValue += detail.FinishedLossValue
		out.MaterialLossValue += detail.MaterialLossValue
		out.TotalLossValue += detail.TotalLossValue
		out.Details = append(out.Details, detail)
	}

	if denom := out.ProducedQuantity + out.LostQuantity; denom > 0 {
		out.LossPercentage = out.LostQuantity / denom
	}

	return out
}

func (c *Calculator) entryLoss(entry models.ProductionEntry) EntryLoss {
	detail := EntryLoss{
		EntryID:          entry.ID,
		ProductionDate:   entry.ProductionDate,
		QuantityProduced: entry.QuantityProduced,
		ProductionLoss:   entry.ProductionLoss,
	}

	for _, consumed := range entry.MaterialsConsumed {
		_, unitCost := c.materialUnitCost(consumed.Ref())
		detail.ConsumptionCost += unitCost * consumed.QuantityConsumed
	}

	if entry.QuantityProduced > 0 {
		detail.UnitMaterialCost = detail.ConsumptionCost / entry.QuantityProduced
	}
	detail.FinishedLossValue = detail.UnitMaterialCost * entry.ProductionLoss

	for _, lost := range entry.MaterialLoss {
		_, unitCost := c.materialUnitCost(lost.Ref())
		detail.MaterialLossValue += unitCost * lost.QuantityLost
	}

	detail.TotalLossValue = detail.FinishedLossValue + detail.MaterialLossValue
	return detail
}
