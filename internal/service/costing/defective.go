package costing

import "github.com/mamadbah2/tirecost/internal/domain/models"

// DefectiveSummary is the system-wide value recovered by selling defective
// units. It is never attributed to a single product.
type DefectiveSummary struct {
	TotalValue    float64 `json:"total_value"`
	TotalQuantity float64 `json:"total_quantity"`
	RecordCount   int     `json:"record_count"`
}

// DefectiveCredit sums every defective-unit sale.
func DefectiveCredit(records []models.DefectiveSaleRecord) DefectiveSummary {
	var out DefectiveSummary
	for _, r := range records {
		out.TotalValue += r.SaleValue
		out.TotalQuantity += r.Quantity
		out.RecordCount++
	}
	return out
}
