package models

import "time"

// Metric keys shared by the dashboard widgets.
const (
	MetricAverageCostPerUnit   = "averageCostPerUnit"
	MetricAverageProfitPerUnit = "averageProfitPerUnit"
	MetricOverallProfitMargin  = "overallProfitMargin"
)

// MetricSnapshot is the latest published value of a derived metric.
type MetricSnapshot struct {
	Key        string    `bson:"_id" json:"key"`
	Value      float64   `bson:"value" json:"value"`
	ComputedAt time.Time `bson:"computed_at" json:"computed_at"`
	Source     string    `bson:"source" json:"source"`
}

// NewerThan reports whether s should replace other under last-write-wins.
func (s MetricSnapshot) NewerThan(other MetricSnapshot) bool {
	return s.ComputedAt.After(other.ComputedAt)
}
