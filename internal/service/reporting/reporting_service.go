// Package reporting serves the dashboard views over a cached snapshot.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/tirecost/internal/domain/models"
	"github.com/mamadbah2/tirecost/internal/service/costing"
	"github.com/mamadbah2/tirecost/internal/service/metricbus"
	"github.com/mamadbah2/tirecost/internal/service/profit"
)

// MetricSource tags publications made by the profit view.
const MetricSource = "profit"

// SnapshotSource loads the factory records.
type SnapshotSource interface {
	Load(ctx context.Context) (models.Snapshot, error)
}

// StaticSource serves a fixed snapshot.
type StaticSource struct {
	Snapshot models.Snapshot
}

// Load implements SnapshotSource.
func (s StaticSource) Load(context.Context) (models.Snapshot, error) {
	return s.Snapshot, nil
}

// ProfitQuery is a profit.Query restricted to a transaction date range.
// Zero bounds are open.
type ProfitQuery struct {
	profit.Query
	Start time.Time
	End   time.Time
}

// Service backs every dashboard view with one cached snapshot and keeps
// the shared metrics in sync through the bus.
type Service struct {
	source       SnapshotSource
	bus          *metricbus.Bus
	defaults     models.CostOptions
	saleCategory string
	logger       *zap.Logger

	mu   sync.RWMutex
	calc *costing.Calculator
}

// NewService wires a new reporting service instance.
func NewService(source SnapshotSource, bus *metricbus.Bus, defaults models.CostOptions, saleCategory string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bus == nil {
		bus = metricbus.New(nil, logger.Named("metricbus"))
	}
	return &Service{
		source:       source,
		bus:          bus,
		defaults:     defaults,
		saleCategory: saleCategory,
		logger:       logger,
	}
}

// Defaults returns the cost options used when a view passes none.
func (s *Service) Defaults() models.CostOptions {
	return s.defaults
}

// Bus exposes the metric bus for subscribers.
func (s *Service) Bus() *metricbus.Bus {
	return s.bus
}

// Reload replaces the cached snapshot with a fresh one from the source.
func (s *Service) Reload(ctx context.Context) error {
	snap, err := s.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("reload snapshot: %w", err)
	}

	calc := costing.NewCalculator(snap, s.saleCategory, s.logger.Named("costing"))

	s.mu.Lock()
	s.calc = calc
	s.mu.Unlock()

	s.logger.Info("snapshot refreshed", zap.Time("loaded_at", snap.LoadedAt))
	return nil
}

func (s *Service) calculator(ctx context.Context) (*costing.Calculator, error) {
	s.mu.RLock()
	calc := s.calc
	s.mu.RUnlock()
	if calc != nil {
		return calc, nil
	}

	if err := s.Reload(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calc, nil
}

// ProductCost returns the composed unit cost of a product.
func (s *Service) ProductCost(ctx context.Context, productName string, opts models.CostOptions) (costing.ProductCost, error) {
	calc, err := s.calculator(ctx)
	if err != nil {
		return costing.ProductCost{}, err
	}
	return calc.ProductCost(productName, opts), nil
}

// Losses returns the production losses of a product.
func (s *Service) Losses(ctx context.Context, productName string) (costing.LossSummary, error) {
	calc, err := s.calculator(ctx)
	if err != nil {
		return costing.LossSummary{}, err
	}
	return calc.Losses(productName), nil
}

// Warranty returns the warranty replacement value of a product.
func (s *Service) Warranty(ctx context.Context, productName string) (costing.WarrantySummary, error) {
	calc, err := s.calculator(ctx)
	if err != nil {
		return costing.WarrantySummary{}, err
	}
	return calc.Warranty(productName), nil
}

// DefectiveCredit returns the value recovered from defective sales.
func (s *Service) DefectiveCredit(ctx context.Context) (costing.DefectiveSummary, error) {
	calc, err := s.calculator(ctx)
	if err != nil {
		return costing.DefectiveSummary{}, err
	}
	return costing.DefectiveCredit(calc.Snapshot().DefectiveSales), nil
}

// Simulate costs a multi-recipe batch. A nil pools uses the snapshot's
// pools; a non-nil one is used as given, zero values included.
func (s *Service) Simulate(ctx context.Context, in costing.SimulationInput, pools *costing.CostPools) (costing.SimulationResult, error) {
	calc, err := s.calculator(ctx)
	if err != nil {
		return costing.SimulationResult{}, err
	}
	if pools != nil {
		in.Pools = *pools
	} else {
		in.Pools = calc.DefaultPools()
	}
	return calc.Simulate(in), nil
}

// Profit analyzes the sales in the query's date range. Runs over every
// product publish the aggregate metrics; single-product runs do not.
func (s *Service) Profit(ctx context.Context, q ProfitQuery) (profit.Summary, error) {
	calc, err := s.calculator(ctx)
	if err != nil {
		return profit.Summary{}, err
	}

	sales := models.FilterSalesByDate(calc.Snapshot().Sales, q.Start, q.End)
	summary := profit.NewAnalyzer(calc, s.logger.Named("profit")).Analyze(sales, q.Query)

	if q.Product == "" {
		s.publish(ctx, models.MetricAverageCostPerUnit, summary.AverageCostPerUnit)
		s.publish(ctx, models.MetricAverageProfitPerUnit, summary.AverageProfitPerUnit)
		s.publish(ctx, models.MetricOverallProfitMargin, summary.OverallMargin)
	}

	return summary, nil
}

// Refresh reloads the snapshot and recomputes the aggregate metrics with
// the default options over all sales.
func (s *Service) Refresh(ctx context.Context) (profit.Summary, error) {
	if err := s.Reload(ctx); err != nil {
		return profit.Summary{}, err
	}
	return s.Profit(ctx, ProfitQuery{Query: profit.Query{Options: s.defaults}})
}

// Metric returns the latest snapshot of key. A key never published yields
// a zero value.
func (s *Service) Metric(ctx context.Context, key string) (models.MetricSnapshot, error) {
	snap, err := s.bus.Snapshot(ctx, key)
	if err != nil {
		if errors.Is(err, metricbus.ErrUnknownMetric) {
			return models.MetricSnapshot{Key: key}, nil
		}
		return models.MetricSnapshot{}, fmt.Errorf("read metric %s: %w", key, err)
	}
	return snap, nil
}

func (s *Service) publish(ctx context.Context, key string, value float64) {
	if _, err := s.bus.Publish(ctx, key, value, MetricSource); err != nil {
		s.logger.Warn("failed to publish metric", zap.String("key", key), zap.Error(err))
	}
}
