package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/tirecost/internal/config"
	"github.com/mamadbah2/tirecost/internal/service/profit"
)

const refreshTimeout = 2 * time.Minute

// Refresher recomputes the dashboard aggregates.
type Refresher interface {
	Refresh(ctx context.Context) (profit.Summary, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	spec      string
	refresher Refresher
	logger    *zap.Logger
}

// NewScheduler creates a new scheduler running in the configured timezone.
// The schedule uses the standard 5-field cron syntax.
func NewScheduler(cfg config.ReportingConfig, refresher Refresher, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		spec:      cfg.CronSchedule,
		refresher: refresher,
		logger:    logger,
	}, nil
}

// Start registers the refresh job and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.spec))

	if _, err := s.cron.AddFunc(s.spec, s.refresh); err != nil {
		return fmt.Errorf("schedule refresh %q: %w", s.spec, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) refresh() {
	s.logger.Info("refreshing dashboard metrics")
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	summary, err := s.refresher.Refresh(ctx)
	if err != nil {
		s.logger.Error("failed to refresh dashboard metrics", zap.Error(err))
		return
	}

	s.logger.Info("dashboard metrics refreshed",
		zap.Int("products", len(summary.Products)),
		zap.Float64("overall_margin", summary.OverallMargin))
}
