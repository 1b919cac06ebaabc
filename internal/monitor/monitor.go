// Package monitor periodically projects installed dispensers and raises
// push alerts for those about to run dry.
package monitor

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"dispenser-tracker-backend/config"
	"dispenser-tracker-backend/internal/dispenser"
	"dispenser-tracker-backend/internal/model"
	"dispenser-tracker-backend/internal/notification"
	"dispenser-tracker-backend/internal/store"
)

// Dispatcher queues alerts for delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert notification.Alert) error
}

// Service scans dispenser levels on a timer. A dispenser is alerted at most
// once per cooldown window.
type Service struct {
	cfg      config.MonitorConfig
	manager  *dispenser.Manager
	alerts   Dispatcher
	cooldown *cache.Cache
	log      *zap.Logger
}

// NewService creates a monitor bound to the given manager and dispatcher.
func NewService(cfg config.MonitorConfig, m *dispenser.Manager, alerts Dispatcher, log *zap.Logger) *Service {
	return &Service{
		cfg:      cfg,
		manager:  m,
		alerts:   alerts,
		cooldown: cache.New(cfg.Cooldown, cfg.Cooldown),
		log:      log.Named("monitor"),
	}
}

// Run scans immediately and then once per interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Info("level monitor is disabled, not starting")
		return
	}
	s.log.Info("starting level monitor",
		zap.Duration("interval", s.cfg.Interval),
		zap.Float64("alert_days_threshold", s.cfg.AlertDaysThreshold))

	s.scan(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("level monitor shutting down")
			return
		case <-timer.C:
			s.scan(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

func (s *Service) scan(ctx context.Context) {
	n, err := s.ScanOnce(ctx)
	if err != nil {
		s.log.Error("level scan failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("dispatched low level alerts", zap.Int("count", n))
	}
}

// ScanOnce projects every installed dispenser and dispatches alerts for those
// below the threshold. It returns the number of alerts dispatched.
func (s *Service) ScanOnce(ctx context.Context) (int, error) {
	projections, err := s.manager.Projections(ctx, store.InstanceFilter{Status: model.StatusInstalled})
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, p := range projections {
		if p.DaysUntilEmpty == nil || *p.DaysUntilEmpty >= s.cfg.AlertDaysThreshold {
			continue
		}
		if _, seen := s.cooldown.Get(p.DispenserID); seen {
			continue
		}

		alert := notification.Alert{
			DispenserID:      p.DispenserID,
			UniqueCode:       p.UniqueCode,
			DaysUntilEmpty:   *p.DaysUntilEmpty,
			ProjectedLevelML: p.ProjectedLevelML,
		}
		if d, err := s.manager.GetDispenser(ctx, p.DispenserID); err == nil && d.Instance != nil {
			alert.Location = d.Instance.Location
		}

		if err := s.alerts.Dispatch(ctx, alert); err != nil {
			return dispatched, err
		}
		s.cooldown.SetDefault(p.DispenserID, time.Now())
		dispatched++
	}
	return dispatched, nil
}
