// Package scheduler drives the usage reset sweeper on a fixed cadence,
// independent of webhook traffic.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/postpulse/postpulse/internal/clock"
	"github.com/postpulse/postpulse/internal/config"
	obsmetrics "github.com/postpulse/postpulse/internal/observability/metrics"
	usagedomain "github.com/postpulse/postpulse/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

const jobUsageReset = "usage_reset"

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	BillingCfg *config.BillingConfigHolder
	UsageSvc   usagedomain.Service
	Locker     *Locker             `optional:"true"`
	Config     Config              `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	billingCfg *config.BillingConfigHolder
	usageSvc   usagedomain.Service
	locker     *Locker
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.BillingCfg == nil || p.UsageSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler"),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		billingCfg: p.BillingCfg,
		usageSvc:   p.UsageSvc,
		locker:     p.Locker,
		obsMetrics: p.ObsMetrics,
	}, nil
}

// RunOnce executes a single sweeper pass, guarded by the distributed lock
// when one is configured.
func (s *Scheduler) RunOnce(parent context.Context) error {
	return s.runJob(parent, jobUsageReset, s.cfg.JobTimeout, func(ctx context.Context) error {
		release, acquired, err := s.acquireLock(ctx)
		if err != nil {
			s.log.Warn("lock acquisition failed, skipping run", zap.Error(err))
			return nil
		}
		if !acquired {
			s.log.Debug("another instance holds the sweep lock")
			return nil
		}
		defer release()

		stats, err := s.usageSvc.Sweep(ctx)
		if err != nil {
			return err
		}
		if stats.Scanned > 0 {
			s.log.Info("usage sweep finished",
				zap.Int("scanned", stats.Scanned),
				zap.Int("reset", stats.Reset),
				zap.Int("skipped", stats.Skipped),
			)
		}
		return nil
	})
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	s.obsMetrics.IncJobRun(name)

	err := fn(ctx)
	s.obsMetrics.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		return nil
	}

	s.obsMetrics.IncJobError(name)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunForever loops until the context is canceled. The interval is re-read
// from the billing config each pass so operators can retune the cadence
// without a restart.
func (s *Scheduler) RunForever(ctx context.Context) {
	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		interval := s.billingCfg.Get().SweepInterval()
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *Scheduler) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.locker == nil {
		return func() {}, true, nil
	}
	token, ok, err := s.locker.TryLock(ctx, s.cfg.LockKey, s.cfg.LockTTL)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		if err := s.locker.Release(context.Background(), s.cfg.LockKey, token); err != nil {
			s.log.Warn("lock release failed", zap.Error(err))
		}
	}
	return release, true, nil
}
