package service

import (
	"context"

	"github.com/postpulse/postpulse/internal/clock"
	"github.com/postpulse/postpulse/internal/config"
	obsmetrics "github.com/postpulse/postpulse/internal/observability/metrics"
	organizationdomain "github.com/postpulse/postpulse/internal/organization/domain"
	"github.com/postpulse/postpulse/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	BillingCfg *config.BillingConfigHolder
	OrgRepo    organizationdomain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	billingCfg *config.BillingConfigHolder
	orgRepo    organizationdomain.Repository
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("usage.service"),
		clock:      p.Clock,
		billingCfg: p.BillingCfg,
		orgRepo:    p.OrgRepo,
		obsMetrics: p.ObsMetrics,
	}
}

// ResetMonthlyUsage implements domain.Service. A missing org or limits row
// is reported, not raised: the sweeper must keep moving.
func (s *Service) ResetMonthlyUsage(ctx context.Context, tenantID string) (domain.ResetOutcome, error) {
	org, err := s.orgRepo.FindByTenantID(ctx, s.db, tenantID)
	if err != nil {
		return "", err
	}
	if org == nil {
		s.log.Warn("usage reset skipped, organization not found", zap.String("tenant_id", tenantID))
		s.obsMetrics.IncUsageReset(obsmetrics.OutcomeSkipped)
		return domain.ResetOutcomeOrgMissing, nil
	}

	limits, err := s.orgRepo.FindLimitsByOrgID(ctx, s.db, org.ID)
	if err != nil {
		return "", err
	}
	if limits == nil {
		s.log.Warn("usage reset skipped, limits row not found",
			zap.String("tenant_id", tenantID),
			zap.Int64("org_id", int64(org.ID)),
		)
		s.obsMetrics.IncUsageReset(obsmetrics.OutcomeSkipped)
		return domain.ResetOutcomeLimitsMissing, nil
	}

	now := s.clock.Now()
	threshold := s.billingCfg.Get().UsageResetThreshold()
	if now.Sub(limits.LastUsageReset) < threshold {
		return domain.ResetOutcomeNotDue, nil
	}

	limits.MonthlyCreditsUsed = 0
	limits.LastUsageReset = now
	limits.UpdatedAt = now
	if err := s.orgRepo.SaveLimits(ctx, s.db, limits); err != nil {
		return "", err
	}

	s.obsMetrics.IncUsageReset(obsmetrics.OutcomeApplied)
	return domain.ResetOutcomeApplied, nil
}

// Sweep implements domain.Service. The cutoff query makes the threshold
// check cheap; rows are still re-checked per item since another sweeper
// instance may have reset them in between.
func (s *Service) Sweep(ctx context.Context) (domain.SweepStats, error) {
	var stats domain.SweepStats

	billing := s.billingCfg.Get()
	threshold := billing.UsageResetThreshold()
	batchSize := billing.SweepBatchSize

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		now := s.clock.Now()
		cutoff := now.Add(-threshold)
		due, err := s.orgRepo.ListLimitsDueForReset(ctx, s.db, cutoff, batchSize)
		if err != nil {
			return stats, err
		}
		if len(due) == 0 {
			return stats, nil
		}

		for i := range due {
			limits := &due[i]
			stats.Scanned++

			if now.Sub(limits.LastUsageReset) < threshold {
				stats.Skipped++
				continue
			}

			limits.MonthlyCreditsUsed = 0
			limits.LastUsageReset = now
			limits.UpdatedAt = now
			if err := s.orgRepo.SaveLimits(ctx, s.db, limits); err != nil {
				return stats, err
			}
			stats.Reset++
			s.obsMetrics.IncUsageReset(obsmetrics.OutcomeApplied)
		}

		if len(due) < batchSize {
			return stats, nil
		}
	}
}
