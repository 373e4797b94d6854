package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/postpulse/postpulse/internal/clock"
	"github.com/postpulse/postpulse/internal/config"
	"github.com/postpulse/postpulse/internal/entitlement/domain"
	organizationdomain "github.com/postpulse/postpulse/internal/organization/domain"
	plandomain "github.com/postpulse/postpulse/internal/plan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	subscriptionStatusActive   = "active"
	subscriptionStatusCanceled = "canceled"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	PlanRepo   plandomain.Repository
	OrgRepo    organizationdomain.Repository
	BillingCfg *config.BillingConfigHolder
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	planRepo   plandomain.Repository
	orgRepo    organizationdomain.Repository
	billingCfg *config.BillingConfigHolder
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("entitlement.service"),
		clock:      p.Clock,
		planRepo:   p.PlanRepo,
		orgRepo:    p.OrgRepo,
		billingCfg: p.BillingCfg,
	}
}

// FulfillCheckout implements domain.Service.
func (s *Service) FulfillCheckout(ctx context.Context, req domain.CheckoutFulfillment) error {
	now := s.clock.Now()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		plan, err := s.planRepo.FindActiveByLookupKey(ctx, tx, req.PlanLookupKey)
		if err != nil {
			return err
		}
		if plan == nil {
			return domain.ErrPlanNotFound
		}

		org, err := s.orgRepo.FindByTenantID(ctx, tx, req.TenantID)
		if err != nil {
			return err
		}
		if org == nil {
			return organizationdomain.ErrNotFound
		}

		anchorDay := anchorDayFor(plan, req.AnchorSeconds, now)

		planID := plan.ID
		org.PlanID = &planID
		if req.CustomerID != "" {
			org.StripeCustomerID = strPtr(req.CustomerID)
		}
		org.StripeSubscriptionID = req.SubscriptionID
		if req.SubscriptionID != nil {
			org.StripeSubscriptionStatus = strPtr(subscriptionStatusActive)
		} else {
			org.StripeSubscriptionStatus = nil
		}
		org.StripeCurrentPeriodEnd = nil
		org.IsOnTrial = false
		org.TrialEndDate = nil
		org.BillingAnchorDay = anchorDay

		if plan.IsLifetime() {
			org.LifetimeAccess = true
			org.ActiveLtdCampaign = plan.LtdCampaign
			if plan.LtdStackLevel != nil {
				org.TotalStacksRedeemed = *plan.LtdStackLevel
			} else {
				org.TotalStacksRedeemed = 1
			}
			purchase := now
			org.LtdPurchaseDate = &purchase
		} else {
			org.LifetimeAccess = false
			org.ActiveLtdCampaign = nil
			org.TotalStacksRedeemed = 0
			org.LtdPurchaseDate = nil
		}
		org.UpdatedAt = now

		if err := s.orgRepo.SaveOrganization(ctx, tx, org); err != nil {
			return err
		}

		return s.refreshLimits(ctx, tx, org.ID, *plan, now)
	})
}

// UpdateSubscriptionStatus implements domain.Service.
//
// An unknown plan lookup key is a soft failure: the organization keeps its
// current entitlements and the event is acked so the provider stops
// redelivering it.
func (s *Service) UpdateSubscriptionStatus(ctx context.Context, req domain.SubscriptionUpdate) (domain.UpdateResult, error) {
	now := s.clock.Now()
	var result domain.UpdateResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := s.orgRepo.FindByTenantID(ctx, tx, req.TenantID)
		if err != nil {
			return err
		}
		if org == nil {
			return organizationdomain.ErrNotFound
		}

		plan, err := s.planRepo.FindActiveByLookupKey(ctx, tx, req.PlanLookupKey)
		if err != nil {
			return err
		}
		if plan == nil {
			s.log.Warn("subscription update references unknown plan, skipping",
				zap.String("tenant_id", req.TenantID),
				zap.String("lookup_key", req.PlanLookupKey),
				zap.String("subscription_id", req.SubscriptionID),
			)
			result = domain.UpdateResult{SkipReason: domain.SkipReasonPlanNotFound}
			return nil
		}

		planChanged := org.PlanID == nil || *org.PlanID != plan.ID

		org.StripeSubscriptionID = strPtr(req.SubscriptionID)
		org.StripeSubscriptionStatus = strPtr(req.Status)
		if req.PeriodEndSeconds != nil {
			periodEnd := time.Unix(*req.PeriodEndSeconds, 0).UTC()
			org.StripeCurrentPeriodEnd = &periodEnd
		} else {
			org.StripeCurrentPeriodEnd = nil
		}
		if req.AnchorSeconds != nil {
			day := int16(time.Unix(*req.AnchorSeconds, 0).UTC().Day())
			org.BillingAnchorDay = &day
		}
		if planChanged {
			planID := plan.ID
			org.PlanID = &planID
		}
		if !plan.IsLifetime() {
			// A monthly-plan event must never leave stale lifetime flags set.
			org.LifetimeAccess = false
			org.ActiveLtdCampaign = nil
			org.TotalStacksRedeemed = 0
			org.LtdPurchaseDate = nil
		}
		org.UpdatedAt = now

		if err := s.orgRepo.SaveOrganization(ctx, tx, org); err != nil {
			return err
		}

		if planChanged {
			if err := s.refreshLimits(ctx, tx, org.ID, *plan, now); err != nil {
				return err
			}
		}

		result = domain.UpdateResult{Applied: true, PlanChanged: planChanged}
		return nil
	})
	if err != nil {
		return domain.UpdateResult{}, err
	}
	return result, nil
}

// HandleCancellation implements domain.Service. Cancellation always lands
// the tenant on the downgrade plan, never on "no plan".
func (s *Service) HandleCancellation(ctx context.Context, tenantID, downgradeLookupKey string) error {
	now := s.clock.Now()
	billing := s.billingCfg.Get()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		plan, err := s.planRepo.FindActiveByLookupKey(ctx, tx, downgradeLookupKey)
		if err != nil {
			return err
		}
		if plan == nil {
			return domain.ErrPlanNotFound
		}

		org, err := s.orgRepo.FindByTenantID(ctx, tx, tenantID)
		if err != nil {
			return err
		}
		if org == nil {
			return organizationdomain.ErrNotFound
		}

		planID := plan.ID
		org.PlanID = &planID
		org.StripeSubscriptionID = nil
		org.StripeSubscriptionStatus = strPtr(subscriptionStatusCanceled)
		org.StripeCurrentPeriodEnd = nil
		org.LifetimeAccess = false
		org.ActiveLtdCampaign = nil
		org.TotalStacksRedeemed = 0
		org.LtdPurchaseDate = nil
		org.BillingAnchorDay = nil

		if plan.LookupKey == billing.TrialPlanLookupKey {
			org.IsOnTrial = true
			trialEnd := now.Add(billing.TrialDuration())
			org.TrialEndDate = &trialEnd
		} else {
			org.IsOnTrial = false
			org.TrialEndDate = nil
		}
		org.UpdatedAt = now

		if err := s.orgRepo.SaveOrganization(ctx, tx, org); err != nil {
			return err
		}

		return s.refreshLimits(ctx, tx, org.ID, *plan, now)
	})
}

// refreshLimits is the single point where "new plan means new limits" is
// enforced. The limits row must already exist; provisioning creates it.
func (s *Service) refreshLimits(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, plan plandomain.Plan, now time.Time) error {
	limits, err := s.orgRepo.FindLimitsByOrgID(ctx, tx, orgID)
	if err != nil {
		return err
	}
	if limits == nil {
		return organizationdomain.ErrLimitsNotFound
	}

	limits.ApplyPlan(plan, now)
	return s.orgRepo.SaveLimits(ctx, tx, limits)
}

func anchorDayFor(plan *plandomain.Plan, anchorSeconds *int64, now time.Time) *int16 {
	if anchorSeconds != nil {
		day := int16(time.Unix(*anchorSeconds, 0).UTC().Day())
		return &day
	}
	if !plan.IsLifetime() {
		// No anchor on a fresh subscription: bill on the day you signed up.
		day := int16(now.Day())
		return &day
	}
	return nil
}

func strPtr(v string) *string { return &v }
