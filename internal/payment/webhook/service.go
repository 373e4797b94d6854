// Package webhook runs the inbound payment event pipeline: signature
// verification, the durable event ledger, and dispatch into the
// entitlement writer.
package webhook

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/postpulse/postpulse/internal/clock"
	"github.com/postpulse/postpulse/internal/config"
	entitlementdomain "github.com/postpulse/postpulse/internal/entitlement/domain"
	obsmetrics "github.com/postpulse/postpulse/internal/observability/metrics"
	paymentdomain "github.com/postpulse/postpulse/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	BillingCfg     *config.BillingConfigHolder
	Repo           paymentdomain.Repository
	Adapter        paymentdomain.Adapter
	ProviderClient paymentdomain.ProviderClient
	EntitlementSvc entitlementdomain.Service
	ObsMetrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	billingCfg     *config.BillingConfigHolder
	repo           paymentdomain.Repository
	adapter        paymentdomain.Adapter
	providerClient paymentdomain.ProviderClient
	entitlementSvc entitlementdomain.Service
	obsMetrics     *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("payment.webhook"),
		genID:          p.GenID,
		clock:          p.Clock,
		billingCfg:     p.BillingCfg,
		repo:           p.Repo,
		adapter:        p.Adapter,
		providerClient: p.ProviderClient,
		entitlementSvc: p.EntitlementSvc,
		obsMetrics:     p.ObsMetrics,
	}
}

// ProcessWebhook runs one delivery through the full pipeline. The error
// contract mirrors what the transport maps to HTTP statuses: verification
// and fatal handler errors propagate, ignored and duplicate deliveries come
// back as their sentinel errors so the transport can ack them.
func (s *Service) ProcessWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider != s.adapter.Provider() {
		return paymentdomain.ErrUnknownProvider
	}

	if err := s.adapter.Verify(ctx, payload, headers); err != nil {
		return err
	}

	event, err := s.adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			s.obsMetrics.IncWebhookEvent("unknown", obsmetrics.OutcomeIgnored)
		}
		return err
	}

	now := s.clock.Now()
	received := paymentdomain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		TenantID:        event.TenantID,
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      now,
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &received)
	if err != nil {
		return err
	}
	stored := &received
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, event.Provider, event.ProviderEventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return paymentdomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			s.obsMetrics.IncWebhookEvent(event.Type, obsmetrics.OutcomeDuplicate)
			return paymentdomain.ErrEventAlreadyProcessed
		}
	}

	if err := s.dispatch(ctx, event); err != nil {
		s.obsMetrics.IncWebhookEvent(event.Type, obsmetrics.OutcomeError)
		return err
	}

	return s.repo.MarkProcessed(ctx, s.db, stored.ID, s.clock.Now())
}

// dispatch invokes exactly one handler per event type. Types the adapter
// recognizes but this switch does not are acked as a no-op.
func (s *Service) dispatch(ctx context.Context, event *paymentdomain.Event) error {
	switch event.Type {
	case paymentdomain.EventTypeCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, event)
	case paymentdomain.EventTypeSubscriptionUpdated:
		return s.handleSubscriptionUpdated(ctx, event)
	case paymentdomain.EventTypeSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, event)
	default:
		s.log.Info("unhandled event type acknowledged",
			zap.String("event_type", event.Type),
			zap.String("provider_event_id", event.ProviderEventID),
		)
		s.obsMetrics.IncWebhookEvent(event.Type, obsmetrics.OutcomeIgnored)
		return nil
	}
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, event *paymentdomain.Event) error {
	if event.TenantID == "" || event.UserID == "" || event.PlanLookupKey == "" {
		return paymentdomain.ErrMissingMetadata
	}

	customerID := event.CustomerID
	if customerID == "" {
		if event.SubscriptionID != "" {
			// A subscription checkout always pre-creates its customer.
			return paymentdomain.ErrMissingCustomer
		}
		created, err := s.providerClient.CreateCustomer(ctx, event.TenantID, event.UserID)
		if err != nil {
			s.log.Warn("customer creation failed, activating without customer id",
				zap.String("tenant_id", event.TenantID),
				zap.Error(err),
			)
		} else {
			customerID = created
		}
	}

	anchorSeconds := event.AnchorSeconds
	var subscriptionID *string
	if event.SubscriptionID != "" {
		subID := event.SubscriptionID
		subscriptionID = &subID
		if anchorSeconds == nil {
			sub, err := s.providerClient.GetSubscription(ctx, event.SubscriptionID)
			if err != nil {
				s.log.Warn("subscription fetch failed, anchor unknown",
					zap.String("tenant_id", event.TenantID),
					zap.String("subscription_id", event.SubscriptionID),
					zap.Error(err),
				)
			} else {
				anchorSeconds = sub.AnchorSeconds
			}
		}
	}

	if err := s.entitlementSvc.FulfillCheckout(ctx, entitlementdomain.CheckoutFulfillment{
		TenantID:       event.TenantID,
		PlanLookupKey:  event.PlanLookupKey,
		CustomerID:     customerID,
		SubscriptionID: subscriptionID,
		AnchorSeconds:  anchorSeconds,
	}); err != nil {
		return err
	}

	s.obsMetrics.IncWebhookEvent(event.Type, obsmetrics.OutcomeApplied)
	return nil
}

func (s *Service) handleSubscriptionUpdated(ctx context.Context, event *paymentdomain.Event) error {
	if event.TenantID == "" || event.PlanLookupKey == "" {
		// An untagged subscription event is not actionable. It must not
		// block the webhook queue.
		s.log.Info("subscription update without tenant or plan metadata, skipping",
			zap.String("provider_event_id", event.ProviderEventID),
			zap.String("subscription_id", event.SubscriptionID),
		)
		s.obsMetrics.IncWebhookEvent(event.Type, obsmetrics.OutcomeSkipped)
		return nil
	}

	result, err := s.entitlementSvc.UpdateSubscriptionStatus(ctx, entitlementdomain.SubscriptionUpdate{
		TenantID:         event.TenantID,
		PlanLookupKey:    event.PlanLookupKey,
		SubscriptionID:   event.SubscriptionID,
		Status:           event.Status,
		PeriodEndSeconds: event.PeriodEndSeconds,
		AnchorSeconds:    event.AnchorSeconds,
	})
	if err != nil {
		return err
	}
	if !result.Applied {
		s.obsMetrics.IncWebhookEvent(event.Type, obsmetrics.OutcomeSkipped)
		return nil
	}

	s.obsMetrics.IncWebhookEvent(event.Type, obsmetrics.OutcomeApplied)
	return nil
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, event *paymentdomain.Event) error {
	if event.TenantID == "" {
		s.log.Info("subscription deletion without tenant metadata, skipping",
			zap.String("provider_event_id", event.ProviderEventID),
			zap.String("subscription_id", event.SubscriptionID),
		)
		s.obsMetrics.IncWebhookEvent(event.Type, obsmetrics.OutcomeSkipped)
		return nil
	}

	downgradeKey := s.billingCfg.Get().TrialPlanLookupKey
	if err := s.entitlementSvc.HandleCancellation(ctx, event.TenantID, downgradeKey); err != nil {
		return err
	}

	s.obsMetrics.IncWebhookEvent(event.Type, obsmetrics.OutcomeApplied)
	return nil
}
