// Package domain defines the canonical payment event model shared by the
// provider adapters and the webhook pipeline.
package domain

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrUnknownProvider       = errors.New("unknown_provider")

	// ErrMissingMetadata is fatal on checkout completion: a checkout this
	// system created always carries tenant, user and plan metadata, so its
	// absence means the event must be retried, not skipped.
	ErrMissingMetadata = errors.New("missing_metadata")

	// ErrMissingCustomer is fatal: a subscription checkout must arrive with
	// a provider customer already attached.
	ErrMissingCustomer = errors.New("missing_customer")
)

// EventRecord is the durable webhook ledger row. The unique index on
// (provider, provider_event_id) is what makes redelivery safe.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	TenantID        string         `json:"tenant_id" gorm:"type:text;not null;default:''"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

const (
	EventTypeCheckoutCompleted   = "checkout_completed"
	EventTypeSubscriptionUpdated = "subscription_updated"
	EventTypeSubscriptionDeleted = "subscription_deleted"
)

// Event is the canonical webhook event parsed by a provider adapter.
// Fields beyond Provider, ProviderEventID and Type are populated per event
// type; the handlers decide which absences are fatal and which are
// ignorable.
type Event struct {
	Provider        string
	ProviderEventID string
	Type            string

	TenantID      string
	UserID        string
	PlanLookupKey string

	CustomerID     string
	SubscriptionID string
	Status         string

	PeriodEndSeconds *int64
	AnchorSeconds    *int64

	OccurredAt time.Time
	RawPayload []byte
}

// Adapter verifies and parses a provider's webhook payload into the
// canonical event model.
type Adapter interface {
	Provider() string
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*Event, error)
}

// Subscription is the subset of a provider subscription object the checkout
// handler re-fetches to learn the billing-cycle anchor.
type Subscription struct {
	ID               string
	Status           string
	CustomerID       string
	PlanLookupKey    string
	AnchorSeconds    *int64
	PeriodEndSeconds *int64
}

// ProviderClient is the outbound half of the provider integration. Both
// calls are best effort on the checkout path: a failure is logged and the
// entitlement write proceeds without the detail.
type ProviderClient interface {
	CreateCustomer(ctx context.Context, tenantID, userID string) (string, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
}

type Repository interface {
	// InsertEvent records a delivery, reporting false when the provider
	// event id was already seen.
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, provider string, providerEventID string) (*EventRecord, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error
}
