// Package domain defines the entitlement writer contract: the only
// component allowed to mutate Organization and OrganizationLimits rows.
package domain

import (
	"context"
	"errors"
)

var (
	// ErrPlanNotFound is fatal during checkout fulfillment and cancellation;
	// during a subscription update it is absorbed as a soft skip instead.
	ErrPlanNotFound = errors.New("plan_not_found")
)

// CheckoutFulfillment carries everything a completed checkout resolved:
// tenant, plan, provider customer, and optionally the subscription and its
// billing-cycle anchor.
type CheckoutFulfillment struct {
	TenantID       string
	PlanLookupKey  string
	CustomerID     string
	SubscriptionID *string
	AnchorSeconds  *int64
}

// SubscriptionUpdate mirrors a subscription-object webhook: renewals, portal
// upgrades and downgrades.
type SubscriptionUpdate struct {
	TenantID         string
	PlanLookupKey    string
	SubscriptionID   string
	Status           string
	PeriodEndSeconds *int64
	AnchorSeconds    *int64
}

const (
	SkipReasonPlanNotFound = "plan_not_found"
)

// UpdateResult is the discriminated outcome of a subscription update.
// Applied=false with a SkipReason is a soft failure: state untouched, no
// transport-level retry requested.
type UpdateResult struct {
	Applied     bool
	PlanChanged bool
	SkipReason  string
}

// Service applies payment-provider state to an organization's entitlements.
// Each operation runs as one transaction over organizations and
// organization_limits; both patches commit or neither does.
type Service interface {
	FulfillCheckout(ctx context.Context, req CheckoutFulfillment) error
	UpdateSubscriptionStatus(ctx context.Context, req SubscriptionUpdate) (UpdateResult, error)
	HandleCancellation(ctx context.Context, tenantID, downgradeLookupKey string) error
}
