package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	paymentdomain "github.com/postpulse/postpulse/internal/payment/domain"
)

func buildSignatureHeader(secret string, payload []byte, timestamp int64) string {
	signed := fmt.Sprintf("%d.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signed))
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestNewAdapterRequiresSecret(t *testing.T) {
	if _, err := NewAdapter("   "); !errors.Is(err, ErrMissingWebhookSecret) {
		t.Fatalf("expected ErrMissingWebhookSecret, got %v", err)
	}
	if _, err := NewAdapter("whsec_test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_123","type":"checkout.session.completed","data":{"object":{}}}`)
	timestamp := time.Now().Unix()

	adapter, err := NewAdapter(secret)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	reqHeader := http.Header{}
	reqHeader.Set("Stripe-Signature", buildSignatureHeader(secret, payload, timestamp))
	if err := adapter.Verify(context.Background(), payload, reqHeader); err != nil {
		t.Fatalf("expected valid signature, got error: %v", err)
	}

	reqHeader.Set("Stripe-Signature", buildSignatureHeader("wrong", payload, timestamp))
	if err := adapter.Verify(context.Background(), payload, reqHeader); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	reqHeader.Del("Stripe-Signature")
	if err := adapter.Verify(context.Background(), payload, reqHeader); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for missing header, got %v", err)
	}

	reqHeader.Set("Stripe-Signature", "t=123")
	if err := adapter.Verify(context.Background(), payload, reqHeader); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for malformed header, got %v", err)
	}
}

func TestParseCheckoutSessionCompleted(t *testing.T) {
	adapter, _ := NewAdapter("whsec_test")
	created := time.Now().UTC().Unix()

	payload, _ := json.Marshal(map[string]any{
		"id":      "evt_checkout",
		"type":    "checkout.session.completed",
		"created": created,
		"data": map[string]any{
			"object": map[string]any{
				"id":           "cs_1",
				"mode":         "subscription",
				"customer":     "cus_1",
				"subscription": "sub_1",
				"created":      created,
				"metadata": map[string]any{
					"tenant_id":       "org_1",
					"user_id":         "user_1",
					"plan_lookup_key": "pro_monthly",
				},
			},
		},
	})

	event, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.Type != paymentdomain.EventTypeCheckoutCompleted {
		t.Fatalf("unexpected type %q", event.Type)
	}
	if event.TenantID != "org_1" || event.UserID != "user_1" || event.PlanLookupKey != "pro_monthly" {
		t.Fatalf("metadata not extracted: %+v", event)
	}
	if event.CustomerID != "cus_1" || event.SubscriptionID != "sub_1" {
		t.Fatalf("provider ids not extracted: %+v", event)
	}
}

func TestParseCheckoutSessionFallsBackToClientReferenceID(t *testing.T) {
	adapter, _ := NewAdapter("whsec_test")

	payload, _ := json.Marshal(map[string]any{
		"id":   "evt_checkout",
		"type": "checkout.session.completed",
		"data": map[string]any{
			"object": map[string]any{
				"id":                  "cs_1",
				"mode":                "payment",
				"client_reference_id": "org_9",
				"metadata": map[string]any{
					"user_id":         "user_1",
					"plan_lookup_key": "agency_ltd",
				},
			},
		},
	})

	event, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.TenantID != "org_9" {
		t.Fatalf("expected tenant from client_reference_id, got %q", event.TenantID)
	}
}

func TestParseSubscriptionUpdated(t *testing.T) {
	adapter, _ := NewAdapter("whsec_test")
	created := time.Now().UTC().Unix()
	periodEnd := created + 30*24*3600

	payload, _ := json.Marshal(map[string]any{
		"id":      "evt_sub",
		"type":    "customer.subscription.updated",
		"created": created,
		"data": map[string]any{
			"object": map[string]any{
				"id":                   "sub_1",
				"status":               "active",
				"customer":             "cus_1",
				"current_period_end":   periodEnd,
				"billing_cycle_anchor": created,
				"metadata":             map[string]any{"tenant_id": "org_1"},
				"items": map[string]any{
					"data": []map[string]any{
						{"price": map[string]any{"id": "price_1", "lookup_key": "pro_monthly"}},
					},
				},
			},
		},
	})

	event, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.Type != paymentdomain.EventTypeSubscriptionUpdated {
		t.Fatalf("unexpected type %q", event.Type)
	}
	if event.PlanLookupKey != "pro_monthly" {
		t.Fatalf("expected lookup key from first line item, got %q", event.PlanLookupKey)
	}
	if event.PeriodEndSeconds == nil || *event.PeriodEndSeconds != periodEnd {
		t.Fatalf("period end not extracted: %+v", event.PeriodEndSeconds)
	}
	if event.AnchorSeconds == nil || *event.AnchorSeconds != created {
		t.Fatalf("anchor not extracted: %+v", event.AnchorSeconds)
	}
}

func TestParseSubscriptionWithoutItemsYieldsEmptyLookupKey(t *testing.T) {
	adapter, _ := NewAdapter("whsec_test")

	payload, _ := json.Marshal(map[string]any{
		"id":   "evt_sub",
		"type": "customer.subscription.updated",
		"data": map[string]any{
			"object": map[string]any{
				"id":       "sub_1",
				"status":   "active",
				"metadata": map[string]any{"tenant_id": "org_1"},
				"items":    map[string]any{"data": []map[string]any{}},
			},
		},
	})

	event, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.PlanLookupKey != "" {
		t.Fatalf("expected empty lookup key, got %q", event.PlanLookupKey)
	}
}

func TestParseIgnoresUnknownEventTypes(t *testing.T) {
	adapter, _ := NewAdapter("whsec_test")

	payload := []byte(`{"id":"evt_x","type":"invoice.paid","data":{"object":{}}}`)
	if _, err := adapter.Parse(context.Background(), payload); !errors.Is(err, paymentdomain.ErrEventIgnored) {
		t.Fatalf("expected ErrEventIgnored, got %v", err)
	}

	if _, err := adapter.Parse(context.Background(), []byte("{not json")); !errors.Is(err, paymentdomain.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}

	if _, err := adapter.Parse(context.Background(), []byte(`{"type":"checkout.session.completed"}`)); !errors.Is(err, paymentdomain.ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent for missing id, got %v", err)
	}
}
