package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientCreateCustomer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/customers" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test" {
			t.Fatalf("unexpected auth header %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("metadata[tenant_id]"); got != "org_1" {
			t.Fatalf("unexpected tenant metadata %q", got)
		}
		w.Write([]byte(`{"id":"cus_new"}`))
	}))
	defer srv.Close()

	client := NewClient("sk_test", srv.URL)
	id, err := client.CreateCustomer(context.Background(), "org_1", "user_1")
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if id != "cus_new" {
		t.Fatalf("unexpected customer id %q", id)
	}
}

func TestClientGetSubscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/subscriptions/sub_1" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"id": "sub_1",
			"status": "active",
			"customer": "cus_1",
			"billing_cycle_anchor": 1756684800,
			"current_period_end": 1759276800,
			"items": {"data": [{"price": {"id": "price_1", "lookup_key": "pro_monthly"}}]}
		}`))
	}))
	defer srv.Close()

	client := NewClient("sk_test", srv.URL)
	sub, err := client.GetSubscription(context.Background(), "sub_1")
	if err != nil {
		t.Fatalf("get subscription: %v", err)
	}
	if sub.Status != "active" || sub.PlanLookupKey != "pro_monthly" {
		t.Fatalf("unexpected subscription %+v", sub)
	}
	if sub.AnchorSeconds == nil || *sub.AnchorSeconds != 1756684800 {
		t.Fatalf("anchor not parsed: %+v", sub.AnchorSeconds)
	}
}

func TestClientSurfacesStripeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"message":"No such subscription: sub_missing"}}`))
	}))
	defer srv.Close()

	client := NewClient("sk_test", srv.URL)
	if _, err := client.GetSubscription(context.Background(), "sub_missing"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient("", "")
	if _, err := client.CreateCustomer(context.Background(), "org_1", "user_1"); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
