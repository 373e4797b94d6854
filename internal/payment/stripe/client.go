package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	paymentdomain "github.com/postpulse/postpulse/internal/payment/domain"
)

const defaultAPIBaseURL = "https://api.stripe.com"

type stripeErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to the Stripe REST API directly with form-encoded requests.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewClient(apiKey, baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: baseURL,
		client:  &http.Client{Timeout: 12 * time.Second},
	}
}

type stripeCustomer struct {
	ID string `json:"id"`
}

func (c *Client) CreateCustomer(ctx context.Context, tenantID, userID string) (string, error) {
	values := url.Values{}
	values.Set("metadata[tenant_id]", tenantID)
	values.Set("metadata[user_id]", userID)

	body, err := c.doRequest(ctx, http.MethodPost, "/v1/customers", values, "customer:"+tenantID)
	if err != nil {
		return "", err
	}

	var customer stripeCustomer
	if err := json.Unmarshal(body, &customer); err != nil {
		return "", err
	}
	if customer.ID == "" {
		return "", errors.New("stripe_response_invalid")
	}
	return customer.ID, nil
}

func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*paymentdomain.Subscription, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/v1/subscriptions/"+url.PathEscape(subscriptionID), nil, "")
	if err != nil {
		return nil, err
	}

	var sub stripeSubscription
	if err := json.Unmarshal(body, &sub); err != nil {
		return nil, err
	}
	if sub.ID == "" {
		return nil, errors.New("stripe_response_invalid")
	}

	parsed := &paymentdomain.Subscription{
		ID:            sub.ID,
		Status:        strings.TrimSpace(sub.Status),
		CustomerID:    strings.TrimSpace(sub.Customer),
		PlanLookupKey: firstItemLookupKey(sub.Items),
	}
	if sub.BillingCycleAnchor > 0 {
		anchor := sub.BillingCycleAnchor
		parsed.AnchorSeconds = &anchor
	}
	if sub.CurrentPeriodEnd > 0 {
		periodEnd := sub.CurrentPeriodEnd
		parsed.PeriodEndSeconds = &periodEnd
	}
	return parsed, nil
}

func (c *Client) doRequest(
	ctx context.Context,
	method string,
	path string,
	values url.Values,
	idempotencyKey string,
) ([]byte, error) {
	if c.apiKey == "" {
		return nil, errors.New("stripe_api_key_missing")
	}
	var bodyReader *strings.Reader
	if values != nil {
		bodyReader = strings.NewReader(values.Encode())
	} else {
		bodyReader = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr stripeErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err != nil {
			return nil, errors.New("stripe_request_failed")
		}
		message := strings.TrimSpace(stripeErr.Error.Message)
		if message == "" {
			message = "stripe_request_failed"
		}
		return nil, errors.New(message)
	}

	var out json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
