package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/domain"
)

// Intent lifecycle statuses as reported by the gateway.
const (
	IntentStatusRequiresAction = "requires_action"
	IntentStatusSucceeded      = "succeeded"
	IntentStatusFailed         = "failed"
	IntentStatusCanceled       = "canceled"
)

// Intent is the gateway-issued handle for one attempt to charge an amount.
// Metadata set at creation time is echoed back on retrieval and in webhook
// events, which is what lets the webhook path rebuild an order without a
// live cart.
type Intent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret,omitempty"`
	Status       string            `json:"status"`
	AmountCents  int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type Gateway interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
}

// Client talks to the payment gateway's REST API.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

type createIntentRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (c *Client) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error) {
	body, err := json.Marshal(createIntentRequest{Amount: amountCents, Currency: currency, Metadata: metadata})
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, "/v1/payment_intents", bytes.NewReader(body))
}

func (c *Client) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	return c.do(ctx, http.MethodGet, "/v1/payment_intents/"+id, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body *bytes.Reader) (*Intent, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment gateway %s %s: %w: %v", method, path, domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("payment gateway %s %s: status %d: %w", method, path, resp.StatusCode, domain.ErrUpstream)
	}

	var intent Intent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, fmt.Errorf("payment gateway response: %w: %v", domain.ErrUpstream, err)
	}
	return &intent, nil
}
