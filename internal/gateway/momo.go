package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var _ Gateway = (*MoMoClient)(nil)
var _ Reconciler = (*MoMoClient)(nil)

// DefaultTimeout bounds every provider call.
const DefaultTimeout = 15 * time.Second

// MoMoClient talks to a mobile money provider over HTTP/JSON.
//
//	POST {base}/v1/debits            {"phone","amount","currency","reference"}
//	POST {base}/v1/credits           same body
//	GET  {base}/v1/transactions/{reference}
type MoMoClient struct {
	baseURL  string
	apiKey   string
	currency string
	client   *http.Client
}

// MoMoConfig configures a MoMoClient.
type MoMoConfig struct {
	BaseURL  string
	APIKey   string
	Currency string
	Timeout  time.Duration
}

// NewMoMoClient creates a provider client.
func NewMoMoClient(cfg MoMoConfig) *MoMoClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "GHS"
	}
	return &MoMoClient{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		currency: currency,
		client:   &http.Client{Timeout: timeout},
	}
}

type transferRequest struct {
	Phone     string `json:"phone"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Reference string `json:"reference"`
}

type transferResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
}

// Debit implements Gateway.
func (c *MoMoClient) Debit(ctx context.Context, phone string, amount decimal.Decimal, reference string) (string, error) {
	return c.transfer(ctx, "/v1/debits", phone, amount, reference)
}

// Credit implements Gateway.
func (c *MoMoClient) Credit(ctx context.Context, phone string, amount decimal.Decimal, reference string) (string, error) {
	return c.transfer(ctx, "/v1/credits", phone, amount, reference)
}

// Lookup implements Reconciler.
func (c *MoMoClient) Lookup(ctx context.Context, reference string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/transactions/"+url.PathEscape(reference), nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to build lookup request: %w", err)
	}
	c.setHeaders(req, reference)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("%w: lookup returned %d", ErrTransport, resp.StatusCode)
	}

	var out transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", false, fmt.Errorf("%w: decode lookup: %v", ErrTransport, err)
	}
	if out.Status != "success" || out.TransactionID == "" {
		return "", false, nil
	}
	return out.TransactionID, true, nil
}

func (c *MoMoClient) transfer(ctx context.Context, path, phone string, amount decimal.Decimal, reference string) (string, error) {
	body, err := json.Marshal(transferRequest{
		Phone:     phone,
		Amount:    amount.StringFixed(2),
		Currency:  c.currency,
		Reference: reference,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode transfer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req, reference)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	var out transferResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil && resp.StatusCode < 300 {
			return "", fmt.Errorf("%w: decode response: %v", ErrTransport, err)
		}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out.TransactionID == "" {
			return "", fmt.Errorf("%w: response without transaction id", ErrTransport)
		}
		return out.TransactionID, nil
	case resp.StatusCode == http.StatusPaymentRequired:
		return "", fmt.Errorf("%w: %s", ErrInsufficientFunds, out.Reason)
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusUnprocessableEntity:
		return "", fmt.Errorf("%w: %s", ErrInvalidAccount, out.Reason)
	default:
		return "", fmt.Errorf("%w: provider returned %d", ErrTransport, resp.StatusCode)
	}
}

func (c *MoMoClient) setHeaders(req *http.Request, reference string) {
	req.Header.Set("User-Agent", "SusuSave/1.0")
	req.Header.Set("X-Reference-Id", reference)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
