// Package payment wraps the Paystack REST API. Only transaction
// initialization (hosted payment pages) and verification are used; there
// is no webhook handling.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.paystack.co"

// DefaultChannels are the payment channels requested on every hosted
// page: mobile money first for the Ghanaian market, then card and bank
// transfer.
var DefaultChannels = []string{"mobile_money", "card", "bank_transfer"}

// Client is a minimal Paystack API client authenticated with the secret key.
type Client struct {
	secretKey string
	baseURL   string
	http      *http.Client
}

func NewClient(secretKey string) *Client {
	return &Client{
		secretKey: secretKey,
		baseURL:   defaultBaseURL,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

// NewClientWithBaseURL points the client at a non-default API host.
func NewClientWithBaseURL(secretKey, baseURL string) *Client {
	c := NewClient(secretKey)
	c.baseURL = baseURL
	return c
}

// InitializeRequest is the POST /transaction/initialize payload. Amount is
// in minor currency units (pesewas): major amount * 100.
type InitializeRequest struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url"`
	Metadata    map[string]string `json:"metadata"`
	Channels    []string          `json:"channels"`
}

// InitializeData is the useful part of a successful initialize response.
type InitializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyData is the useful part of a transaction verify response.
type VerifyData struct {
	Status    string `json:"status"` // e.g. success, failed, abandoned
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"` // minor units
	Currency  string `json:"currency"`
	Channel   string `json:"channel"`
	PaidAt    string `json:"paid_at"`
}

type initializeResponse struct {
	Status  bool           `json:"status"`
	Message string         `json:"message"`
	Data    InitializeData `json:"data"`
}

type verifyResponse struct {
	Status  bool       `json:"status"`
	Message string     `json:"message"`
	Data    VerifyData `json:"data"`
}

// InitializeTransaction creates a hosted payment page and returns its
// authorization URL. A 200 response without an authorization URL is still
// an error.
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializeData, error) {
	var resp initializeResponse
	if err := c.post(ctx, "/transaction/initialize", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, fmt.Errorf("paystack: %s", orDefault(resp.Message, "payment initialization failed"))
	}
	if resp.Data.AuthorizationURL == "" {
		return nil, fmt.Errorf("paystack: no authorization url in response")
	}
	return &resp.Data, nil
}

// VerifyTransaction looks up the state of a transaction by reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyData, error) {
	var resp verifyResponse
	if err := c.get(ctx, "/transaction/verify/"+reference, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, fmt.Errorf("paystack: %s", orDefault(resp.Message, "payment verification failed"))
	}
	return &resp.Data, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("paystack request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("paystack: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Error bodies still carry {status, message}; surface the message.
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &apiErr)
		return fmt.Errorf("paystack: %s", orDefault(apiErr.Message, resp.Status))
	}

	return json.Unmarshal(raw, out)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
