// Package payment is the client for the external payment gateway. The
// gateway exposes two operations: generating a payment link for an amount
// and verifying the state of a payment. Its wire protocol beyond these is
// out of scope.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Status is the gateway's verdict on a payment.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
	StatusPending Status = "PENDING"
	StatusExpired Status = "EXPIRED"
)

// Link is a generated payment link.
type Link struct {
	PaymentID string `json:"payment_id"`
	URL       string `json:"url"`
}

// Gateway is the client contract used by the order and payment services.
type Gateway interface {
	Generate(ctx context.Context, orderID string, amountCents int64) (Link, error)
	Verify(ctx context.Context, paymentID string) (Status, error)
}

// Client talks to the gateway over HTTP with a per-attempt timeout.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Generate(ctx context.Context, orderID string, amountCents int64) (Link, error) {
	body, err := json.Marshal(map[string]any{
		"order_id": orderID,
		"amount":   amountCents,
	})
	if err != nil {
		return Link{}, fmt.Errorf("encode generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return Link{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Link{}, fmt.Errorf("gateway generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return Link{}, fmt.Errorf("gateway generate: unexpected status %d", resp.StatusCode)
	}

	var link Link
	if err := json.NewDecoder(resp.Body).Decode(&link); err != nil {
		return Link{}, fmt.Errorf("decode generate response: %w", err)
	}
	return link, nil
}

func (c *Client) Verify(ctx context.Context, paymentID string) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/payments/"+paymentID, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway verify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway verify: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Status Status `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode verify response: %w", err)
	}

	switch payload.Status {
	case StatusSuccess, StatusFailure, StatusPending, StatusExpired:
		return payload.Status, nil
	default:
		return "", fmt.Errorf("gateway verify: unknown status %q", payload.Status)
	}
}
