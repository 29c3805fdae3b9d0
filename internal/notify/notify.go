// Package notify sends order confirmations over HTTP providers. Senders
// are best-effort collaborators: callers record outcomes but never let a
// failed send reverse order or ticket state.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/domain"
)

// HTTPEmailSender posts one consolidated ticket email per order to an
// email API.
type HTTPEmailSender struct {
	apiURL string
	apiKey string
	from   string
	http   *http.Client
}

func NewHTTPEmailSender(apiURL, apiKey, from string, client *http.Client) *HTTPEmailSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPEmailSender{apiURL: apiURL, apiKey: apiKey, from: from, http: client}
}

func (s *HTTPEmailSender) SendTickets(ctx context.Context, order domain.Order, tickets []domain.Ticket) error {
	links := make([]string, 0, len(tickets))
	for _, t := range tickets {
		links = append(links, t.CodeImageURL)
	}
	payload := map[string]any{
		"from":    s.from,
		"to":      order.Customer.Email,
		"subject": fmt.Sprintf("Your passes for order %s", order.ID),
		"body": fmt.Sprintf(
			"Hi %s, your %d pass(es) are attached.\n%s",
			order.Customer.Name, len(tickets), strings.Join(links, "\n"),
		),
	}
	return s.post(ctx, payload)
}

func (s *HTTPEmailSender) post(ctx context.Context, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("email provider: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("email provider: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// HTTPSMSSender posts one confirmation SMS per order to an SMS API.
type HTTPSMSSender struct {
	apiURL string
	apiKey string
	http   *http.Client
}

func NewHTTPSMSSender(apiURL, apiKey string, client *http.Client) *HTTPSMSSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSMSSender{apiURL: apiURL, apiKey: apiKey, http: client}
}

func (s *HTTPSMSSender) SendConfirmation(ctx context.Context, order domain.Order) error {
	body, err := json.Marshal(map[string]any{
		"to": order.Customer.Phone,
		"message": fmt.Sprintf(
			"Your order %s is confirmed: %d pass(es). Check your email for the codes.",
			order.ID, order.Quantity,
		),
	})
	if err != nil {
		return fmt.Errorf("encode sms: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("sms provider: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms provider: unexpected status %d", resp.StatusCode)
	}
	return nil
}
