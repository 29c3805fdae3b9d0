package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/app"
)

const webhookSignatureHeader = "X-Gateway-Signature"

// WebhookHandlerService is the minimal interface needed for gateway
// webhooks.
type WebhookHandlerService interface {
	HandleWebhook(ctx context.Context, payload app.WebhookPayload) (app.VerifyResult, error)
}

// HandleGatewayWebhook serves the asynchronous gateway notification. The
// payload is trusted only after its HMAC-SHA256 signature over the raw
// body checks out; duplicate deliveries resolve idempotently downstream.
func HandleGatewayWebhook(svc WebhookHandlerService, secret string) http.HandlerFunc {
	key := []byte(secret)
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "unreadable body")
			return
		}

		if !validSignature(key, body, r.Header.Get(webhookSignatureHeader)) {
			writeError(w, http.StatusUnauthorized, codeInvalidSignature, "invalid signature")
			return
		}

		var payload app.WebhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid payload")
			return
		}
		if payload.OrderID == "" || payload.PaymentID == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "payment_id and order_id are required")
			return
		}

		res, err := svc.HandleWebhook(r.Context(), payload)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(verifyResponse{
			Status:       string(res.Status),
			OrderUpdated: res.OrderUpdated,
		})
	}
}

func validSignature(key, body []byte, header string) bool {
	if header == "" {
		return false
	}
	sig, err := hex.DecodeString(header)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	return hmac.Equal(sig, mac.Sum(nil))
}
