package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/app"
)

// PaymentVerifier is the minimal interface needed for the verification
// endpoint.
type PaymentVerifier interface {
	VerifyAndSettle(ctx context.Context, paymentID, orderID string) (app.VerifyResult, error)
}

type verifyRequest struct {
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id"`
}

type verifyResponse struct {
	Status          string `json:"status"`
	OrderUpdated    bool   `json:"order_updated"`
	StillProcessing bool   `json:"still_processing,omitempty"`
}

// HandleVerifyPayment serves POST /payments/verify. The poll is bounded;
// exhausting it reports still_processing and leaves resolution to the
// webhook.
func HandleVerifyPayment(svc PaymentVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req verifyRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.PaymentID == "" || req.OrderID == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "payment_id and order_id are required")
			return
		}

		res, err := svc.VerifyAndSettle(r.Context(), req.PaymentID, req.OrderID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(verifyResponse{
			Status:          string(res.Status),
			OrderUpdated:    res.OrderUpdated,
			StillProcessing: res.StillProcessing,
		})
	}
}
