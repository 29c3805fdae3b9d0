package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/app"
	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/domain"
)

// AdminOrderService is the minimal interface needed for operator order
// actions.
type AdminOrderService interface {
	Approve(ctx context.Context, orderID, actor string) (app.ApproveResult, error)
	Cancel(ctx context.Context, orderID, actor string) (domain.Order, error)
	Refund(ctx context.Context, orderID, actor string) (domain.Order, error)
}

type approveResponse struct {
	Order             orderResponse `json:"order"`
	TicketsGenerated  bool          `json:"tickets_generated"`
	TicketsCount      int           `json:"tickets_count"`
	EmailSent         bool          `json:"email_sent"`
	SMSSent           bool          `json:"sms_sent"`
	NotificationsSent bool          `json:"notifications_sent"`
	AlreadyApproved   bool          `json:"already_approved"`
}

// HandleAdminOrders routes POST /orders/{id}/approve, /cancel and
// /refund. Repeated approval of the same order returns the same logical
// result with already_approved set, never an error.
func HandleAdminOrders(svc AdminOrderService, auth *Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		actor, err := auth.AdminSession(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "admin session required")
			return
		}

		if orderID, ok := parseOrderPath(r.URL.Path, "approve"); ok {
			res, err := svc.Approve(r.Context(), orderID, "admin:"+actor)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := approveResponse{
				Order:             toOrderResponse(res.Order),
				TicketsGenerated:  res.TicketsGenerated,
				TicketsCount:      res.TicketsCount,
				EmailSent:         res.EmailSent,
				SMSSent:           res.SMSSent,
				NotificationsSent: res.EmailSent || res.SMSSent,
				AlreadyApproved:   res.AlreadyApproved,
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
			return
		}

		if orderID, ok := parseOrderPath(r.URL.Path, "cancel"); ok {
			order, err := svc.Cancel(r.Context(), orderID, "admin:"+actor)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toOrderResponse(order))
			return
		}

		if orderID, ok := parseOrderPath(r.URL.Path, "refund"); ok {
			order, err := svc.Refund(r.Context(), orderID, "admin:"+actor)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toOrderResponse(order))
			return
		}

		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	}
}
