package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/app"
	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/domain"
)

// OutletOrderCreator is the minimal interface needed for POS orders.
type OutletOrderCreator interface {
	CreateOutletOrder(ctx context.Context, slug string, in app.CreateOrderInput) (domain.Order, error)
}

type outletOrderRequest struct {
	Customer customerPayload    `json:"customer"`
	Lines    []orderLinePayload `json:"lines"`
	EventID  string             `json:"event_id"`
}

// HandleOutletOrders serves POST /outlets/{slug}/orders. The outlet comes
// from the staff session cookie; a session scoped to a different outlet
// than the path is rejected.
func HandleOutletOrders(svc OutletOrderCreator, auth *Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		slug, ok := parseOutletOrdersPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		sessionSlug, err := auth.OutletSession(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "outlet session required")
			return
		}
		if sessionSlug != slug {
			writeError(w, http.StatusForbidden, codeForbidden, "session not scoped to this outlet")
			return
		}

		var req outletOrderRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.EventID == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "event_id is required")
			return
		}
		if len(req.Lines) == 0 {
			writeError(w, http.StatusBadRequest, codeInvalidQuantity, "at least one pass line is required")
			return
		}

		in := app.CreateOrderInput{
			Customer: domain.Customer{
				Name:     req.Customer.Name,
				Phone:    req.Customer.Phone,
				Email:    req.Customer.Email,
				City:     req.Customer.City,
				District: req.Customer.District,
			},
			EventID: req.EventID,
			Actor:   "outlet:" + slug,
		}
		for _, line := range req.Lines {
			in.Lines = append(in.Lines, app.OrderLineInput{
				PassID:   line.PassID,
				Quantity: line.Quantity,
			})
		}

		order, err := svc.CreateOutletOrder(r.Context(), slug, in)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(toOrderResponse(order))
	}
}

func parseOutletOrdersPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 {
		return "", false
	}
	if parts[0] != "outlets" || parts[2] != "orders" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
