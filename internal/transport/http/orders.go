package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/app"
	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/domain"
	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/payment"
)

// OrderCreator is the minimal interface needed to create orders.
type OrderCreator interface {
	CreateOrder(ctx context.Context, in app.CreateOrderInput) (domain.Order, error)
	Get(ctx context.Context, orderID string) (domain.Order, []domain.OrderLine, error)
}

// LinkGenerator produces the gateway payment link for an online order.
type LinkGenerator interface {
	LinkForOrder(ctx context.Context, order domain.Order) (payment.Link, error)
}

// TicketLister reports the tickets already issued for an order.
type TicketLister interface {
	TicketsForOrder(ctx context.Context, orderID string) ([]domain.Ticket, error)
}

type customerPayload struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	City     string `json:"city"`
	District string `json:"district"`
}

type orderLinePayload struct {
	PassID   string `json:"pass_id"`
	Quantity int    `json:"quantity"`
	// PriceClaim is accepted for backward compatibility and ignored;
	// line prices are snapshotted server-side.
	PriceClaim int64 `json:"price,omitempty"`
}

type createOrderRequest struct {
	Customer      customerPayload    `json:"customer"`
	Lines         []orderLinePayload `json:"lines"`
	PaymentMethod string             `json:"payment_method"`
	EventID       string             `json:"event_id"`
	AmbassadorID  string             `json:"ambassador_id,omitempty"`
}

func (r createOrderRequest) validate() (string, string) {
	if r.Customer.Name == "" || r.Customer.Phone == "" || r.Customer.Email == "" || r.Customer.City == "" {
		return codeMissingRequiredField, "customer name, phone, email and city are required"
	}
	if len(r.Lines) == 0 {
		return codeInvalidQuantity, "at least one pass line is required"
	}
	for _, line := range r.Lines {
		if line.PassID == "" {
			return codeMissingRequiredField, "pass_id is required on every line"
		}
		if line.Quantity <= 0 {
			return codeInvalidQuantity, "line quantity must be positive"
		}
	}
	switch domain.PaymentMethod(r.PaymentMethod) {
	case domain.PaymentMethodOnline, domain.PaymentMethodCash:
	default:
		return codeMissingRequiredField, "payment_method must be online or cash"
	}
	return "", ""
}

type orderResponse struct {
	ID            string     `json:"id"`
	Channel       string     `json:"channel"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"payment_method"`
	TotalCents    int64      `json:"total_cents"`
	Quantity      int        `json:"quantity"`
	StockReleased bool       `json:"stock_released"`
	CreatedAt     time.Time  `json:"created_at"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	PaymentURL    string     `json:"payment_url,omitempty"`
	PaymentID     string     `json:"payment_id,omitempty"`
}

func toOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		ID:            o.ID,
		Channel:       string(o.Channel),
		Status:        string(o.Status),
		PaymentMethod: string(o.PaymentMethod),
		TotalCents:    o.TotalCents,
		Quantity:      o.Quantity,
		StockReleased: o.StockReleased,
		CreatedAt:     o.CreatedAt,
		ApprovedAt:    o.ApprovedAt,
	}
}

// HandleCreateOrder serves POST /orders for the online and ambassador
// cash channels. Cash orders require an ambassador session; online orders
// additionally get a gateway payment link.
func HandleCreateOrder(svc OrderCreator, links LinkGenerator, auth *Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createOrderRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if code, msg := req.validate(); code != "" {
			writeError(w, http.StatusBadRequest, code, msg)
			return
		}

		method := domain.PaymentMethod(req.PaymentMethod)
		in := app.CreateOrderInput{
			Channel:       domain.ChannelOnline,
			PaymentMethod: method,
			Customer: domain.Customer{
				Name:     req.Customer.Name,
				Phone:    req.Customer.Phone,
				Email:    req.Customer.Email,
				City:     req.Customer.City,
				District: req.Customer.District,
			},
			EventID: req.EventID,
			Actor:   "customer",
		}
		for _, line := range req.Lines {
			in.Lines = append(in.Lines, app.OrderLineInput{
				PassID:   line.PassID,
				Quantity: line.Quantity,
			})
		}

		if method == domain.PaymentMethodCash {
			ambassadorID, err := auth.AmbassadorSession(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "ambassador session required")
				return
			}
			if req.AmbassadorID != "" && req.AmbassadorID != ambassadorID {
				writeError(w, http.StatusForbidden, codeForbidden, "ambassador mismatch")
				return
			}
			in.Channel = domain.ChannelCash
			in.AmbassadorID = ambassadorID
			in.Actor = "ambassador:" + ambassadorID
		}

		order, err := svc.CreateOrder(r.Context(), in)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := toOrderResponse(order)
		if order.Channel == domain.ChannelOnline {
			link, err := links.LinkForOrder(r.Context(), order)
			if err != nil {
				writeError(w, http.StatusBadGateway, codeInternalError, "payment link generation failed")
				return
			}
			resp.PaymentURL = link.URL
			resp.PaymentID = link.PaymentID
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type orderLineResponse struct {
	PassID         string `json:"pass_id"`
	PassName       string `json:"pass_name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type orderDetailResponse struct {
	orderResponse
	Lines        []orderLineResponse `json:"lines"`
	TicketsCount int                 `json:"tickets_count"`
}

// HandleGetOrder serves GET /orders/{id}, returning the order, its
// snapshot lines and how many tickets have been issued so far.
func HandleGetOrder(svc OrderCreator, tickets TicketLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		orderID, ok := parseOrderPath(r.URL.Path, "")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		order, lines, err := svc.Get(r.Context(), orderID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		issued, err := tickets.TicketsForOrder(r.Context(), orderID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := orderDetailResponse{
			orderResponse: toOrderResponse(order),
			TicketsCount:  len(issued),
		}
		for _, line := range lines {
			resp.Lines = append(resp.Lines, orderLineResponse{
				PassID:         line.PassID,
				PassName:       line.PassName,
				Quantity:       line.Quantity,
				UnitPriceCents: line.UnitPriceCents,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// parseOrderPath extracts the order ID from /orders/{id} or
// /orders/{id}/{action} when action is non-empty.
func parseOrderPath(path, action string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if parts[0] != "orders" {
		return "", false
	}
	if action == "" {
		if len(parts) != 2 || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if len(parts) != 3 || parts[1] == "" || parts[2] != action {
		return "", false
	}
	return parts[1], true
}
