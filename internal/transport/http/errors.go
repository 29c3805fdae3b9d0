package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/app"
	"github.com/malekbenamor02/Andiamo-Events-sub004/internal/domain"
)

const (
	codeMethodNotAllowed        = "method_not_allowed"
	codeNotFound                = "not_found"
	codeInvalidRequestBody      = "invalid_request_body"
	codeMissingRequiredField    = "missing_required_field"
	codeInvalidQuantity         = "invalid_quantity"
	codeInvalidID               = "invalid_id"
	codeStockConflict           = "insufficient_stock"
	codePoolInactive            = "pass_inactive"
	codePoolNotFound            = "pass_not_found"
	codeOrderNotFound           = "order_not_found"
	codeOutletNotFound          = "outlet_not_found"
	codePaymentMethodNotAllowed = "payment_method_not_allowed"
	codeInvalidTransition       = "invalid_transition"
	codeUnauthorized            = "unauthorized"
	codeForbidden               = "forbidden"
	codeInvalidSignature        = "invalid_signature"
	codeInternalError           = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	// Details carries per-field or per-line context (e.g. the pool that
	// failed a reservation).
	Details map[string]string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorDetails(w, status, code, msg, nil)
}

func writeErrorDetails(w http.ResponseWriter, status int, code, msg string, details map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error:   msg,
		Code:    code,
		Details: details,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps service errors to the wire taxonomy. Stock
// conflicts and validation failures are 400s the caller may retry as a
// fresh attempt; transition conflicts are 409s the caller should resolve
// by re-fetching the order.
func writeDomainError(w http.ResponseWriter, err error) {
	var stockErr *app.StockError
	if errors.As(err, &stockErr) {
		details := map[string]string{"pass_id": stockErr.Ref.PassID}
		if stockErr.Ref.OutletID != "" {
			details["outlet_id"] = stockErr.Ref.OutletID
		}
		switch {
		case errors.Is(err, domain.ErrPoolInactive):
			writeErrorDetails(w, http.StatusBadRequest, codePoolInactive, stockErr.Error(), details)
		case errors.Is(err, domain.ErrPoolNotFound):
			writeErrorDetails(w, http.StatusBadRequest, codePoolNotFound, stockErr.Error(), details)
		case errors.Is(err, domain.ErrInvalidQuantity):
			writeErrorDetails(w, http.StatusBadRequest, codeInvalidQuantity, stockErr.Error(), details)
		default:
			writeErrorDetails(w, http.StatusBadRequest, codeStockConflict, stockErr.Error(), details)
		}
		return
	}

	switch {
	case errors.Is(err, domain.ErrMissingCustomerField):
		writeError(w, http.StatusBadRequest, codeMissingRequiredField, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrPaymentMethodNotAllowed):
		writeError(w, http.StatusBadRequest, codePaymentMethodNotAllowed, err.Error())
	case errors.Is(err, domain.ErrStockConflict):
		writeError(w, http.StatusBadRequest, codeStockConflict, err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, codeOrderNotFound, err.Error())
	case errors.Is(err, domain.ErrOutletNotFound):
		writeError(w, http.StatusNotFound, codeOutletNotFound, err.Error())
	case errors.Is(err, domain.ErrPoolNotFound):
		writeError(w, http.StatusBadRequest, codePoolNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, codeInvalidTransition, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, codeUnauthorized, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
