package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/merch-storefront/internal/domain/cart"
	"github.com/example/merch-storefront/internal/domain/catalog"
	"github.com/example/merch-storefront/internal/domain/checkout"
	"github.com/example/merch-storefront/internal/domain/order"
	"github.com/example/merch-storefront/internal/payment"
	"github.com/example/merch-storefront/internal/shop"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

type SizeRequiredDetails struct {
	ItemID int      `json:"item_id"`
	Name   string   `json:"name"`
	Sizes  []string `json:"sizes"`
}

type MissingFieldsDetails struct {
	Fields []string `json:"fields"`
}

// errorMapping binds a sentinel to its HTTP status and machine code
type errorMapping struct {
	target error
	status int
	code   string
}

// Checked in order; the first errors.Is match wins
var errorMappings = []errorMapping{
	{catalog.ErrItemNotFound, http.StatusNotFound, "item_not_found"},
	{cart.ErrLineNotFound, http.StatusNotFound, "line_not_found"},
	{order.ErrOrderNotFound, http.StatusNotFound, "order_not_found"},

	{cart.ErrSizeNotOffered, http.StatusUnprocessableEntity, "size_not_offered"},
	{cart.ErrSizeNotApplicable, http.StatusUnprocessableEntity, "size_not_applicable"},
	{cart.ErrInvalidQuantity, http.StatusUnprocessableEntity, "invalid_quantity"},
	{checkout.ErrEmptyCart, http.StatusUnprocessableEntity, "empty_cart"},
	{payment.ErrAdapterMissing, http.StatusUnprocessableEntity, "method_unavailable"},
	{payment.ErrAmountMismatch, http.StatusUnprocessableEntity, "amount_mismatch"},
	{payment.ErrCurrencyMismatch, http.StatusUnprocessableEntity, "currency_mismatch"},

	{payment.ErrUnknownMethod, http.StatusBadRequest, "unknown_method"},
	{payment.ErrInvalidVerification, http.StatusBadRequest, "invalid_verification"},

	{checkout.ErrWrongStage, http.StatusConflict, "wrong_stage"},
	{checkout.ErrCartLocked, http.StatusConflict, "cart_locked"},
	{checkout.ErrCannotGoBack, http.StatusConflict, "cannot_go_back"},
	{checkout.ErrPaymentInProgress, http.StatusConflict, "payment_in_progress"},
	{checkout.ErrNoMethod, http.StatusConflict, "no_method"},
	{order.ErrOrderAlreadyPaid, http.StatusConflict, "already_verified"},
	{order.ErrNotAwaiting, http.StatusConflict, "not_awaiting_transfer"},
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string, details any) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code, Details: details})
}

// handleError maps domain errors to status codes. Anything unmapped is
// logged and reported as a 500 without leaking the cause.
func (h *Handlers) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var sizeErr *shop.SizeRequiredError
	if errors.As(err, &sizeErr) {
		respondError(w, http.StatusUnprocessableEntity, "size_required", err.Error(), SizeRequiredDetails{
			ItemID: sizeErr.Item.ID,
			Name:   sizeErr.Item.Name,
			Sizes:  sizeErr.Item.Sizes,
		})
		return
	}

	var validationErr *checkout.ValidationError
	if errors.As(err, &validationErr) {
		respondError(w, http.StatusUnprocessableEntity, "missing_fields", err.Error(), MissingFieldsDetails{Fields: validationErr.Fields})
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			respondError(w, m.status, m.code, err.Error(), nil)
			return
		}
	}

	h.logger.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	respondError(w, http.StatusInternalServerError, "internal_error", "internal server error", nil)
}
