package api

import (
	"encoding/json"
	"net/http"

	"github.com/example/merch-storefront/internal/api/middleware"
	"github.com/example/merch-storefront/internal/domain/checkout"
	"github.com/example/merch-storefront/internal/payment"
	"github.com/example/merch-storefront/internal/shop"
	"github.com/example/merch-storefront/internal/site"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handlers struct {
	shop   *shop.Service
	site   site.Config
	logger *zap.Logger
}

func NewHandlers(svc *shop.Service, siteCfg site.Config, logger *zap.Logger) *Handlers {
	return &Handlers{
		shop:   svc,
		site:   siteCfg,
		logger: logger.Named("api"),
	}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) Site(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.site)
}

// Session Handlers

func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.shop.Session(r.Context(), middleware.GetSessionID(r.Context()))
	h.respondSession(w, r, http.StatusOK, sess, err)
}

func (h *Handlers) AbandonSession(w http.ResponseWriter, r *http.Request) {
	if err := h.shop.Abandon(r.Context(), middleware.GetSessionID(r.Context())); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Cart Handlers

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var cmd shop.AddToCart
	if !decodeJSON(w, r, &cmd) {
		return
	}
	if cmd.ItemID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item_id must be positive", nil)
		return
	}
	cmd.SessionID = middleware.GetSessionID(r.Context())

	sess, err := h.shop.AddToCart(r.Context(), cmd)
	h.respondSession(w, r, http.StatusOK, sess, err)
}

func (h *Handlers) SetQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := itemIDParam(w, r)
	if !ok {
		return
	}
	var cmd shop.SetQuantity
	if !decodeJSON(w, r, &cmd) {
		return
	}
	cmd.SessionID = middleware.GetSessionID(r.Context())
	cmd.ItemID = id

	sess, err := h.shop.SetQuantity(r.Context(), cmd)
	h.respondSession(w, r, http.StatusOK, sess, err)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	id, ok := itemIDParam(w, r)
	if !ok {
		return
	}
	cmd := shop.RemoveFromCart{
		SessionID: middleware.GetSessionID(r.Context()),
		ItemID:    id,
		Size:      r.URL.Query().Get("size"),
	}

	sess, err := h.shop.RemoveFromCart(r.Context(), cmd)
	h.respondSession(w, r, http.StatusOK, sess, err)
}

// Checkout Handlers

func (h *Handlers) ProceedToPayment(w http.ResponseWriter, r *http.Request) {
	sess, err := h.shop.ProceedToPayment(r.Context(), middleware.GetSessionID(r.Context()))
	h.respondSession(w, r, http.StatusOK, sess, err)
}

func (h *Handlers) SelectMethod(w http.ResponseWriter, r *http.Request) {
	var cmd shop.SelectMethod
	if !decodeJSON(w, r, &cmd) {
		return
	}
	cmd.SessionID = middleware.GetSessionID(r.Context())

	sess, err := h.shop.SelectMethod(r.Context(), cmd)
	h.respondSession(w, r, http.StatusOK, sess, err)
}

func (h *Handlers) Back(w http.ResponseWriter, r *http.Request) {
	sess, err := h.shop.Back(r.Context(), middleware.GetSessionID(r.Context()))
	h.respondSession(w, r, http.StatusOK, sess, err)
}

// Submit answers 202 while the payment runs; clients poll GET /session
func (h *Handlers) Submit(w http.ResponseWriter, r *http.Request) {
	var customer checkout.Customer
	if !decodeJSON(w, r, &customer) {
		return
	}
	cmd := shop.SubmitDetails{
		SessionID: middleware.GetSessionID(r.Context()),
		Customer:  customer,
	}

	sess, err := h.shop.Submit(r.Context(), cmd)
	h.respondSession(w, r, http.StatusAccepted, sess, err)
}

func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	sess, err := h.shop.Reset(r.Context(), middleware.GetSessionID(r.Context()))
	h.respondSession(w, r, http.StatusOK, sess, err)
}

// Bank Transfer Handlers

func (h *Handlers) VerifyTransfer(w http.ResponseWriter, r *http.Request) {
	var v payment.TransferVerification
	if !decodeJSON(w, r, &v) {
		return
	}

	status, err := h.shop.VerifyTransfer(r.Context(), v)
	if err != nil {
		if shop.IsVerificationError(err) {
			h.logger.Warn("transfer verification rejected", zap.String("reference", v.Reference), zap.Error(err))
		}
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (h *Handlers) TransferStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.shop.TransferStatusOf(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// Helper functions

func (h *Handlers) respondSession(w http.ResponseWriter, r *http.Request, status int, sess *checkout.Session, err error) {
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, status, newSessionView(sess))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", nil)
		return false
	}
	return true
}
