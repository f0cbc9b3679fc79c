package httpapi

import (
	"io"
	"net/http"

	"github.com/JorgeRiveraMancilla/go-store-api/internal/payment"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/webhook"
)

const maxWebhookBodySize = 1 << 20 // 1MB

const signatureHeader = "Gateway-Signature"

type PaymentHandler struct {
	payments   *payment.Service
	reconciler *webhook.Reconciler
}

func NewPaymentHandler(payments *payment.Service, reconciler *webhook.Reconciler) *PaymentHandler {
	return &PaymentHandler{payments: payments, reconciler: reconciler}
}

// CreateOrUpdateIntent handles POST /payments: it sizes a payment intent to
// the buyer's current basket and returns the basket with the intent attached.
func (h *PaymentHandler) CreateOrUpdateIntent(w http.ResponseWriter, r *http.Request) {
	buyerID := buyerIDFromContext(r.Context())
	if buyerID == "" {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "missing buyer identity")
		return
	}

	b, err := h.payments.StartOrUpdatePayment(r.Context(), buyerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

// Webhook handles POST /payments/webhook. The transport is unauthenticated;
// the raw body is verified against the signature header internally. Anything
// past signature verification is acknowledged with 200 regardless of the
// business outcome, since the sender retries on non-2xx.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "failed to read request body")
		return
	}

	if err := h.reconciler.HandleEvent(r.Context(), body, r.Header.Get(signatureHeader)); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
