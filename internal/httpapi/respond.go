package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/JorgeRiveraMancilla/go-store-api/internal/basket"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/catalog"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/checkout"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/order"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/payment"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps domain sentinel errors onto HTTP statuses. The
// message stays specific (basket empty vs product missing vs out of stock) so
// clients can react instead of retrying blindly.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, basket.ErrBasketNotFound):
		respondError(w, http.StatusNotFound, "basket_not_found", "basket not found")
	case errors.Is(err, checkout.ErrEmptyBasket):
		respondError(w, http.StatusNotFound, "basket_empty", "basket is empty")
	case errors.Is(err, basket.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "item_not_found", "item not found in basket")
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
	case errors.Is(err, order.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", "order not found")
	case errors.Is(err, catalog.ErrInsufficientStock):
		respondError(w, http.StatusConflict, "insufficient_stock", "insufficient stock for one or more items")
	case errors.Is(err, basket.ErrQuantityExceedsHeld):
		respondError(w, http.StatusConflict, "quantity_exceeds_held", "quantity to remove exceeds quantity in basket")
	case errors.Is(err, basket.ErrInvalidBuyerID), errors.Is(err, basket.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, payment.ErrBadSignature):
		respondError(w, http.StatusUnauthorized, "bad_signature", "webhook signature verification failed")
	case errors.Is(err, payment.ErrGatewayUnavailable):
		respondError(w, http.StatusBadGateway, "gateway_unavailable", "payment gateway unavailable")
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
