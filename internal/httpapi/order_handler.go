package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JorgeRiveraMancilla/go-store-api/internal/checkout"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/order"
)

type OrderHandler struct {
	checkout *checkout.Service
	ledger   order.Ledger
}

func NewOrderHandler(co *checkout.Service, ledger order.Ledger) *OrderHandler {
	return &OrderHandler{checkout: co, ledger: ledger}
}

type CreateOrderRequestDTO struct {
	Address     order.Address `json:"address"`
	SaveAddress bool          `json:"saveAddress"`
}

type CreateOrderResponseDTO struct {
	OrderID string `json:"orderId"`
}

// PlaceOrder handles POST /orders: body carries the shipping address and
// whether to save it on the buyer's profile.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	buyerID := buyerIDFromContext(r.Context())
	if buyerID == "" {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "missing buyer identity")
		return
	}

	var req CreateOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	orderID, err := h.checkout.PlaceOrder(r.Context(), buyerID, req.Address, req.SaveAddress)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, CreateOrderResponseDTO{OrderID: orderID})
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	buyerID := buyerIDFromContext(r.Context())
	if buyerID == "" {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "missing buyer identity")
		return
	}

	orders, err := h.ledger.FindByBuyer(r.Context(), buyerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	buyerID := buyerIDFromContext(r.Context())
	if buyerID == "" {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "missing buyer identity")
		return
	}

	o, err := h.ledger.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if o.BuyerID != buyerID {
		// Orders are buyer-scoped; leaking existence across buyers is avoided.
		respondError(w, http.StatusNotFound, "order_not_found", "order not found")
		return
	}
	respondJSON(w, http.StatusOK, o)
}
