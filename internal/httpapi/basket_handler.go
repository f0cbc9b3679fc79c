package httpapi

import (
	"net/http"
	"strconv"

	"github.com/JorgeRiveraMancilla/go-store-api/internal/basket"
)

type BasketHandler struct {
	baskets *basket.Service
}

func NewBasketHandler(baskets *basket.Service) *BasketHandler {
	return &BasketHandler{baskets: baskets}
}

func (h *BasketHandler) GetBasket(w http.ResponseWriter, r *http.Request) {
	buyerID := buyerIDFromContext(r.Context())
	if buyerID == "" {
		respondError(w, http.StatusNotFound, "basket_not_found", "no buyer identity on request")
		return
	}

	b, err := h.baskets.GetBasket(r.Context(), buyerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

// AddItem handles POST /basket?productId=&quantity=. A buyer with no
// identity yet gets an anonymous token cookie minted here, on first add.
func (h *BasketHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	productID, quantity, ok := parseItemParams(w, r)
	if !ok {
		return
	}

	buyerID := ensureBuyerID(w, r)

	b, err := h.baskets.AddItem(r.Context(), buyerID, productID, quantity)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, b)
}

func (h *BasketHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, quantity, ok := parseItemParams(w, r)
	if !ok {
		return
	}

	buyerID := buyerIDFromContext(r.Context())
	if buyerID == "" {
		clearBuyerCookie(w)
		respondError(w, http.StatusNotFound, "basket_not_found", "no buyer identity on request")
		return
	}

	b, err := h.baskets.RemoveItem(r.Context(), buyerID, productID, quantity)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

// MergeBasket resolves the anonymous basket against the authenticated user's
// basket after login. The anonymous cookie is cleared either way.
func (h *BasketHandler) MergeBasket(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "missing user authentication")
		return
	}

	var anonymousID string
	if cookie, err := r.Cookie(buyerCookieName); err == nil {
		anonymousID = cookie.Value
	}

	b, err := h.baskets.MergeOnAuthentication(r.Context(), anonymousID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	clearBuyerCookie(w)
	respondJSON(w, http.StatusOK, b)
}

func parseItemParams(w http.ResponseWriter, r *http.Request) (int64, int, bool) {
	productID, err := strconv.ParseInt(r.URL.Query().Get("productId"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "productId must be a positive integer")
		return 0, 0, false
	}

	quantity, err := strconv.Atoi(r.URL.Query().Get("quantity"))
	if err != nil || quantity <= 0 || quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return 0, 0, false
	}

	return productID, quantity, true
}
