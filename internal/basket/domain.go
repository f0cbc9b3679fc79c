package basket

import "time"

// Basket is a buyer-scoped pre-order cart. BuyerID is an opaque key: either
// an anonymous session token or an authenticated user id, the basket does not
// care which. Prices are resolved from the catalog at checkout time, so line
// items only carry product id and quantity.
type Basket struct {
	ID              string       `json:"id" bson:"_id,omitempty"`
	BuyerID         string       `json:"buyerId" bson:"buyer_id"`
	Items           []BasketItem `json:"items" bson:"items"`
	PaymentIntentID string       `json:"paymentIntentId,omitempty" bson:"payment_intent_id,omitempty"`
	ClientSecret    string       `json:"clientSecret,omitempty" bson:"client_secret,omitempty"`
	CreatedAt       time.Time    `json:"createdAt" bson:"created_at"`
	UpdatedAt       time.Time    `json:"updatedAt" bson:"updated_at"`
}

type BasketItem struct {
	ProductID int64     `json:"productId" bson:"product_id"`
	Quantity  int       `json:"quantity" bson:"quantity"`
	AddedAt   time.Time `json:"addedAt" bson:"added_at"`
}

// Item returns a pointer to the line for productID, or nil.
func (b *Basket) Item(productID int64) *BasketItem {
	for i := range b.Items {
		if b.Items[i].ProductID == productID {
			return &b.Items[i]
		}
	}
	return nil
}

// IsEmpty reports whether the basket has no lines.
func (b *Basket) IsEmpty() bool {
	return len(b.Items) == 0
}
