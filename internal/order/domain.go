package order

import "time"

type Status string

const (
	StatusPending         Status = "Pending"
	StatusPaymentReceived Status = "PaymentReceived"
	StatusPaymentFailed   Status = "PaymentFailed"
)

func (s Status) IsTerminal() bool {
	return s == StatusPaymentReceived || s == StatusPaymentFailed
}

// CanTransitionTo allows transitions out of Pending only; terminal states
// absorb any further attempt.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusPending && next.IsTerminal()
}

// String representation (for logging)
func (s Status) String() string {
	return string(s)
}

// Address is the shipping address snapshotted onto an order.
type Address struct {
	FullName string `json:"fullName"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
}

// Item is an immutable line snapshot copied from the catalog at order
// creation time, so later catalog edits cannot alter history.
type Item struct {
	ProductID   int64  `json:"productId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Brand       string `json:"brand"`
	Type        string `json:"type"`
	ImageURL    string `json:"imageUrl"`
	UnitPrice   int64  `json:"unitPrice"`
	Quantity    int    `json:"quantity"`
}

// Total is the line total in minor units.
func (i Item) Total() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// Order is created once at checkout and never has lines added or removed;
// only Status changes afterwards.
type Order struct {
	ID              string    `json:"id"`
	BuyerID         string    `json:"buyerId"`
	Items           []Item    `json:"items"`
	Subtotal        int64     `json:"subtotal"`
	DeliveryFee     int64     `json:"deliveryFee"`
	Total           int64     `json:"total"`
	Status          Status    `json:"status"`
	PaymentIntentID string    `json:"paymentIntentId,omitempty"`
	Address         Address   `json:"address"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
