package payment

import (
	"context"
	"errors"
)

var (
	// ErrBadSignature means the webhook payload failed verification and must
	// not be processed.
	ErrBadSignature = errors.New("webhook signature verification failed")
	// ErrGatewayUnavailable wraps transport-level failures talking to the
	// payment provider.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// Intent is the gateway's handle for an in-progress payment. The client
// secret is handed to the storefront so the buyer can complete the payment
// directly against the gateway.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
}

// Event kinds delivered by the gateway webhook. Only succeeded and failed
// kinds drive order transitions; everything else is acknowledged and ignored.
const (
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
	EventPaymentIntentFailed    = "payment_intent.payment_failed"
	EventPaymentIntentCreated   = "payment_intent.created"
	EventChargeSucceeded        = "charge.succeeded"
	EventChargeUpdated          = "charge.updated"
)

// Event is a verified, parsed webhook notification.
type Event struct {
	ID              string
	Type            string
	PaymentIntentID string
	Succeeded       bool
	Failed          bool
}

// Gateway is the boundary to the external payment provider.
type Gateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string) (*Intent, error)
	UpdateIntentAmount(ctx context.Context, intentID string, amount int64) (*Intent, error)

	// VerifyAndParseEvent authenticates rawBody against signatureHeader using
	// the shared webhook secret and parses it. Returns ErrBadSignature when
	// verification fails.
	VerifyAndParseEvent(rawBody []byte, signatureHeader string) (*Event, error)
}
