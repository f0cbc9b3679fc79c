// Package webhook applies asynchronous payment results to orders. Delivery
// from the gateway is at-least-once and possibly reordered, so the order's
// status field acts as the idempotency token: only Pending orders transition,
// duplicates and unknown intents are absorbed.
package webhook

import (
	"context"
	"errors"
	"log"

	"github.com/JorgeRiveraMancilla/go-store-api/internal/events"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/order"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/payment"
)

type Reconciler struct {
	gateway payment.Gateway
	ledger  order.Ledger
	events  events.Sink
}

func NewReconciler(gateway payment.Gateway, ledger order.Ledger, sink events.Sink) *Reconciler {
	return &Reconciler{gateway: gateway, ledger: ledger, events: sink}
}

// HandleEvent verifies and applies one inbound gateway notification. The only
// error it ever returns is payment.ErrBadSignature; every business-level
// outcome (no matching order, already terminal, persistence hiccup) is logged
// and acknowledged so the gateway does not retry or alert on it.
func (r *Reconciler) HandleEvent(ctx context.Context, rawBody []byte, signatureHeader string) error {
	event, err := r.gateway.VerifyAndParseEvent(rawBody, signatureHeader)
	if err != nil {
		return err
	}

	switch {
	case event.Succeeded:
		r.apply(ctx, event, order.StatusPaymentReceived, events.TypePaymentReceived)
	case event.Failed:
		r.apply(ctx, event, order.StatusPaymentFailed, events.TypePaymentFailed)
	default:
		// Other event kinds are acknowledged and ignored.
	}
	return nil
}

func (r *Reconciler) apply(ctx context.Context, event *payment.Event, status order.Status, eventType string) {
	if event.PaymentIntentID == "" {
		return
	}

	o, err := r.ledger.FindByPaymentIntentID(ctx, event.PaymentIntentID)
	if errors.Is(err, order.ErrOrderNotFound) {
		// The intent may belong to a basket that has not checked out yet.
		log.Printf("webhook: no order for payment intent %s, ignoring", event.PaymentIntentID)
		return
	}
	if err != nil {
		log.Printf("webhook: lookup failed for payment intent %s: %v", event.PaymentIntentID, err)
		return
	}

	err = r.ledger.UpdateStatus(ctx, o.ID, status)
	if errors.Is(err, order.ErrIllegalTransition) {
		// Re-delivery of an event for an already-terminal order.
		log.Printf("webhook: order %s already %s, ignoring duplicate", o.ID, o.Status)
		return
	}
	if err != nil {
		log.Printf("webhook: failed to update order %s: %v", o.ID, err)
		return
	}

	if err := r.events.Enqueue(eventType, o.ID, map[string]any{
		"order_id":          o.ID,
		"payment_intent_id": event.PaymentIntentID,
		"status":            status,
	}); err != nil {
		log.Printf("webhook: failed to enqueue %s event for order %s: %v", eventType, o.ID, err)
	}
}
