// Package events publishes order lifecycle notifications to Kafka through an
// in-process outbox. Publishing is asynchronous: enqueueing never fails a
// checkout or a webhook, and the drain loop retries until the broker accepts.
package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	TypeOrderPlaced     = "order.placed"
	TypePaymentReceived = "order.payment_received"
	TypePaymentFailed   = "order.payment_failed"
)

type Event struct {
	ID        string
	Type      string
	Key       string // aggregate id, used for partition ordering
	Payload   []byte
	CreatedAt time.Time
}

// Sink accepts events for eventual publication.
type Sink interface {
	Enqueue(eventType, key string, payload any) error
}

// NoopSink discards events; used when no broker is configured.
type NoopSink struct{}

func (NoopSink) Enqueue(string, string, any) error { return nil }

// Outbox is an in-memory event queue drained by the Publisher.
type Outbox struct {
	mu      sync.Mutex
	pending []Event
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Enqueue(eventType, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Key:       key,
		Payload:   data,
		CreatedAt: time.Now(),
	})
	return nil
}

// Drain returns up to limit pending events without removing them; Ack
// removes events that were published.
func (o *Outbox) Drain(limit int) []Event {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := len(o.pending)
	if n > limit {
		n = limit
	}
	out := make([]Event, n)
	copy(out, o.pending[:n])
	return out
}

func (o *Outbox) Ack(ids []string) {
	if len(ids) == 0 {
		return
	}
	acked := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		acked[id] = struct{}{}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	kept := o.pending[:0]
	for _, e := range o.pending {
		if _, ok := acked[e.ID]; !ok {
			kept = append(kept, e)
		}
	}
	o.pending = kept
}

// Pending reports the queue depth.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}
