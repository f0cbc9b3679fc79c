package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(id, buyerID, intentID string) *Order {
	return &Order{
		ID:              id,
		BuyerID:         buyerID,
		Items:           []Item{{ProductID: 1, Name: "Board", UnitPrice: 60000, Quantity: 1}},
		Subtotal:        60000,
		DeliveryFee:     5000,
		Total:           65000,
		Status:          StatusPending,
		PaymentIntentID: intentID,
	}
}

func TestMemoryLedger_InsertAndFind(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	require.NoError(t, l.Insert(ctx, newOrder("o1", "buyer-1", "pi_1")))

	o, err := l.FindByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "buyer-1", o.BuyerID)
	assert.False(t, o.CreatedAt.IsZero())

	_, err = l.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMemoryLedger_FindByID_ReturnsCopy(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	require.NoError(t, l.Insert(ctx, newOrder("o1", "buyer-1", "pi_1")))

	o, err := l.FindByID(ctx, "o1")
	require.NoError(t, err)
	o.Items[0].Name = "tampered"
	o.Status = StatusPaymentFailed

	again, err := l.FindByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "Board", again.Items[0].Name)
	assert.Equal(t, StatusPending, again.Status)
}

func TestMemoryLedger_FindByBuyer_SortedByCreation(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	first := newOrder("o1", "buyer-1", "")
	first.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, l.Insert(ctx, first))
	require.NoError(t, l.Insert(ctx, newOrder("o2", "buyer-1", "")))
	require.NoError(t, l.Insert(ctx, newOrder("o3", "buyer-2", "")))

	orders, err := l.FindByBuyer(ctx, "buyer-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "o1", orders[0].ID)
	assert.Equal(t, "o2", orders[1].ID)

	orders, err = l.FindByBuyer(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestMemoryLedger_FindByPaymentIntentID(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	require.NoError(t, l.Insert(ctx, newOrder("o1", "buyer-1", "pi_1")))
	require.NoError(t, l.Insert(ctx, newOrder("o2", "buyer-2", "")))

	o, err := l.FindByPaymentIntentID(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "o1", o.ID)

	_, err = l.FindByPaymentIntentID(ctx, "pi_other")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	// An empty intent id never matches orders without one.
	_, err = l.FindByPaymentIntentID(ctx, "")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMemoryLedger_UpdateStatus(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	require.NoError(t, l.Insert(ctx, newOrder("o1", "buyer-1", "pi_1")))

	require.NoError(t, l.UpdateStatus(ctx, "o1", StatusPaymentReceived))

	o, _ := l.FindByID(ctx, "o1")
	assert.Equal(t, StatusPaymentReceived, o.Status)

	// Terminal states absorb further transitions.
	err := l.UpdateStatus(ctx, "o1", StatusPaymentFailed)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	err = l.UpdateStatus(ctx, "o1", StatusPaymentReceived)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	err = l.UpdateStatus(ctx, "missing", StatusPaymentReceived)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMemoryLedger_UpdateStatus_ConcurrentSingleWinner(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	require.NoError(t, l.Insert(ctx, newOrder("o1", "buyer-1", "pi_1")))

	var wg sync.WaitGroup
	successes := make(chan Status, 20)
	for i := 0; i < 20; i++ {
		status := StatusPaymentReceived
		if i%2 == 1 {
			status = StatusPaymentFailed
		}
		wg.Add(1)
		go func(s Status) {
			defer wg.Done()
			if err := l.UpdateStatus(ctx, "o1", s); err == nil {
				successes <- s
			}
		}(status)
	}
	wg.Wait()
	close(successes)

	var winners []Status
	for s := range successes {
		winners = append(winners, s)
	}
	require.Len(t, winners, 1)

	o, _ := l.FindByID(ctx, "o1")
	assert.Equal(t, winners[0], o.Status)
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusPaymentReceived))
	assert.True(t, StatusPending.CanTransitionTo(StatusPaymentFailed))
	assert.False(t, StatusPending.CanTransitionTo(StatusPending))
	assert.False(t, StatusPaymentReceived.CanTransitionTo(StatusPaymentFailed))
	assert.False(t, StatusPaymentFailed.CanTransitionTo(StatusPaymentReceived))

	assert.False(t, StatusPending.IsTerminal())
	assert.True(t, StatusPaymentReceived.IsTerminal())
	assert.True(t, StatusPaymentFailed.IsTerminal())
}
