package payment

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JorgeRiveraMancilla/go-store-api/internal/basket"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/catalog"
	"github.com/JorgeRiveraMancilla/go-store-api/pkg/keylock"
)

type fakeGateway struct {
	mu      sync.Mutex
	created []int64
	updated map[string][]int64
	nextID  int
	latency time.Duration
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{updated: make(map[string][]int64)}
}

func (g *fakeGateway) CreateIntent(_ context.Context, amount int64, currency string) (*Intent, error) {
	time.Sleep(g.latency)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	g.created = append(g.created, amount)
	id := fmt.Sprintf("pi_%d", g.nextID)
	return &Intent{ID: id, ClientSecret: id + "_secret", Amount: amount, Currency: currency}, nil
}

func (g *fakeGateway) UpdateIntentAmount(_ context.Context, intentID string, amount int64) (*Intent, error) {
	time.Sleep(g.latency)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updated[intentID] = append(g.updated[intentID], amount)
	// Updates do not return a fresh client secret.
	return &Intent{ID: intentID, Amount: amount}, nil
}

func (g *fakeGateway) VerifyAndParseEvent([]byte, string) (*Event, error) {
	return nil, fmt.Errorf("not implemented")
}

func (g *fakeGateway) createdAmounts() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int64(nil), g.created...)
}

func (g *fakeGateway) updatedAmounts(intentID string) []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int64(nil), g.updated[intentID]...)
}

func setupPayment(t *testing.T) (*Service, *basket.Service, *fakeGateway) {
	t.Helper()
	cat := catalog.NewMemoryStore()
	cat.Put(catalog.Product{ID: 1, Name: "Board", Price: 60000, Stock: 10})
	cat.Put(catalog.Product{ID: 2, Name: "Gloves", Price: 1800, Stock: 50})

	repo := basket.NewMemoryRepository()
	locks := keylock.New()
	baskets := basket.NewService(repo, basket.NoopCache{}, cat, locks)
	gw := newFakeGateway()
	return NewService(gw, repo, basket.NoopCache{}, cat, locks), baskets, gw
}

func TestStartOrUpdatePayment_CreatesIntentWithDeliveryFee(t *testing.T) {
	sut, baskets, gw := setupPayment(t)
	ctx := context.Background()

	_, err := baskets.AddItem(ctx, "buyer-1", 1, 1)
	require.NoError(t, err)

	b, err := sut.StartOrUpdatePayment(ctx, "buyer-1")
	require.NoError(t, err)

	assert.Equal(t, "pi_1", b.PaymentIntentID)
	assert.Equal(t, "pi_1_secret", b.ClientSecret)
	// 60000 subtotal + 5000 delivery fee.
	assert.Equal(t, []int64{65000}, gw.createdAmounts())
}

func TestStartOrUpdatePayment_UpdatesExistingIntent(t *testing.T) {
	sut, baskets, gw := setupPayment(t)
	ctx := context.Background()

	_, err := baskets.AddItem(ctx, "buyer-1", 1, 1)
	require.NoError(t, err)
	_, err = sut.StartOrUpdatePayment(ctx, "buyer-1")
	require.NoError(t, err)

	// Basket changed: the second call updates the same intent instead of
	// creating another.
	_, err = baskets.AddItem(ctx, "buyer-1", 2, 1)
	require.NoError(t, err)

	b, err := sut.StartOrUpdatePayment(ctx, "buyer-1")
	require.NoError(t, err)

	assert.Equal(t, "pi_1", b.PaymentIntentID)
	assert.Len(t, gw.createdAmounts(), 1)
	assert.Equal(t, []int64{66800}, gw.updatedAmounts("pi_1"))
}

func TestStartOrUpdatePayment_KeepsClientSecretAcrossUpdates(t *testing.T) {
	sut, baskets, _ := setupPayment(t)
	ctx := context.Background()

	_, err := baskets.AddItem(ctx, "buyer-1", 1, 1)
	require.NoError(t, err)
	first, err := sut.StartOrUpdatePayment(ctx, "buyer-1")
	require.NoError(t, err)

	second, err := sut.StartOrUpdatePayment(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, first.ClientSecret, second.ClientSecret)
}

func TestStartOrUpdatePayment_UnchangedBasketSendsSameAmount(t *testing.T) {
	sut, baskets, gw := setupPayment(t)
	ctx := context.Background()

	_, err := baskets.AddItem(ctx, "buyer-1", 1, 2) // 120000, free shipping
	require.NoError(t, err)

	_, err = sut.StartOrUpdatePayment(ctx, "buyer-1")
	require.NoError(t, err)
	_, err = sut.StartOrUpdatePayment(ctx, "buyer-1")
	require.NoError(t, err)

	assert.Equal(t, []int64{120000}, gw.createdAmounts())
	assert.Equal(t, []int64{120000}, gw.updatedAmounts("pi_1"))
}

func TestStartOrUpdatePayment_ConcurrentCallsMintSingleIntent(t *testing.T) {
	sut, baskets, gw := setupPayment(t)
	gw.latency = 50 * time.Millisecond
	ctx := context.Background()

	_, err := baskets.AddItem(ctx, "buyer-1", 1, 1)
	require.NoError(t, err)

	// Two racing calls for the same buyer: the second must wait, observe the
	// attached intent and update it, never mint a second one the gateway
	// would leave orphaned.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = sut.StartOrUpdatePayment(ctx, "buyer-1")
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	assert.Len(t, gw.createdAmounts(), 1)
	assert.Len(t, gw.updatedAmounts("pi_1"), 1)

	b, err := baskets.GetBasket(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, "pi_1", b.PaymentIntentID)
	assert.Equal(t, "pi_1_secret", b.ClientSecret)
}

func TestStartOrUpdatePayment_BasketAbsent(t *testing.T) {
	sut, _, _ := setupPayment(t)

	_, err := sut.StartOrUpdatePayment(context.Background(), "nobody")
	assert.ErrorIs(t, err, basket.ErrBasketNotFound)
}

func TestStartOrUpdatePayment_EmptyBuyerID(t *testing.T) {
	sut, _, _ := setupPayment(t)

	_, err := sut.StartOrUpdatePayment(context.Background(), "")
	assert.ErrorIs(t, err, basket.ErrInvalidBuyerID)
}
