package basket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func setupTestDB(t *testing.T) Repository {
	ctx := context.Background()

	mongoContainer, err := mongodb.RunContainer(ctx, testcontainers.WithImage("mongo:7"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	return NewMongoRepository(db)
}

func TestMongoRepository_GetBasket_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	b, err := repo.GetBasket(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrBasketNotFound)
	assert.Nil(t, b)
}

func TestMongoRepository_UpsertAndGet(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	b := &Basket{
		BuyerID: "buyer-1",
		Items: []BasketItem{
			{ProductID: 1, Quantity: 2, AddedAt: time.Now()},
		},
	}
	require.NoError(t, repo.UpsertBasket(ctx, b))

	fetched, err := repo.GetBasket(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, "buyer-1", fetched.BuyerID)
	require.Len(t, fetched.Items, 1)
	assert.Equal(t, int64(1), fetched.Items[0].ProductID)
	assert.Equal(t, 2, fetched.Items[0].Quantity)
	assert.False(t, fetched.CreatedAt.IsZero())
}

func TestMongoRepository_Upsert_ReplacesItems(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertBasket(ctx, &Basket{
		BuyerID: "buyer-1",
		Items:   []BasketItem{{ProductID: 1, Quantity: 2}},
	}))
	require.NoError(t, repo.UpsertBasket(ctx, &Basket{
		BuyerID: "buyer-1",
		Items:   []BasketItem{{ProductID: 1, Quantity: 5}, {ProductID: 2, Quantity: 1}},
	}))

	fetched, err := repo.GetBasket(ctx, "buyer-1")
	require.NoError(t, err)
	require.Len(t, fetched.Items, 2)
	assert.Equal(t, 5, fetched.Items[0].Quantity)
}

func TestMongoRepository_Upsert_KeepsPaymentIntent(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	b := &Basket{
		BuyerID:         "buyer-1",
		Items:           []BasketItem{{ProductID: 1, Quantity: 1}},
		PaymentIntentID: "pi_123",
		ClientSecret:    "secret_abc",
	}
	require.NoError(t, repo.UpsertBasket(ctx, b))

	fetched, err := repo.GetBasket(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, "pi_123", fetched.PaymentIntentID)
	assert.Equal(t, "secret_abc", fetched.ClientSecret)
}

func TestMongoRepository_DeleteBasket(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertBasket(ctx, &Basket{
		BuyerID: "buyer-1",
		Items:   []BasketItem{{ProductID: 1, Quantity: 1}},
	}))

	require.NoError(t, repo.DeleteBasket(ctx, "buyer-1"))

	_, err := repo.GetBasket(ctx, "buyer-1")
	assert.ErrorIs(t, err, ErrBasketNotFound)

	assert.ErrorIs(t, repo.DeleteBasket(ctx, "buyer-1"), ErrBasketNotFound)
}
