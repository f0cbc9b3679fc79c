package basket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{collection: db.Collection("baskets")}
}

// ConnectMongoDB opens and pings a mongo database.
func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

func (m *mongoRepository) GetBasket(ctx context.Context, buyerID string) (*Basket, error) {
	var b Basket

	filter := bson.M{"buyer_id": buyerID}
	err := m.collection.FindOne(ctx, filter).Decode(&b)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrBasketNotFound
		}
		return nil, fmt.Errorf("failed to get basket: %w", err)
	}

	return &b, nil
}

func (m *mongoRepository) UpsertBasket(ctx context.Context, b *Basket) error {
	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	filter := bson.M{"buyer_id": b.BuyerID}
	update := bson.M{"$set": bson.M{
		"buyer_id":          b.BuyerID,
		"items":             b.Items,
		"payment_intent_id": b.PaymentIntentID,
		"client_secret":     b.ClientSecret,
		"created_at":        b.CreatedAt,
		"updated_at":        b.UpdatedAt,
	}}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert basket: %w", err)
	}
	return nil
}

func (m *mongoRepository) DeleteBasket(ctx context.Context, buyerID string) error {
	res, err := m.collection.DeleteOne(ctx, bson.M{"buyer_id": buyerID})
	if err != nil {
		return fmt.Errorf("failed to delete basket: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrBasketNotFound
	}
	return nil
}
