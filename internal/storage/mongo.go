package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mpetrov/cartkeeper/internal/domain"
)

type mongoCartDocument struct {
	PartitionKey string      `bson:"_id"`
	Items        domain.Cart `bson:"items"`
	UpdatedAt    time.Time   `bson:"updated_at"`
}

// MongoStore persists one document per partition key with the items array
// embedded. Save is a full-replace upsert: the stored document always mirrors
// the latest in-memory snapshot.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		collection: db.Collection("carts"),
	}
}

func (s *MongoStore) Load(ctx context.Context, identity string) (domain.Cart, error) {
	var doc mongoCartDocument

	filter := bson.M{"_id": Key(identity)}
	err := s.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	return doc.Items, nil
}

func (s *MongoStore) Save(ctx context.Context, identity string, cart domain.Cart) error {
	doc := mongoCartDocument{
		PartitionKey: Key(identity),
		Items:        cart,
		UpdatedAt:    time.Now(),
	}

	filter := bson.M{"_id": doc.PartitionKey}
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)

	if _, err := s.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// ConnectMongoDB opens a client with the pool settings the store expects.
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
