package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	imagesCollection       = "images"
	usersCollection        = "users"
	transactionsCollection = "transactions"
)

// NewMongoStore builds the repositories over db. Closing the store
// disconnects client.
func NewMongoStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		Images:       &mongoImageRepo{coll: db.Collection(imagesCollection), now: time.Now},
		Users:        &mongoUserRepo{coll: db.Collection(usersCollection), now: time.Now},
		Transactions: &mongoTransactionRepo{coll: db.Collection(transactionsCollection), users: db.Collection(usersCollection), now: time.Now},
		close:        client.Disconnect,
	}
}

// EnsureMongoIndexes creates the unique and listing indexes.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "clerkId", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
		},
		imagesCollection: {
			{Keys: bson.D{{Key: "updatedAt", Value: -1}}},
			{Keys: bson.D{{Key: "author", Value: 1}, {Key: "updatedAt", Value: -1}}},
			{Keys: bson.D{{Key: "publicId", Value: 1}}},
		},
		transactionsCollection: {
			{Keys: bson.D{{Key: "stripeId", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "buyer", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// objectID parses a hex id. Malformed ids never match a document.
func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

func mongoErr(err error, op string) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}
