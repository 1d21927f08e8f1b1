package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"imaginify/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type transactionDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	StripeID  string             `bson:"stripeId"`
	Amount    float64            `bson:"amount"`
	Plan      string             `bson:"plan,omitempty"`
	Credits   int                `bson:"credits,omitempty"`
	Buyer     primitive.ObjectID `bson:"buyer"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d transactionDoc) toModel() model.Transaction {
	return model.Transaction{
		ID:        d.ID.Hex(),
		StripeID:  d.StripeID,
		Amount:    d.Amount,
		Plan:      d.Plan,
		Credits:   d.Credits,
		BuyerID:   d.Buyer.Hex(),
		CreatedAt: d.CreatedAt,
	}
}

type mongoTransactionRepo struct {
	coll  *mongo.Collection
	users *mongo.Collection
	now   func() time.Time
}

// RecordPurchase inserts the transaction first; the unique stripeId index
// turns webhook replays into ErrDuplicate before any credit is granted.
// When the grant fails the inserted row is removed again so a redelivery
// can complete the purchase.
func (r *mongoTransactionRepo) RecordPurchase(ctx context.Context, t *model.Transaction) (int, error) {
	buyer, ok := objectID(t.BuyerID)
	if !ok {
		return 0, ErrNotFound
	}

	// 1. The buyer must exist before anything is written
	n, err := r.users.CountDocuments(ctx, bson.M{"_id": buyer}, options.Count().SetLimit(1))
	if err != nil {
		return 0, fmt.Errorf("find buyer %s: %w", t.BuyerID, err)
	}
	if n == 0 {
		return 0, ErrNotFound
	}

	// 2. Claim the Stripe id
	now := r.now().UTC()
	doc := transactionDoc{
		ID:        primitive.NewObjectID(),
		StripeID:  t.StripeID,
		Amount:    t.Amount,
		Plan:      t.Plan,
		Credits:   t.Credits,
		Buyer:     buyer,
		CreatedAt: now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return 0, mongoErr(err, "insert transaction")
	}

	// 3. Grant, releasing the claim on failure
	balance, err := adjustCredits(ctx, r.users, t.BuyerID, t.Credits, now)
	if err != nil {
		if _, derr := r.coll.DeleteOne(context.WithoutCancel(ctx), bson.M{"_id": doc.ID}); derr != nil {
			return 0, fmt.Errorf("grant credits for %s: %w (releasing transaction: %v)", t.StripeID, err, derr)
		}
		return 0, fmt.Errorf("grant credits for %s: %w", t.StripeID, err)
	}
	t.ID = doc.ID.Hex()
	t.CreatedAt = now
	return balance, nil
}

func (r *mongoTransactionRepo) GetTransactionByStripeID(ctx context.Context, stripeID string) (*model.Transaction, error) {
	var doc transactionDoc
	err := r.coll.FindOne(ctx, bson.M{"stripeId": stripeID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction %s: %w", stripeID, err)
	}
	t := doc.toModel()
	return &t, nil
}

func (r *mongoTransactionRepo) ListTransactionsByBuyer(ctx context.Context, buyerID string) ([]model.Transaction, error) {
	oid, ok := objectID(buyerID)
	if !ok {
		return nil, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"buyer": oid}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	defer cur.Close(ctx)

	var docs []transactionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	out := make([]model.Transaction, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}
