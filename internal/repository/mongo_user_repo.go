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

type userDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	ClerkID       string             `bson:"clerkId"`
	Email         string             `bson:"email"`
	Username      string             `bson:"username"`
	Photo         string             `bson:"photo"`
	FirstName     string             `bson:"firstName,omitempty"`
	LastName      string             `bson:"lastName,omitempty"`
	PlanID        int                `bson:"planId"`
	CreditBalance int                `bson:"creditBalance"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
}

func (d userDoc) toModel() model.User {
	return model.User{
		ID:            d.ID.Hex(),
		ClerkID:       d.ClerkID,
		Email:         d.Email,
		Username:      d.Username,
		Photo:         d.Photo,
		FirstName:     d.FirstName,
		LastName:      d.LastName,
		PlanID:        d.PlanID,
		CreditBalance: d.CreditBalance,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

type mongoUserRepo struct {
	coll *mongo.Collection
	now  func() time.Time
}

func (r *mongoUserRepo) CreateUser(ctx context.Context, u *model.User) error {
	now := r.now().UTC()
	doc := userDoc{
		ID:            primitive.NewObjectID(),
		ClerkID:       u.ClerkID,
		Email:         u.Email,
		Username:      u.Username,
		Photo:         u.Photo,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		PlanID:        u.PlanID,
		CreditBalance: u.CreditBalance,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return mongoErr(err, "insert user")
	}
	u.ID = doc.ID.Hex()
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

func (r *mongoUserRepo) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var doc userDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	u := doc.toModel()
	return &u, nil
}

func (r *mongoUserRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *mongoUserRepo) GetUserByClerkID(ctx context.Context, clerkID string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"clerkId": clerkID})
}

func (r *mongoUserRepo) GetUsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, ok := objectID(id); ok {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return nil, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cur.Close(ctx)

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	users := make([]model.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toModel())
	}
	return users, nil
}

func (r *mongoUserRepo) UpdateUser(ctx context.Context, u *model.User) error {
	oid, ok := objectID(u.ID)
	if !ok {
		return ErrNotFound
	}
	var doc userDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{
			"email":     u.Email,
			"username":  u.Username,
			"photo":     u.Photo,
			"firstName": u.FirstName,
			"lastName":  u.LastName,
			"planId":    u.PlanID,
			"updatedAt": r.now().UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return mongoErr(err, "update user")
	}
	*u = doc.toModel()
	return nil
}

func (r *mongoUserRepo) DeleteUser(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return ErrNotFound
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUserRepo) AdjustCredits(ctx context.Context, userID string, delta int) (int, error) {
	return adjustCredits(ctx, r.coll, userID, delta, r.now())
}

// adjustCredits applies $inc atomically and returns the new balance.
func adjustCredits(ctx context.Context, users *mongo.Collection, userID string, delta int, now time.Time) (int, error) {
	oid, ok := objectID(userID)
	if !ok {
		return 0, ErrNotFound
	}
	var doc userDoc
	err := users.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{
			"$inc": bson.M{"creditBalance": delta},
			"$set": bson.M{"updatedAt": now.UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("adjust credits for %s: %w", userID, err)
	}
	return doc.CreditBalance, nil
}
