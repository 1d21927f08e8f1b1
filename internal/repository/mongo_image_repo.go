package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"imaginify/internal/model"
	"imaginify/internal/transformation"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type imageDoc struct {
	ID                 primitive.ObjectID    `bson:"_id,omitempty"`
	Title              string                `bson:"title"`
	TransformationType transformation.Type   `bson:"transformationType"`
	PublicID           string                `bson:"publicId"`
	SecureURL          string                `bson:"secureURL"`
	Width              int                   `bson:"width,omitempty"`
	Height             int                   `bson:"height,omitempty"`
	Config             transformation.Config `bson:"config"`
	TransformationURL  string                `bson:"transformationURL,omitempty"`
	AspectRatio        string                `bson:"aspectRatio,omitempty"`
	Color              string                `bson:"color,omitempty"`
	Prompt             string                `bson:"prompt,omitempty"`
	Author             primitive.ObjectID    `bson:"author"`
	CreatedAt          time.Time             `bson:"createdAt"`
	UpdatedAt          time.Time             `bson:"updatedAt"`
}

func (d imageDoc) toModel() model.Image {
	return model.Image{
		ID:                 d.ID.Hex(),
		Title:              d.Title,
		TransformationType: d.TransformationType,
		PublicID:           d.PublicID,
		SecureURL:          d.SecureURL,
		Width:              d.Width,
		Height:             d.Height,
		Config:             d.Config,
		TransformationURL:  d.TransformationURL,
		AspectRatio:        d.AspectRatio,
		Color:              d.Color,
		Prompt:             d.Prompt,
		AuthorID:           d.Author.Hex(),
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

type mongoImageRepo struct {
	coll *mongo.Collection
	now  func() time.Time
}

func (r *mongoImageRepo) CreateImage(ctx context.Context, img *model.Image) error {
	author, ok := objectID(img.AuthorID)
	if !ok {
		return fmt.Errorf("create image: invalid author id %q", img.AuthorID)
	}
	now := r.now().UTC()
	doc := imageDoc{
		ID:                 primitive.NewObjectID(),
		Title:              img.Title,
		TransformationType: img.TransformationType,
		PublicID:           img.PublicID,
		SecureURL:          img.SecureURL,
		Width:              img.Width,
		Height:             img.Height,
		Config:             img.Config,
		TransformationURL:  img.TransformationURL,
		AspectRatio:        img.AspectRatio,
		Color:              img.Color,
		Prompt:             img.Prompt,
		Author:             author,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return mongoErr(err, "insert image")
	}
	img.ID = doc.ID.Hex()
	img.CreatedAt, img.UpdatedAt = now, now
	return nil
}

func (r *mongoImageRepo) GetImageByID(ctx context.Context, id string) (*model.Image, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, nil
	}
	var doc imageDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find image %s: %w", id, err)
	}
	img := doc.toModel()
	return &img, nil
}

func (r *mongoImageRepo) UpdateImage(ctx context.Context, img *model.Image) error {
	oid, ok := objectID(img.ID)
	if !ok {
		return ErrNotFound
	}
	now := r.now().UTC()
	update := bson.M{"$set": bson.M{
		"title":              img.Title,
		"transformationType": img.TransformationType,
		"publicId":           img.PublicID,
		"secureURL":          img.SecureURL,
		"width":              img.Width,
		"height":             img.Height,
		"config":             img.Config,
		"transformationURL":  img.TransformationURL,
		"aspectRatio":        img.AspectRatio,
		"color":              img.Color,
		"prompt":             img.Prompt,
		"updatedAt":          now,
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return mongoErr(err, "update image")
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	img.UpdatedAt = now
	return nil
}

func (r *mongoImageRepo) DeleteImage(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return ErrNotFound
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete image %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoImageRepo) DeleteImagesByAuthor(ctx context.Context, authorID string) (int, error) {
	oid, ok := objectID(authorID)
	if !ok {
		return 0, nil
	}
	res, err := r.coll.DeleteMany(ctx, bson.M{"author": oid})
	if err != nil {
		return 0, fmt.Errorf("delete images of %s: %w", authorID, err)
	}
	return int(res.DeletedCount), nil
}

// query translates filter. ok is false when the filter cannot match.
func (r *mongoImageRepo) query(filter ImageFilter) (bson.M, bool) {
	q := bson.M{}
	if filter.AuthorID != "" {
		oid, ok := objectID(filter.AuthorID)
		if !ok {
			return nil, false
		}
		q["author"] = oid
	}
	if filter.RestrictToPublicIDs {
		if len(filter.PublicIDs) == 0 {
			return nil, false
		}
		q["publicId"] = bson.M{"$in": filter.PublicIDs}
	}
	return q, true
}

func (r *mongoImageRepo) ListImages(ctx context.Context, filter ImageFilter, offset, limit int) ([]model.Image, error) {
	q, ok := r.query(filter)
	if !ok {
		return []model.Image{}, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("find images: %w", err)
	}
	defer cur.Close(ctx)

	images := []model.Image{}
	for cur.Next(ctx) {
		var doc imageDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		images = append(images, doc.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("image cursor: %w", err)
	}
	return images, nil
}

func (r *mongoImageRepo) CountImages(ctx context.Context, filter ImageFilter) (int, error) {
	q, ok := r.query(filter)
	if !ok {
		return 0, nil
	}
	n, err := r.coll.CountDocuments(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("count images: %w", err)
	}
	return int(n), nil
}
