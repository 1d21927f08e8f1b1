package model

import (
	"time"

	"imaginify/internal/transformation"
)

// Image is a saved transformation result owned by a single user.
type Image struct {
	ID                 string                `db:"id" json:"id"`
	Title              string                `db:"title" json:"title"`
	TransformationType transformation.Type   `db:"transformation_type" json:"transformation_type"`
	PublicID           string                `db:"public_id" json:"public_id"`
	SecureURL          string                `db:"secure_url" json:"secure_url"`
	Width              int                   `db:"width" json:"width"`
	Height             int                   `db:"height" json:"height"`
	Config             transformation.Config `db:"config" json:"config"`
	TransformationURL  string                `db:"transformation_url" json:"transformation_url"`
	AspectRatio        string                `db:"aspect_ratio" json:"aspect_ratio,omitempty"`
	Color              string                `db:"color" json:"color,omitempty"`
	Prompt             string                `db:"prompt" json:"prompt,omitempty"`
	AuthorID           string                `db:"author_id" json:"author_id"`
	Author             *Author               `db:"-" json:"author,omitempty"`
	CreatedAt          time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time             `db:"updated_at" json:"updated_at"`
}

// ImagePage is one page of an image listing.
type ImagePage struct {
	Data        []Image `json:"data"`
	Page        int     `json:"page"`
	TotalPages  int     `json:"total_pages"`
	SavedImages int     `json:"saved_images"`
}
