package dto

// DraftCreateDTO opens a transformation form. Type starts a new image,
// ImageID edits an existing one.
type DraftCreateDTO struct {
	Type    string `json:"type" validate:"omitempty,max=32"`
	ImageID string `json:"image_id" validate:"omitempty,max=64"`
}

// DraftImageDTO attaches an uploaded asset to a draft
type DraftImageDTO struct {
	PublicID  string `json:"public_id" validate:"required,max=255"`
	SecureURL string `json:"secure_url" validate:"required,url"`
	Width     int    `json:"width" validate:"gte=0"`
	Height    int    `json:"height" validate:"gte=0"`
}

// DraftUpdateDTO changes form fields; omitted fields are left alone
type DraftUpdateDTO struct {
	Title       *string `json:"title" validate:"omitempty,max=100"`
	AspectRatio *string `json:"aspect_ratio" validate:"omitempty,oneof=1:1 3:4 9:16"`
	Prompt      *string `json:"prompt" validate:"omitempty,max=200"`
	Color       *string `json:"color" validate:"omitempty,max=50"`
}
