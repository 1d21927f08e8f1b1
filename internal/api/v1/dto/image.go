package dto

// ImageUpdateDTO edits the metadata of a saved image
type ImageUpdateDTO struct {
	Title string `json:"title" validate:"required,max=100"`
}
