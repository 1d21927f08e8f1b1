package dto

type CheckoutDTO struct {
	PlanID int `json:"plan_id" validate:"required,min=1"`
}

type CheckoutResponseDTO struct {
	URL string `json:"url"`
}
