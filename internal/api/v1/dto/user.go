package dto

import "time"

// UserCreateDTO is used for incoming create and update requests
type UserCreateDTO struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,min=1,max=50"`
	Photo     string `json:"photo" validate:"omitempty,url"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

// UserResponseDTO is returned in API responses
type UserResponseDTO struct {
	ID            string    `json:"id"`
	ClerkID       string    `json:"clerk_id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	Photo         string    `json:"photo"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	PlanID        int       `json:"plan_id"`
	CreditBalance int       `json:"credit_balance"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
