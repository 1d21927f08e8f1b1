package model

import "time"

// User is an application user, keyed by the identity provider subject.
type User struct {
	ID            string    `db:"id" json:"id"`
	ClerkID       string    `db:"clerk_id" json:"clerk_id"`
	Email         string    `db:"email" json:"email"`
	Username      string    `db:"username" json:"username"`
	Photo         string    `db:"photo" json:"photo"`
	FirstName     string    `db:"first_name" json:"first_name"`
	LastName      string    `db:"last_name" json:"last_name"`
	PlanID        int       `db:"plan_id" json:"plan_id"`
	CreditBalance int       `db:"credit_balance" json:"credit_balance"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Author is the public subset of a user attached to image reads.
type Author struct {
	ID        string `json:"id"`
	ClerkID   string `json:"clerk_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// AuthorOf returns the public author view of u.
func AuthorOf(u *User) *Author {
	if u == nil {
		return nil
	}
	return &Author{ID: u.ID, ClerkID: u.ClerkID, FirstName: u.FirstName, LastName: u.LastName}
}
