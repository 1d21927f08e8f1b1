package model

import "time"

// Transaction records a completed credit purchase.
type Transaction struct {
	ID        string    `db:"id" json:"id"`
	StripeID  string    `db:"stripe_id" json:"stripe_id"`
	Amount    float64   `db:"amount" json:"amount"`
	Plan      string    `db:"plan" json:"plan"`
	Credits   int       `db:"credits" json:"credits"`
	BuyerID   string    `db:"buyer_id" json:"buyer_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Plan is a purchasable credit package.
type Plan struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Price   int    `json:"price"`
	Credits int    `json:"credits"`
}

// Plans lists the credit packages on offer.
var Plans = []Plan{
	{ID: 1, Name: "Free", Price: 0, Credits: 20},
	{ID: 2, Name: "Pro Package", Price: 40, Credits: 120},
	{ID: 3, Name: "Premium Package", Price: 199, Credits: 2000},
}

// PlanByID looks up a plan.
func PlanByID(id int) (Plan, bool) {
	for _, p := range Plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}
