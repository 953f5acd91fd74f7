package domain

import "time"

// CustomerProfile is the record-store row created alongside account sign-up.
// CustomerID is the human-readable identifier shown to customers; UserID is
// the identity id issued by the session provider.
type CustomerProfile struct {
	CustomerID string    `json:"customer_id" bson:"customer_id"`
	UserID     string    `json:"user_id"     bson:"user_id"`
	FullName   string    `json:"full_name"   bson:"full_name"`
	Email      string    `json:"email"       bson:"email"`
	Phone      string    `json:"phone"       bson:"phone"`
	CreatedAt  time.Time `json:"created_at"  bson:"created_at"`
}
