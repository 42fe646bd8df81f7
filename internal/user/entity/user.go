package entity

import "time"

// User represents a row in the `users` table.
type User struct {
	ID            int64     `db:"id"`
	FirstName     string    `db:"first_name"`
	LastName      string    `db:"last_name"`
	Email         string    `db:"email"`
	PasswordHash  string    `db:"password"`
	CreatedAt     time.Time `db:"created_at"`
	LoyaltyCardID *string   `db:"loyalty_card_id"`
}

// Profile is the public projection returned by the profile endpoint.
type Profile struct {
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Email         string    `json:"email"`
	CreatedAt     time.Time `json:"created_at"`
	LoyaltyCardID *string   `json:"loyalty_card_id"`
}

// Profile returns the profile fields of u.
func (u *User) Profile() Profile {
	return Profile{
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Email:         u.Email,
		CreatedAt:     u.CreatedAt,
		LoyaltyCardID: u.LoyaltyCardID,
	}
}
