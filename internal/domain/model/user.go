package model

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	HashedPassword string    `json:"-"` // Not exposed
	Role           string    `json:"role"`
	Currency       int       `json:"currency"`
	Experience     int       `json:"experience"`
	Hearts         int       `json:"hearts"`
	MapTier        string    `json:"map_tier"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Profile is the /me view: the user plus every solution credited to them.
type Profile struct {
	User
	Solutions []Solution `json:"solutions"`
}
