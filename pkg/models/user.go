package models

import "time"

// User represents a store account
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"` // never exposed to clients
	CreatedAt    time.Time `json:"createdAt"`
}
