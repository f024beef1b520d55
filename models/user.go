package models

import "time"

// User is an account record. Only the auth wrapper reads PasswordHash; it is
// never serialized.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
