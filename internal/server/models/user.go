package models

import "time"

// User is a registered identity. Email is unique and matched exactly.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
