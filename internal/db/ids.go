package db

import "github.com/google/uuid"

// NewID generates a random identifier for new rows.
func NewID() string {
	return uuid.NewString()
}
