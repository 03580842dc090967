package models

import (
	"time"

	"github.com/google/uuid"
)

// Student is the durable identity of a joined student, keyed by display name.
// Reconnecting with the same name reuses the same record (and id).
type Student struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
	IsActive bool      `json:"isActive"`
}
