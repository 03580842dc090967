package models

import (
	"time"

	"github.com/google/uuid"
)

// Sender roles for chat messages.
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// ChatMessage is one chat line, append-only.
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	Sender    string    `json:"sender"`
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
