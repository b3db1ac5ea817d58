package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification represents an in-app user notification row (PostgreSQL),
// derived from connection events. Unread counts are always recomputed from
// these rows, never kept as a separately mutated counter.
type Notification struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Type        string    `json:"type" gorm:"size:30;index"` // connection_requested, connection_accepted, connection_declined
	ActorID     uuid.UUID `json:"actor_id" gorm:"type:uuid;index"`
	RecipientID uuid.UUID `json:"recipient_id" gorm:"type:uuid;index"`
	RequestID   uuid.UUID `json:"request_id" gorm:"type:uuid"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read" gorm:"default:false;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}
