package models

import (
	"time"

	"github.com/google/uuid"
)

// ConnectionRequestStatus is the lifecycle state of a connection request.
type ConnectionRequestStatus string

const (
	ConnectionRequestPending   ConnectionRequestStatus = "pending"
	ConnectionRequestAccepted  ConnectionRequestStatus = "accepted"
	ConnectionRequestDeclined  ConnectionRequestStatus = "declined"
	ConnectionRequestCancelled ConnectionRequestStatus = "cancelled"
)

// Terminal reports whether no further transition may leave this status.
func (s ConnectionRequestStatus) Terminal() bool {
	return s != ConnectionRequestPending
}

// ConnectionRequest is a directed proposal from one user to another to form a
// connection. Rows are never deleted; terminal rows are kept as history.
type ConnectionRequest struct {
	ID          uuid.UUID               `json:"id" gorm:"type:uuid;primaryKey"`
	RequesterID uuid.UUID               `json:"requester_id" gorm:"type:uuid;not null;index"`
	RecipientID uuid.UUID               `json:"recipient_id" gorm:"type:uuid;not null;index"`
	PairKey     string                  `json:"-" gorm:"size:80;not null;index"`
	Message     string                  `json:"message,omitempty"`
	Status      ConnectionRequestStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	CreatedAt   time.Time               `json:"created_at"`
	RespondedAt *time.Time              `json:"responded_at,omitempty"`
}

// ConnectionEdge is a confirmed, symmetric connection between two users,
// stored once per unordered pair in canonical order.
type ConnectionEdge struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	UserLow   uuid.UUID `json:"user_low" gorm:"type:uuid;not null;index"`
	UserHigh  uuid.UUID `json:"user_high" gorm:"type:uuid;not null;index"`
	PairKey   string    `json:"-" gorm:"size:80;not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
}

// Peer returns the other endpoint of the edge. Callers pass an id known to be
// one of the two endpoints.
func (e ConnectionEdge) Peer(userID uuid.UUID) uuid.UUID {
	if e.UserLow == userID {
		return e.UserHigh
	}
	return e.UserLow
}

// CanonicalPair orders two user ids so that the pair {a, b} always maps to the
// same (low, high) regardless of argument order.
func CanonicalPair(a, b uuid.UUID) (low, high uuid.UUID) {
	if a.String() < b.String() {
		return a, b
	}
	return b, a
}

// ConnectionPairKey is the storage key for the unordered pair {a, b}. Both
// directions of a pair produce the same key, so concurrent writers for the
// same two users always contend on one row.
func ConnectionPairKey(a, b uuid.UUID) string {
	low, high := CanonicalPair(a, b)
	return low.String() + ":" + high.String()
}

// PendingDirection selects which side of pending requests to list.
type PendingDirection string

const (
	PendingSent     PendingDirection = "sent"
	PendingReceived PendingDirection = "received"
)

// SendConnectionRequest defines the request body for sending a connection request
type SendConnectionRequest struct {
	RecipientID uuid.UUID `json:"recipient_id" validate:"required"`
	Message     string    `json:"message,omitempty" validate:"max=300"`
}

// RespondConnectionRequest defines the request body for accepting/declining a connection request
type RespondConnectionRequest struct {
	Action string `json:"action" validate:"required,oneof=accept decline"`
}
