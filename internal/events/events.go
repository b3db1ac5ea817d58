package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type identifies the state transition an event reports.
type Type string

const (
	ConnectionRequested Type = "connection_requested"
	ConnectionAccepted  Type = "connection_accepted"
	ConnectionDeclined  Type = "connection_declined"
)

// Event is the abstract notification emitted on every successful connection
// state transition. Delivery (push, email, in-app badge) is entirely up to
// the configured sink; the engine emits exactly one event per successful
// transition and none on failed or rejected operations.
type Event struct {
	Type      Type      `json:"type" bson:"type"`
	ActorID   uuid.UUID `json:"actor_id" bson:"actor_id"`
	TargetID  uuid.UUID `json:"target_id" bson:"target_id"`
	RequestID uuid.UUID `json:"request_id" bson:"request_id"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Sink consumes connection events. Implementations must not assume they are
// called before the triggering transition has committed.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Publish(context.Context, Event) error { return nil }

// Fanout publishes to every sink in order, returning the first error after
// all sinks have been attempted.
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, event Event) error {
	var firstErr error
	for _, s := range f {
		if err := s.Publish(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
