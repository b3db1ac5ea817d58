package events

import (
	"context"
	"fmt"

	"github.com/worknet/backend/internal/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// NotificationWriter is the slice of the notification repository a sink needs.
type NotificationWriter interface {
	CreateNotification(notification *models.Notification) error
}

// NotificationSink persists each event as an in-app notification row for the
// target user.
type NotificationSink struct {
	notifications NotificationWriter
}

func NewNotificationSink(notifications NotificationWriter) *NotificationSink {
	return &NotificationSink{notifications: notifications}
}

func (s *NotificationSink) Publish(_ context.Context, event Event) error {
	return s.notifications.CreateNotification(&models.Notification{
		Type:        string(event.Type),
		ActorID:     event.ActorID,
		RecipientID: event.TargetID,
		RequestID:   event.RequestID,
		Message:     messageFor(event.Type),
		CreatedAt:   event.Timestamp,
	})
}

func messageFor(t Type) string {
	switch t {
	case ConnectionRequested:
		return "sent you a connection request"
	case ConnectionAccepted:
		return "accepted your connection request"
	case ConnectionDeclined:
		return "declined your connection request"
	default:
		return fmt.Sprintf("connection event: %s", t)
	}
}

// MongoJournal appends every event as a raw document to a MongoDB collection,
// giving external consumers an ordered record of connection activity.
type MongoJournal struct {
	collection *mongo.Collection
}

func NewMongoJournal(db *mongo.Database) *MongoJournal {
	return &MongoJournal{collection: db.Collection("connection_events")}
}

func (j *MongoJournal) Publish(ctx context.Context, event Event) error {
	_, err := j.collection.InsertOne(ctx, event)
	return err
}
