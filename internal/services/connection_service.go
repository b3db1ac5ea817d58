package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/worknet/backend/internal/events"
	"github.com/worknet/backend/internal/models"
	"github.com/worknet/backend/internal/repositories"
	apperrors "github.com/worknet/backend/pkg/errors"
)

// RespondAction is the recipient's decision on a pending request.
type RespondAction string

const (
	RespondAccept  RespondAction = "accept"
	RespondDecline RespondAction = "decline"
)

// ConnectionService is the state machine over connection requests. Every
// mutation of the request and edge tables goes through it, so validation and
// the storage write are never separated by another actor's write: the
// repository primitives themselves arbitrate conflicting calls on a pair.
type ConnectionService struct {
	connections repositories.ConnectionRepository
	sink        events.Sink
}

// NewConnectionService creates a new ConnectionService
func NewConnectionService(connections repositories.ConnectionRepository, sink events.Sink) *ConnectionService {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &ConnectionService{connections: connections, sink: sink}
}

// Send creates a pending connection request from requester to recipient.
// Only a live pending request or an existing edge blocks it; terminal history
// between the pair never does.
func (s *ConnectionService) Send(ctx context.Context, requesterID, recipientID uuid.UUID, message string) (*models.ConnectionRequest, error) {
	if requesterID == recipientID {
		return nil, apperrors.ErrSelfConnection
	}

	connected, err := s.connections.EdgeExists(ctx, requesterID, recipientID)
	if err != nil {
		return nil, storage(err)
	}
	if connected {
		return nil, apperrors.ErrAlreadyConnected
	}

	req := &models.ConnectionRequest{
		ID:          uuid.New(),
		RequesterID: requesterID,
		RecipientID: recipientID,
		Message:     message,
		Status:      models.ConnectionRequestPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.connections.CreateRequestIfAbsent(ctx, req); err != nil {
		return nil, storage(err)
	}

	s.emit(ctx, events.Event{
		Type:      events.ConnectionRequested,
		ActorID:   requesterID,
		TargetID:  recipientID,
		RequestID: req.ID,
		Timestamp: req.CreatedAt,
	})
	return req, nil
}

// Respond lets the recipient accept or decline a pending request. Accept
// creates the edge before the status flip: if the edge turns out to already
// exist the whole call fails and the request stays pending, so a request is
// never marked accepted without its edge. If the flip itself loses to a
// concurrent transition, the just-created edge is removed again, so a failed
// accept never leaves a connection behind.
func (s *ConnectionService) Respond(ctx context.Context, requestID, actingUserID uuid.UUID, action RespondAction) (*models.ConnectionRequest, error) {
	req, err := s.connections.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, storage(err)
	}
	if req.RecipientID != actingUserID {
		return nil, apperrors.ErrNotRecipient
	}
	if req.Status != models.ConnectionRequestPending {
		return nil, apperrors.ErrRequestNotPending
	}

	now := time.Now().UTC()
	switch action {
	case RespondAccept:
		if _, err := s.connections.CreateEdge(ctx, req.RequesterID, req.RecipientID); err != nil {
			return nil, storage(err)
		}
		if err := s.connections.UpdateRequestStatus(ctx, requestID, models.ConnectionRequestPending, models.ConnectionRequestAccepted, now); err != nil {
			// The flip lost to a concurrent transition. The edge write above
			// was ours, so take it back out: a failed accept leaves nothing.
			if rmErr := s.connections.RemoveEdge(ctx, req.RequesterID, req.RecipientID); rmErr != nil && !errors.Is(rmErr, apperrors.ErrEdgeNotFound) {
				log.Printf("edge cleanup after failed accept of request %s: %v", requestID, rmErr)
			}
			return nil, storage(err)
		}
		req.Status = models.ConnectionRequestAccepted
	case RespondDecline:
		if err := s.connections.UpdateRequestStatus(ctx, requestID, models.ConnectionRequestPending, models.ConnectionRequestDeclined, now); err != nil {
			return nil, storage(err)
		}
		req.Status = models.ConnectionRequestDeclined
	default:
		return nil, apperrors.InvalidArg("action must be accept or decline")
	}
	req.RespondedAt = &now

	eventType := events.ConnectionAccepted
	if action == RespondDecline {
		eventType = events.ConnectionDeclined
	}
	s.emit(ctx, events.Event{
		Type:      eventType,
		ActorID:   req.RecipientID,
		TargetID:  req.RequesterID,
		RequestID: req.ID,
		Timestamp: now,
	})
	return req, nil
}

// Cancel lets the requester withdraw a still-pending request. Cancellation is
// a conditional transition like any other, not a best-effort interrupt, and
// emits no notification.
func (s *ConnectionService) Cancel(ctx context.Context, requestID, actingUserID uuid.UUID) (*models.ConnectionRequest, error) {
	req, err := s.connections.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, storage(err)
	}
	if req.RequesterID != actingUserID {
		return nil, apperrors.ErrNotRequester
	}
	if req.Status != models.ConnectionRequestPending {
		return nil, apperrors.ErrRequestNotPending
	}

	now := time.Now().UTC()
	if err := s.connections.UpdateRequestStatus(ctx, requestID, models.ConnectionRequestPending, models.ConnectionRequestCancelled, now); err != nil {
		return nil, storage(err)
	}
	req.Status = models.ConnectionRequestCancelled
	req.RespondedAt = &now
	return req, nil
}

// Remove deletes the edge between userA and userB. Either endpoint may call
// it; request history is left untouched, so a fresh Send works afterwards.
func (s *ConnectionService) Remove(ctx context.Context, userA, userB, actingUserID uuid.UUID) error {
	if actingUserID != userA && actingUserID != userB {
		return apperrors.ErrNotParticipant
	}
	if err := s.connections.RemoveEdge(ctx, userA, userB); err != nil {
		return storage(err)
	}
	return nil
}

// ListPending retrieves a user's pending requests in the given direction.
func (s *ConnectionService) ListPending(ctx context.Context, userID uuid.UUID, direction models.PendingDirection) ([]models.ConnectionRequest, error) {
	requests, err := s.connections.ListPendingRequests(ctx, userID, direction)
	if err != nil {
		return nil, storage(err)
	}
	return requests, nil
}

// ListConnections retrieves the ids of everyone connected to userID.
func (s *ConnectionService) ListConnections(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.connections.ListNeighborIDs(ctx, userID)
	if err != nil {
		return nil, storage(err)
	}
	return ids, nil
}

// emit publishes the event for a committed transition. A sink failure is
// logged and never unwinds the transition.
func (s *ConnectionService) emit(ctx context.Context, event events.Event) {
	if err := s.sink.Publish(ctx, event); err != nil {
		log.Printf("connection event %s publish failed: %v", event.Type, err)
	}
}

// storage passes domain errors through unchanged and folds anything
// unexpected from the repository into an internal error.
func storage(err error) error {
	if apperrors.CodeOf(err) != apperrors.CodeUnknown {
		return err
	}
	return apperrors.ErrStorageFailed(err)
}
