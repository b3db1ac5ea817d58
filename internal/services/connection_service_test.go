package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worknet/backend/internal/events"
	"github.com/worknet/backend/internal/models"
	"github.com/worknet/backend/internal/repositories"
	apperrors "github.com/worknet/backend/pkg/errors"
)

// recordingSink captures published events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *recordingSink) Publish(_ context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) all() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.Event, len(s.events))
	copy(out, s.events)
	return out
}

// interleavingStore lets a test land another write right before a status
// flip, simulating a concurrent transition on the same request.
type interleavingStore struct {
	repositories.ConnectionRepository
	beforeStatusUpdate func()
}

func (s *interleavingStore) UpdateRequestStatus(ctx context.Context, id uuid.UUID, expected, next models.ConnectionRequestStatus, respondedAt time.Time) error {
	if s.beforeStatusUpdate != nil {
		s.beforeStatusUpdate()
	}
	return s.ConnectionRepository.UpdateRequestStatus(ctx, id, expected, next, respondedAt)
}

func newTestService() (*ConnectionService, *repositories.MemoryConnectionRepository, *recordingSink) {
	repo := repositories.NewMemoryConnectionRepository()
	sink := &recordingSink{}
	return NewConnectionService(repo, sink), repo, sink
}

func TestConnectionService_Send(t *testing.T) {
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	t.Run("creates a pending request and emits one event", func(t *testing.T) {
		svc, _, sink := newTestService()

		req, err := svc.Send(ctx, alice, bob, "Hi")
		require.NoError(t, err)
		assert.Equal(t, alice, req.RequesterID)
		assert.Equal(t, bob, req.RecipientID)
		assert.Equal(t, models.ConnectionRequestPending, req.Status)
		assert.Equal(t, "Hi", req.Message)
		assert.Nil(t, req.RespondedAt)

		published := sink.all()
		require.Len(t, published, 1)
		assert.Equal(t, events.ConnectionRequested, published[0].Type)
		assert.Equal(t, alice, published[0].ActorID)
		assert.Equal(t, bob, published[0].TargetID)
		assert.Equal(t, req.ID, published[0].RequestID)
	})

	t.Run("rejects self requests without touching the store", func(t *testing.T) {
		svc, _, sink := newTestService()

		_, err := svc.Send(ctx, alice, alice, "")
		assert.ErrorIs(t, err, apperrors.ErrSelfConnection)
		assert.Equal(t, apperrors.CodeInvalidArgument, apperrors.CodeOf(err))
		assert.Empty(t, sink.all())
	})

	t.Run("rejects both directions while a request is pending", func(t *testing.T) {
		svc, _, sink := newTestService()

		_, err := svc.Send(ctx, alice, bob, "")
		require.NoError(t, err)

		_, err = svc.Send(ctx, alice, bob, "")
		assert.ErrorIs(t, err, apperrors.ErrDuplicatePending)

		_, err = svc.Send(ctx, bob, alice, "")
		assert.ErrorIs(t, err, apperrors.ErrDuplicatePending)

		assert.Len(t, sink.all(), 1)
	})

	t.Run("rejects both directions once connected", func(t *testing.T) {
		svc, repo, _ := newTestService()

		_, err := repo.CreateEdge(ctx, alice, bob)
		require.NoError(t, err)

		_, err = svc.Send(ctx, alice, bob, "")
		assert.ErrorIs(t, err, apperrors.ErrAlreadyConnected)

		_, err = svc.Send(ctx, bob, alice, "")
		assert.ErrorIs(t, err, apperrors.ErrAlreadyConnected)
	})

	t.Run("concurrent sends on the same pair have exactly one winner", func(t *testing.T) {
		svc, _, sink := newTestService()

		var wg sync.WaitGroup
		errs := make([]error, 2)
		pairs := [][2]uuid.UUID{{alice, bob}, {bob, alice}}
		for i := range pairs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.Send(ctx, pairs[i][0], pairs[i][1], "")
			}(i)
		}
		wg.Wait()

		var won, lost int
		for _, err := range errs {
			if err == nil {
				won++
			} else {
				assert.Equal(t, apperrors.CodeAlreadyExists, apperrors.CodeOf(err))
				lost++
			}
		}
		assert.Equal(t, 1, won)
		assert.Equal(t, 1, lost)
		assert.Len(t, sink.all(), 1)
	})
}

func TestConnectionService_Respond(t *testing.T) {
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	t.Run("accept creates the edge and both users see each other", func(t *testing.T) {
		svc, _, sink := newTestService()

		req, err := svc.Send(ctx, alice, bob, "Hi")
		require.NoError(t, err)

		received, err := svc.ListPending(ctx, bob, models.PendingReceived)
		require.NoError(t, err)
		require.Len(t, received, 1)
		assert.Equal(t, alice, received[0].RequesterID)
		assert.Equal(t, "Hi", received[0].Message)

		updated, err := svc.Respond(ctx, req.ID, bob, RespondAccept)
		require.NoError(t, err)
		assert.Equal(t, models.ConnectionRequestAccepted, updated.Status)
		require.NotNil(t, updated.RespondedAt)

		aliceConns, err := svc.ListConnections(ctx, alice)
		require.NoError(t, err)
		bobConns, err := svc.ListConnections(ctx, bob)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{bob}, aliceConns)
		assert.Equal(t, []uuid.UUID{alice}, bobConns)

		for _, userID := range []uuid.UUID{alice, bob} {
			for _, dir := range []models.PendingDirection{models.PendingSent, models.PendingReceived} {
				pending, err := svc.ListPending(ctx, userID, dir)
				require.NoError(t, err)
				assert.Empty(t, pending)
			}
		}

		published := sink.all()
		require.Len(t, published, 2)
		assert.Equal(t, events.ConnectionAccepted, published[1].Type)
		assert.Equal(t, bob, published[1].ActorID)
		assert.Equal(t, alice, published[1].TargetID)
	})

	t.Run("decline leaves no edge and allows resending", func(t *testing.T) {
		svc, _, sink := newTestService()

		req, err := svc.Send(ctx, alice, bob, "")
		require.NoError(t, err)

		updated, err := svc.Respond(ctx, req.ID, bob, RespondDecline)
		require.NoError(t, err)
		assert.Equal(t, models.ConnectionRequestDeclined, updated.Status)

		conns, err := svc.ListConnections(ctx, alice)
		require.NoError(t, err)
		assert.Empty(t, conns)

		// Terminal history never blocks a new request.
		again, err := svc.Send(ctx, alice, bob, "")
		require.NoError(t, err)
		assert.Equal(t, models.ConnectionRequestPending, again.Status)
		assert.NotEqual(t, req.ID, again.ID)

		published := sink.all()
		require.Len(t, published, 3)
		assert.Equal(t, events.ConnectionDeclined, published[1].Type)
	})

	t.Run("only the recipient may respond", func(t *testing.T) {
		svc, _, _ := newTestService()

		req, err := svc.Send(ctx, alice, bob, "")
		require.NoError(t, err)

		_, err = svc.Respond(ctx, req.ID, alice, RespondAccept)
		assert.ErrorIs(t, err, apperrors.ErrNotRecipient)
		assert.Equal(t, apperrors.CodePermissionDenied, apperrors.CodeOf(err))

		_, err = svc.Respond(ctx, req.ID, uuid.New(), RespondDecline)
		assert.ErrorIs(t, err, apperrors.ErrNotRecipient)
	})

	t.Run("a second respond on the same request fails", func(t *testing.T) {
		svc, _, _ := newTestService()

		req, err := svc.Send(ctx, alice, bob, "")
		require.NoError(t, err)

		_, err = svc.Respond(ctx, req.ID, bob, RespondAccept)
		require.NoError(t, err)

		_, err = svc.Respond(ctx, req.ID, bob, RespondAccept)
		assert.ErrorIs(t, err, apperrors.ErrRequestNotPending)

		_, err = svc.Respond(ctx, req.ID, bob, RespondDecline)
		assert.ErrorIs(t, err, apperrors.ErrRequestNotPending)
	})

	t.Run("accept fails and stays pending when the edge already exists", func(t *testing.T) {
		svc, repo, sink := newTestService()

		req, err := svc.Send(ctx, alice, bob, "")
		require.NoError(t, err)

		// Simulate a racing acceptance path having created the edge.
		_, err = repo.CreateEdge(ctx, alice, bob)
		require.NoError(t, err)

		_, err = svc.Respond(ctx, req.ID, bob, RespondAccept)
		assert.ErrorIs(t, err, apperrors.ErrAlreadyConnected)

		stored, err := repo.GetRequestByID(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ConnectionRequestPending, stored.Status)

		// Only the send event was published.
		assert.Len(t, sink.all(), 1)
	})

	t.Run("accept losing to a concurrent cancel removes the edge again", func(t *testing.T) {
		repo := repositories.NewMemoryConnectionRepository()
		sink := &recordingSink{}
		store := &interleavingStore{ConnectionRepository: repo}
		svc := NewConnectionService(store, sink)

		req, err := svc.Send(ctx, alice, bob, "")
		require.NoError(t, err)

		// Land the requester's cancel between the edge write and the flip.
		store.beforeStatusUpdate = func() {
			store.beforeStatusUpdate = nil
			require.NoError(t, repo.UpdateRequestStatus(ctx, req.ID, models.ConnectionRequestPending, models.ConnectionRequestCancelled, time.Now().UTC()))
		}

		_, err = svc.Respond(ctx, req.ID, bob, RespondAccept)
		assert.ErrorIs(t, err, apperrors.ErrRequestNotPending)

		stored, err := repo.GetRequestByID(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ConnectionRequestCancelled, stored.Status)

		connected, err := repo.EdgeExists(ctx, alice, bob)
		require.NoError(t, err)
		assert.False(t, connected)

		// Only the send event was published.
		assert.Len(t, sink.all(), 1)
	})

	t.Run("responding to an unknown request reports not found", func(t *testing.T) {
		svc, _, _ := newTestService()

		_, err := svc.Respond(ctx, uuid.New(), bob, RespondAccept)
		assert.ErrorIs(t, err, apperrors.ErrRequestNotFound)
	})
}

func TestConnectionService_Cancel(t *testing.T) {
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	t.Run("requester cancels a pending request without an event", func(t *testing.T) {
		svc, _, sink := newTestService()

		req, err := svc.Send(ctx, alice, bob, "")
		require.NoError(t, err)

		updated, err := svc.Cancel(ctx, req.ID, alice)
		require.NoError(t, err)
		assert.Equal(t, models.ConnectionRequestCancelled, updated.Status)
		require.NotNil(t, updated.RespondedAt)
		assert.Len(t, sink.all(), 1)

		// Cancellation frees the pair for a fresh request.
		_, err = svc.Send(ctx, bob, alice, "")
		require.NoError(t, err)
	})

	t.Run("only the requester may cancel", func(t *testing.T) {
		svc, _, _ := newTestService()

		req, err := svc.Send(ctx, alice, bob, "")
		require.NoError(t, err)

		_, err = svc.Cancel(ctx, req.ID, bob)
		assert.ErrorIs(t, err, apperrors.ErrNotRequester)
	})

	t.Run("cancel after a terminal transition fails", func(t *testing.T) {
		svc, _, _ := newTestService()

		req, err := svc.Send(ctx, alice, bob, "")
		require.NoError(t, err)

		_, err = svc.Respond(ctx, req.ID, bob, RespondDecline)
		require.NoError(t, err)

		_, err = svc.Cancel(ctx, req.ID, alice)
		assert.ErrorIs(t, err, apperrors.ErrRequestNotPending)
	})
}

func TestConnectionService_Remove(t *testing.T) {
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	t.Run("either endpoint removes the edge and the pair can reconnect", func(t *testing.T) {
		svc, _, _ := newTestService()

		req, err := svc.Send(ctx, alice, bob, "")
		require.NoError(t, err)
		_, err = svc.Respond(ctx, req.ID, bob, RespondAccept)
		require.NoError(t, err)

		require.NoError(t, svc.Remove(ctx, alice, bob, alice))

		conns, err := svc.ListConnections(ctx, bob)
		require.NoError(t, err)
		assert.Empty(t, conns)

		// Removal leaves request history intact.
		stored, err := svc.connections.GetRequestByID(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ConnectionRequestAccepted, stored.Status)

		fresh, err := svc.Send(ctx, alice, bob, "")
		require.NoError(t, err)
		assert.Equal(t, models.ConnectionRequestPending, fresh.Status)
	})

	t.Run("a third party may not remove the edge", func(t *testing.T) {
		svc, repo, _ := newTestService()

		_, err := repo.CreateEdge(ctx, alice, bob)
		require.NoError(t, err)

		err = svc.Remove(ctx, alice, bob, uuid.New())
		assert.ErrorIs(t, err, apperrors.ErrNotParticipant)
	})

	t.Run("removing a missing edge reports not found", func(t *testing.T) {
		svc, _, _ := newTestService()

		err := svc.Remove(ctx, alice, bob, alice)
		assert.ErrorIs(t, err, apperrors.ErrEdgeNotFound)
	})
}
