package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/worknet/backend/internal/models"
	apperrors "github.com/worknet/backend/pkg/errors"
)

// MemoryConnectionRepository is an in-memory ConnectionRepository used by unit
// tests and by local development without a database. A single mutex serializes
// every mutation, which gives the same single-winner semantics the Postgres
// implementation gets from its unique indexes.
type MemoryConnectionRepository struct {
	mu            sync.Mutex
	requests      map[uuid.UUID]*models.ConnectionRequest
	pendingByPair map[string]uuid.UUID
	edges         map[string]models.ConnectionEdge
}

// NewMemoryConnectionRepository creates an empty MemoryConnectionRepository
func NewMemoryConnectionRepository() *MemoryConnectionRepository {
	return &MemoryConnectionRepository{
		requests:      make(map[uuid.UUID]*models.ConnectionRequest),
		pendingByPair: make(map[string]uuid.UUID),
		edges:         make(map[string]models.ConnectionEdge),
	}
}

func (r *MemoryConnectionRepository) CreateRequestIfAbsent(_ context.Context, req *models.ConnectionRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pairKey := models.ConnectionPairKey(req.RequesterID, req.RecipientID)
	if _, ok := r.edges[pairKey]; ok {
		return apperrors.ErrAlreadyConnected
	}
	if _, ok := r.pendingByPair[pairKey]; ok {
		return apperrors.ErrDuplicatePending
	}

	req.PairKey = pairKey
	req.Status = models.ConnectionRequestPending
	stored := *req
	r.requests[req.ID] = &stored
	r.pendingByPair[pairKey] = req.ID
	return nil
}

func (r *MemoryConnectionRepository) GetRequestByID(_ context.Context, id uuid.UUID) (*models.ConnectionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, apperrors.ErrRequestNotFound
	}
	copied := *req
	return &copied, nil
}

func (r *MemoryConnectionRepository) UpdateRequestStatus(_ context.Context, id uuid.UUID, expected, next models.ConnectionRequestStatus, respondedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return apperrors.ErrRequestNotFound
	}
	if req.Status != expected {
		return apperrors.ErrRequestNotPending
	}

	req.Status = next
	at := respondedAt
	req.RespondedAt = &at
	if expected == models.ConnectionRequestPending {
		delete(r.pendingByPair, req.PairKey)
	}
	return nil
}

func (r *MemoryConnectionRepository) CreateEdge(_ context.Context, a, b uuid.UUID) (*models.ConnectionEdge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pairKey := models.ConnectionPairKey(a, b)
	if _, ok := r.edges[pairKey]; ok {
		return nil, apperrors.ErrAlreadyConnected
	}

	low, high := models.CanonicalPair(a, b)
	edge := models.ConnectionEdge{
		UserLow:   low,
		UserHigh:  high,
		PairKey:   pairKey,
		CreatedAt: time.Now().UTC(),
	}
	r.edges[pairKey] = edge
	return &edge, nil
}

func (r *MemoryConnectionRepository) RemoveEdge(_ context.Context, a, b uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pairKey := models.ConnectionPairKey(a, b)
	if _, ok := r.edges[pairKey]; !ok {
		return apperrors.ErrEdgeNotFound
	}
	delete(r.edges, pairKey)
	return nil
}

func (r *MemoryConnectionRepository) EdgeExists(_ context.Context, a, b uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.edges[models.ConnectionPairKey(a, b)]
	return ok, nil
}

func (r *MemoryConnectionRepository) ListEdges(_ context.Context, userID uuid.UUID) ([]models.ConnectionEdge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var edges []models.ConnectionEdge
	for _, edge := range r.edges {
		if edge.UserLow == userID || edge.UserHigh == userID {
			edges = append(edges, edge)
		}
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].CreatedAt.After(edges[j].CreatedAt) })
	return edges, nil
}

func (r *MemoryConnectionRepository) ListNeighborIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	edges, err := r.ListEdges(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(edges))
	for _, edge := range edges {
		ids = append(ids, edge.Peer(userID))
	}
	return ids, nil
}

func (r *MemoryConnectionRepository) ListPendingRequests(_ context.Context, userID uuid.UUID, direction models.PendingDirection) ([]models.ConnectionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var requests []models.ConnectionRequest
	for _, req := range r.requests {
		if req.Status != models.ConnectionRequestPending {
			continue
		}
		if direction == models.PendingSent && req.RequesterID == userID {
			requests = append(requests, *req)
		}
		if direction == models.PendingReceived && req.RecipientID == userID {
			requests = append(requests, *req)
		}
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].CreatedAt.After(requests[j].CreatedAt) })
	return requests, nil
}
