package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/worknet/backend/internal/models"
	apperrors "github.com/worknet/backend/pkg/errors"
	"gorm.io/gorm"
)

// ConnectionRepository defines the interface for connection request and edge
// storage. It enforces the storage-level invariants (one pending request per
// unordered pair, one edge per unordered pair, no coexistence of the two) but
// carries no business validation; that lives in the service layer.
type ConnectionRepository interface {
	CreateRequestIfAbsent(ctx context.Context, req *models.ConnectionRequest) error
	GetRequestByID(ctx context.Context, id uuid.UUID) (*models.ConnectionRequest, error)
	UpdateRequestStatus(ctx context.Context, id uuid.UUID, expected, next models.ConnectionRequestStatus, respondedAt time.Time) error
	CreateEdge(ctx context.Context, a, b uuid.UUID) (*models.ConnectionEdge, error)
	RemoveEdge(ctx context.Context, a, b uuid.UUID) error
	EdgeExists(ctx context.Context, a, b uuid.UUID) (bool, error)
	ListEdges(ctx context.Context, userID uuid.UUID) ([]models.ConnectionEdge, error)
	ListNeighborIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	ListPendingRequests(ctx context.Context, userID uuid.UUID, direction models.PendingDirection) ([]models.ConnectionRequest, error)
}

// PostgresConnectionRepository implements ConnectionRepository for PostgreSQL.
// Pair-level races are arbitrated by two indexes: a partial unique index on
// pair_key for pending requests and a unique index on pair_key for edges.
type PostgresConnectionRepository struct {
	db *gorm.DB
}

// NewPostgresConnectionRepository creates a new PostgresConnectionRepository
func NewPostgresConnectionRepository(db *gorm.DB) *PostgresConnectionRepository {
	return &PostgresConnectionRepository{db: db}
}

// CreateRequestIfAbsent inserts a pending request for the pair unless an edge
// or another pending request already exists. Concurrent callers for the same
// pair resolve to a single winner through the pending-pair unique index.
func (r *PostgresConnectionRepository) CreateRequestIfAbsent(ctx context.Context, req *models.ConnectionRequest) error {
	req.PairKey = models.ConnectionPairKey(req.RequesterID, req.RecipientID)
	req.Status = models.ConnectionRequestPending

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var edgeCount int64
		if err := tx.Model(&models.ConnectionEdge{}).Where("pair_key = ?", req.PairKey).Count(&edgeCount).Error; err != nil {
			return errors.Wrap(err, "connectionRepo.CreateRequestIfAbsent.CountEdges")
		}
		if edgeCount > 0 {
			return apperrors.ErrAlreadyConnected
		}

		if err := tx.Create(req).Error; err != nil {
			if isUniqueViolation(err) {
				return apperrors.ErrDuplicatePending
			}
			return errors.Wrap(err, "connectionRepo.CreateRequestIfAbsent.Insert")
		}
		return nil
	})
}

// GetRequestByID retrieves a connection request by ID
func (r *PostgresConnectionRepository) GetRequestByID(ctx context.Context, id uuid.UUID) (*models.ConnectionRequest, error) {
	var req models.ConnectionRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRequestNotFound
		}
		return nil, errors.Wrap(err, "connectionRepo.GetRequestByID")
	}
	return &req, nil
}

// UpdateRequestStatus conditionally moves a request from expected to next.
// The status check and the write are a single UPDATE, so a concurrent
// transition on the same request leaves exactly one winner.
func (r *PostgresConnectionRepository) UpdateRequestStatus(ctx context.Context, id uuid.UUID, expected, next models.ConnectionRequestStatus, respondedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.ConnectionRequest{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(map[string]interface{}{"status": next, "responded_at": respondedAt})
	if res.Error != nil {
		return errors.Wrap(res.Error, "connectionRepo.UpdateRequestStatus")
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.ConnectionRequest{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return errors.Wrap(err, "connectionRepo.UpdateRequestStatus.Count")
		}
		if count == 0 {
			return apperrors.ErrRequestNotFound
		}
		return apperrors.ErrRequestNotPending
	}
	return nil
}

// CreateEdge creates the edge for the unordered pair {a, b}
func (r *PostgresConnectionRepository) CreateEdge(ctx context.Context, a, b uuid.UUID) (*models.ConnectionEdge, error) {
	low, high := models.CanonicalPair(a, b)
	edge := &models.ConnectionEdge{
		UserLow:   low,
		UserHigh:  high,
		PairKey:   models.ConnectionPairKey(a, b),
		CreatedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(edge).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrAlreadyConnected
		}
		return nil, errors.Wrap(err, "connectionRepo.CreateEdge")
	}
	return edge, nil
}

// RemoveEdge deletes the edge for the unordered pair {a, b}
func (r *PostgresConnectionRepository) RemoveEdge(ctx context.Context, a, b uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("pair_key = ?", models.ConnectionPairKey(a, b)).Delete(&models.ConnectionEdge{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "connectionRepo.RemoveEdge")
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrEdgeNotFound
	}
	return nil
}

// EdgeExists reports whether the pair {a, b} is connected
func (r *PostgresConnectionRepository) EdgeExists(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ConnectionEdge{}).Where("pair_key = ?", models.ConnectionPairKey(a, b)).Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "connectionRepo.EdgeExists")
	}
	return count > 0, nil
}

// ListEdges retrieves all edges incident to a user
func (r *PostgresConnectionRepository) ListEdges(ctx context.Context, userID uuid.UUID) ([]models.ConnectionEdge, error) {
	var edges []models.ConnectionEdge
	if err := r.db.WithContext(ctx).
		Where("user_low = ? OR user_high = ?", userID, userID).
		Order("created_at DESC").
		Find(&edges).Error; err != nil {
		return nil, errors.Wrap(err, "connectionRepo.ListEdges")
	}
	return edges, nil
}

// ListNeighborIDs retrieves the ids of every user connected to userID
func (r *PostgresConnectionRepository) ListNeighborIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
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

// ListPendingRequests retrieves a user's pending requests, either the ones
// they sent or the ones they received.
func (r *PostgresConnectionRepository) ListPendingRequests(ctx context.Context, userID uuid.UUID, direction models.PendingDirection) ([]models.ConnectionRequest, error) {
	column := "recipient_id"
	if direction == models.PendingSent {
		column = "requester_id"
	}
	var requests []models.ConnectionRequest
	if err := r.db.WithContext(ctx).
		Where(column+" = ? AND status = ?", userID, models.ConnectionRequestPending).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, errors.Wrap(err, "connectionRepo.ListPendingRequests")
	}
	return requests, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
