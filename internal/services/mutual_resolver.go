package services

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/worknet/backend/internal/repositories"
)

// MutualResolver answers mutual-connection queries over the edge table. It is
// read-only: results reflect a point-in-time snapshot and tolerate edges
// changing underneath concurrent writers.
type MutualResolver struct {
	connections repositories.ConnectionRepository
}

// NewMutualResolver creates a new MutualResolver
func NewMutualResolver(connections repositories.ConnectionRepository) *MutualResolver {
	return &MutualResolver{connections: connections}
}

// Mutual returns every user connected to both a and b, excluding a and b
// themselves. The result is sorted, so Mutual(a, b) and Mutual(b, a) are
// identical.
func (r *MutualResolver) Mutual(ctx context.Context, a, b uuid.UUID) ([]uuid.UUID, error) {
	neighborsA, err := r.connections.ListNeighborIDs(ctx, a)
	if err != nil {
		return nil, storage(err)
	}
	neighborsB, err := r.connections.ListNeighborIDs(ctx, b)
	if err != nil {
		return nil, storage(err)
	}

	// Hash the smaller set, scan the larger.
	smaller, larger := neighborsA, neighborsB
	if len(larger) < len(smaller) {
		smaller, larger = larger, smaller
	}
	set := make(map[uuid.UUID]struct{}, len(smaller))
	for _, id := range smaller {
		set[id] = struct{}{}
	}

	mutual := make([]uuid.UUID, 0)
	for _, id := range larger {
		if _, ok := set[id]; !ok {
			continue
		}
		if id == a || id == b {
			continue
		}
		mutual = append(mutual, id)
	}

	sort.Slice(mutual, func(i, j int) bool { return mutual[i].String() < mutual[j].String() })
	return mutual, nil
}
