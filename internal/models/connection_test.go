package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanonicalPair(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	lowAB, highAB := CanonicalPair(a, b)
	lowBA, highBA := CanonicalPair(b, a)

	assert.Equal(t, lowAB, lowBA)
	assert.Equal(t, highAB, highBA)
	assert.True(t, lowAB.String() < highAB.String())
}

func TestConnectionPairKey_Symmetric(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	assert.Equal(t, ConnectionPairKey(a, b), ConnectionPairKey(b, a))
	assert.NotEqual(t, ConnectionPairKey(a, b), ConnectionPairKey(a, uuid.New()))
}

func TestConnectionEdge_Peer(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	low, high := CanonicalPair(a, b)
	edge := ConnectionEdge{UserLow: low, UserHigh: high}

	assert.Equal(t, b, edge.Peer(a))
	assert.Equal(t, a, edge.Peer(b))
}

func TestConnectionRequestStatus_Terminal(t *testing.T) {
	assert.False(t, ConnectionRequestPending.Terminal())
	assert.True(t, ConnectionRequestAccepted.Terminal())
	assert.True(t, ConnectionRequestDeclined.Terminal())
	assert.True(t, ConnectionRequestCancelled.Terminal())
}
