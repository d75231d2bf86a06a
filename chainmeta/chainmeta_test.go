package chainmeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBestClaimedMetadataEmpty(t *testing.T) {
	best, ok := BestClaimedMetadata(nil)
	require.False(t, ok)
	assert.Equal(t, ChainMetadata{}, best)
}

func TestBestClaimedMetadataPicksHighestDifficulty(t *testing.T) {
	peers := []PeerChainMetadata{
		{NodeID: "a", Claimed: ChainMetadata{Height: 5000, BestBlock: "h1", AccumulatedDifficulty: 200000}},
		{NodeID: "b", Claimed: ChainMetadata{Height: 5000, BestBlock: "h2", AccumulatedDifficulty: 100000}},
	}
	best, ok := BestClaimedMetadata(peers)
	require.True(t, ok)
	assert.Equal(t, Hash("h1"), best.BestBlock)
}

func TestSelectSyncPeersFiltersByBestBlock(t *testing.T) {
	best := ChainMetadata{BestBlock: "h1"}
	peers := []PeerChainMetadata{
		{NodeID: "a", Claimed: ChainMetadata{BestBlock: "h1"}},
		{NodeID: "b", Claimed: ChainMetadata{BestBlock: "h2"}},
		{NodeID: "c", Claimed: ChainMetadata{BestBlock: "h1"}},
	}
	sel := SelectSyncPeers(best, peers)
	require.Len(t, sel, 2)
	assert.Equal(t, NodeID("a"), sel[0].NodeID)
	assert.Equal(t, NodeID("c"), sel[1].NodeID)
}

func TestDetermineSyncStatusUpToDate(t *testing.T) {
	local := ChainMetadata{AccumulatedDifficulty: 500000}
	assert.False(t, DetermineSyncStatus(0, local, local, nil).IsLagging())

	network := ChainMetadata{AccumulatedDifficulty: 499000}
	assert.False(t, DetermineSyncStatus(0, local, network, nil).IsLagging())
}

func TestDetermineSyncStatusLagging(t *testing.T) {
	local := ChainMetadata{Height: 100, AccumulatedDifficulty: 500000}
	network := ChainMetadata{Height: 150, AccumulatedDifficulty: 500001}
	status := DetermineSyncStatus(0, local, network, nil)
	require.True(t, status.IsLagging())
	assert.Equal(t, network, status.Network)
}

func TestDetermineSyncStatusWithinGraceIsUpToDate(t *testing.T) {
	local := ChainMetadata{Height: 99, AccumulatedDifficulty: 500000}
	network := ChainMetadata{Height: 100, AccumulatedDifficulty: 500001}
	// Within a grace of 2 blocks, still considered up to date.
	assert.False(t, DetermineSyncStatus(2, local, network, nil).IsLagging())
	// With no grace, considered lagging.
	assert.True(t, DetermineSyncStatus(0, local, network, nil).IsLagging())
}
