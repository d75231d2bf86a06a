package basenode

import (
	"testing"

	"github.com/godanchain/node/chainmeta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUPeerMetadataStoreSetGet(t *testing.T) {
	store, err := NewLRUPeerMetadataStore(2)
	require.NoError(t, err)

	_, ok := store.GetPeerMetadata(chainmeta.NodeID("alice"))
	assert.False(t, ok)

	meta := chainmeta.PeerChainMetadata{NodeID: chainmeta.NodeID("alice")}
	store.SetPeerMetadata(chainmeta.NodeID("alice"), meta)

	got, ok := store.GetPeerMetadata(chainmeta.NodeID("alice"))
	require.True(t, ok)
	assert.Equal(t, meta, got)
}

func TestLRUPeerMetadataStoreEvictsOldest(t *testing.T) {
	store, err := NewLRUPeerMetadataStore(1)
	require.NoError(t, err)

	store.SetPeerMetadata(chainmeta.NodeID("alice"), chainmeta.PeerChainMetadata{NodeID: chainmeta.NodeID("alice")})
	store.SetPeerMetadata(chainmeta.NodeID("bob"), chainmeta.PeerChainMetadata{NodeID: chainmeta.NodeID("bob")})

	_, ok := store.GetPeerMetadata(chainmeta.NodeID("alice"))
	assert.False(t, ok, "capacity-1 store should have evicted alice when bob was added")

	_, ok = store.GetPeerMetadata(chainmeta.NodeID("bob"))
	assert.True(t, ok)
}

var _ PeerMetadataStore = (*LRUPeerMetadataStore)(nil)
