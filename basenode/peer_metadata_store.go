package basenode

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/godanchain/node/chainmeta"
)

// LRUPeerMetadataStore is the default PeerMetadataStore: a bounded LRU
// keyed by peer so a long-lived node does not accumulate metadata for
// peers it has not heard from in a long time. Mirrors the bounded-cache
// treatment applied to the mempool's reorg pool and the DAN state-DB.
type LRUPeerMetadataStore struct {
	cache *lru.Cache
}

// NewLRUPeerMetadataStore constructs a store retaining the most recently
// updated capacity peers.
func NewLRUPeerMetadataStore(capacity int) (*LRUPeerMetadataStore, error) {
	cache, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	return &LRUPeerMetadataStore{cache: cache}, nil
}

func (s *LRUPeerMetadataStore) SetPeerMetadata(id chainmeta.NodeID, meta chainmeta.PeerChainMetadata) {
	s.cache.Add(id, meta)
}

// GetPeerMetadata returns the most recently recorded metadata for id, if any.
func (s *LRUPeerMetadataStore) GetPeerMetadata(id chainmeta.NodeID) (chainmeta.PeerChainMetadata, bool) {
	v, ok := s.cache.Get(id)
	if !ok {
		return chainmeta.PeerChainMetadata{}, false
	}
	return v.(chainmeta.PeerChainMetadata), true
}
