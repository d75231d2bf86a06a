package basenode

import (
	"context"

	"github.com/godanchain/node/chainmeta"
)

// ChainMetadataEventKind distinguishes the two shapes of inbound chain
// metadata events, per spec.md §6.
type ChainMetadataEventKind int

const (
	ChainMetadataNetworkSilence ChainMetadataEventKind = iota
	ChainMetadataPeerReceived
)

// ChainMetadataEvent is delivered by component A ("Chain-metadata source",
// spec.md §2) over ChainMetadataStream.
type ChainMetadataEvent struct {
	Kind  ChainMetadataEventKind
	Peers []chainmeta.PeerChainMetadata
}

// ChainMetadataStream is the async façade over component A: a stream of
// peer-claimed tip summaries. Recv returns ok=false when the stream is
// permanently closed.
type ChainMetadataStream interface {
	Recv(ctx context.Context) (event ChainMetadataEvent, lagged int, ok bool)
}

// BlockchainStore is the async façade over component B: local tip metadata
// plus the disable-add-block flag the FSM exclusively owns the set/clear
// pairing of (spec.md §3 "Ownership").
type BlockchainStore interface {
	GetChainMetadata(ctx context.Context) (chainmeta.ChainMetadata, error)
	SetDisableAddBlockFlag()
	ClearDisableAddBlockFlag()
}

// PeerMetadataStore records the latest claimed metadata seen from each
// peer, for external inspection. Mirrors
// shared.peer_manager.set_peer_metadata(...) in the original listening
// state: a best-effort side channel whose failures are logged and never
// block the FSM (spec.md "Broadcast lag" design note).
type PeerMetadataStore interface {
	SetPeerMetadata(id chainmeta.NodeID, meta chainmeta.PeerChainMetadata)
}

// HeaderSyncOutcome is returned by HeaderSyncer.Sync.
type HeaderSyncOutcome struct {
	// One of: Continue, NetworkSilence, HeaderSyncFailed, HeadersSynchronized.
	Event StateEvent
}

// HeaderSyncer performs component C's header-sync one-shot task.
type HeaderSyncer interface {
	Sync(ctx context.Context, local chainmeta.ChainMetadata, peers []chainmeta.PeerChainMetadata) HeaderSyncOutcome
}

// SyncDecision decides, after headers are synchronized, whether horizon
// sync is required before block sync (pruned nodes) or block sync can
// proceed directly (archival nodes, or a pruning horizon of zero).
type SyncDecision interface {
	Decide(ctx context.Context, peers []chainmeta.PeerChainMetadata) StateEvent
}

// HorizonSyncer performs component C's horizon-state-sync one-shot task.
type HorizonSyncer interface {
	Sync(ctx context.Context, peers []chainmeta.PeerChainMetadata) StateEvent
}

// BlockSyncer performs component C's block-sync one-shot task.
type BlockSyncer interface {
	Sync(ctx context.Context, peers []chainmeta.PeerChainMetadata) StateEvent
}
