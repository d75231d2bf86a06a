// Package chainmeta holds the chain-metadata data model shared by the
// base-node synchronization FSM: local and peer-claimed chain tips, and the
// sync-status judgement derived from comparing them. Grounded on
// tari_common_types::chain_metadata::ChainMetadata and
// base_node::chain_metadata_service::PeerChainMetadata as described in
// spec.md §3, and on the comparison/selection helpers in
// original_source/.../states/listening.rs.
package chainmeta

import (
	"fmt"
	"time"
)

// NodeID identifies a peer. The concrete identity scheme (public key
// derived, etc.) is a p2p-layer concern out of scope for this core.
type NodeID string

// Hash is an opaque block/commitment hash.
type Hash string

// ChainMetadata is a tuple of (height, best-block-hash, pruning-horizon,
// pruned-height, accumulated-difficulty). Comparison between two
// ChainMetadata values is by AccumulatedDifficulty; Height is only a
// secondary signal.
type ChainMetadata struct {
	Height                uint64
	BestBlock             Hash
	PruningHorizon        uint64
	PrunedHeight          uint64
	AccumulatedDifficulty uint64
}

// IsAheadOrEqual reports whether m has accumulated at least as much proof of
// work as other.
func (m ChainMetadata) IsAheadOrEqual(other ChainMetadata) bool {
	return m.AccumulatedDifficulty >= other.AccumulatedDifficulty
}

func (m ChainMetadata) String() string {
	return fmt.Sprintf("height=%d best_block=%s acc_diff=%d", m.Height, m.BestBlock, m.AccumulatedDifficulty)
}

// PeerChainMetadata is a peer's self-claimed tip, optionally annotated with
// a round-trip latency sample.
type PeerChainMetadata struct {
	NodeID  NodeID
	Claimed ChainMetadata
	Latency *time.Duration
}

// SyncStatus is the outcome of comparing local metadata against the best
// claimed network metadata: either the node is UpToDate, or it is Lagging
// behind a known set of sync peers.
type SyncStatus struct {
	Lagging bool
	Local   ChainMetadata
	Network ChainMetadata
	// SyncPeers is only meaningful when Lagging is true: the peers whose
	// claimed best-block matches Network's, i.e. candidates to sync from.
	SyncPeers []PeerChainMetadata
}

// UpToDate is the zero-value non-lagging status.
var UpToDate = SyncStatus{}

func (s SyncStatus) IsLagging() bool { return s.Lagging }

func (s SyncStatus) String() string {
	if !s.Lagging {
		return "UpToDate"
	}
	return fmt.Sprintf("Lagging{local=%s network=%s sync_peers=%d}", s.Local, s.Network, len(s.SyncPeers))
}

// BestClaimedMetadata returns the claimed metadata with the greatest
// accumulated difficulty among peers, or false if peers is empty. Ties keep
// the first-seen candidate, matching the fold order in
// best_claimed_metadata in original_source/.../listening.rs (first by
// discovery order — see spec.md §9 Open Questions).
func BestClaimedMetadata(peers []PeerChainMetadata) (ChainMetadata, bool) {
	var best ChainMetadata
	found := false
	for _, p := range peers {
		if !found || p.Claimed.AccumulatedDifficulty > best.AccumulatedDifficulty {
			best = p.Claimed
			found = true
		}
	}
	return best, found
}

// SelectSyncPeers returns the subset of peers whose claimed best-block
// matches best's, i.e. peers that can serve the canonical chain that tied
// for (or won) the accumulated-difficulty race.
func SelectSyncPeers(best ChainMetadata, peers []PeerChainMetadata) []PeerChainMetadata {
	out := make([]PeerChainMetadata, 0, len(peers))
	for _, p := range peers {
		if p.Claimed.BestBlock == best.BestBlock {
			out = append(out, p)
		}
	}
	return out
}

// DetermineSyncStatus implements the lagging decision from spec.md §4.1:
// given a local tip, the best claimed network tip, and the set of sync
// peers, decide whether the node is up to date or lagging, with the
// "blocks_behind_before_considered_lagging" propagation grace.
func DetermineSyncStatus(blocksBehindBeforeLagging uint64, local, network ChainMetadata, syncPeers []PeerChainMetadata) SyncStatus {
	if local.IsAheadOrEqual(network) {
		return UpToDate
	}

	// Still behind on accumulated difficulty, but within the configured
	// height grace window either direction: treat as awaiting propagation.
	if local.Height+blocksBehindBeforeLagging > network.Height &&
		local.Height < network.Height+blocksBehindBeforeLagging {
		return UpToDate
	}

	return SyncStatus{
		Lagging:   true,
		Local:     local,
		Network:   network,
		SyncPeers: syncPeers,
	}
}
