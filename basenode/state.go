package basenode

import (
	"fmt"

	"github.com/godanchain/node/chainmeta"
)

// StateKind enumerates the base-node FSM states from spec.md §4.1.
type StateKind int

const (
	Starting StateKind = iota
	Listening
	HeaderSync
	DecideNextSync
	HorizonStateSync
	BlockSync
	Waiting
	Shutdown
)

func (k StateKind) String() string {
	switch k {
	case Starting:
		return "Starting"
	case Listening:
		return "Listening"
	case HeaderSync:
		return "HeaderSync"
	case DecideNextSync:
		return "DecideNextSync"
	case HorizonStateSync:
		return "HorizonStateSync"
	case BlockSync:
		return "BlockSync"
	case Waiting:
		return "Waiting"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// State is the FSM's current state envelope. As with StateEvent, this
// collapses the Rust source's per-state associated data into one struct
// keyed by Kind.
type State struct {
	Kind StateKind

	// Listening
	IsSynced bool

	// HeaderSync
	LocalMetadata chainmeta.ChainMetadata

	// HeaderSync, HorizonStateSync, BlockSync
	SyncPeers []chainmeta.PeerChainMetadata

	// Shutdown
	Reason string
}

func (s State) String() string {
	return fmt.Sprintf("%s", s.Kind)
}

// StateInfo is the externally published description of what the FSM is
// currently doing, richer than the bare StateKind (e.g. listening carries
// whether the node is synced in the current Listening stay).
type StateInfo struct {
	Kind     StateKind
	IsSynced bool
}

func (i StateInfo) IsSyncedStatus() bool { return i.Kind == Listening && i.IsSynced }

// StatusInfo is the snapshot published whenever StateInfo changes, per
// spec.md §4.1 ("Status publication"). RandomX fields are carried for
// parity with the dual-PoW base layer described in spec.md §1 but are
// populated by an external collaborator (proof-of-work is out of scope for
// this core).
type StatusInfo struct {
	Bootstrapped  bool
	StateInfo     StateInfo
	RandomXVMCnt  int
	RandomXVMFlag uint64
}
