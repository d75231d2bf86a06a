package basenode

import "github.com/godanchain/node/chainmeta"

// EventKind enumerates every event the base-node FSM can observe, per
// spec.md §4.1.
type EventKind int

const (
	Initialized EventKind = iota
	FallenBehind
	Continue
	NetworkSilence
	HeaderSyncFailed
	HeadersSynchronized
	ProceedToHorizonSync
	ProceedToBlockSync
	HorizonStateSynchronized
	HorizonStateSyncFailure
	BlocksSynchronized
	BlockSyncFailed
	FatalError
	UserQuit
)

func (k EventKind) String() string {
	switch k {
	case Initialized:
		return "Initialized"
	case FallenBehind:
		return "FallenBehind"
	case Continue:
		return "Continue"
	case NetworkSilence:
		return "NetworkSilence"
	case HeaderSyncFailed:
		return "HeaderSyncFailed"
	case HeadersSynchronized:
		return "HeadersSynchronized"
	case ProceedToHorizonSync:
		return "ProceedToHorizonSync"
	case ProceedToBlockSync:
		return "ProceedToBlockSync"
	case HorizonStateSynchronized:
		return "HorizonStateSynchronized"
	case HorizonStateSyncFailure:
		return "HorizonStateSyncFailure"
	case BlocksSynchronized:
		return "BlocksSynchronized"
	case BlockSyncFailed:
		return "BlockSyncFailed"
	case FatalError:
		return "FatalError"
	case UserQuit:
		return "UserQuit"
	default:
		return "Unknown"
	}
}

// StateEvent is the FSM's single event envelope. Only the fields relevant
// to Kind are populated; this mirrors the Rust source's StateEvent enum
// variants (spec.md §4.1) collapsed into one Go struct, the idiomatic
// translation for a small, closed event set driven through a transition
// table keyed on (state kind, event kind).
type StateEvent struct {
	Kind EventKind

	// FallenBehind
	Status chainmeta.SyncStatus

	// ProceedToHorizonSync, ProceedToBlockSync
	SyncPeers []chainmeta.PeerChainMetadata

	// HeadersSynchronized
	HeadersReturned int
	ReorgStepsBack  int

	// FatalError
	Reason string
}

func (e StateEvent) String() string {
	return e.Kind.String()
}
