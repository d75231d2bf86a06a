package basenode

import "time"

// Config mirrors BaseNodeStateMachineConfig from spec.md §4.1 / the
// original state_machine.rs, trimmed to the fields this core actually
// consumes (block validation, pruning, and randomx tuning live in
// out-of-scope collaborators).
type Config struct {
	// BlocksBehindBeforeConsideredLagging is the propagation grace window
	// used by the Listening lagging decision.
	BlocksBehindBeforeConsideredLagging uint64

	// ForcedSyncPeers, when non-empty, restricts peer-metadata
	// consideration to this set before the best-tip computation
	// (spec.md §4.1 "Configured sync peers").
	ForcedSyncPeers []string

	// OneBlockBehindWaitPeriod is the grace period applied in Listening
	// when exactly one block behind (spec.md §4.1, default 20s).
	OneBlockBehindWaitPeriod time.Duration

	// WaitingCooldown is how long the Waiting state pauses before
	// re-emitting Continue, after a recoverable sync failure.
	WaitingCooldown time.Duration
}

// DefaultConfig matches the constants named in spec.md §5 ("Timeouts").
var DefaultConfig = Config{
	BlocksBehindBeforeConsideredLagging: 0,
	OneBlockBehindWaitPeriod:            20 * time.Second,
	WaitingCooldown:                     5 * time.Second,
}
