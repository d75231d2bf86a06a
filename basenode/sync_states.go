package basenode

import (
	"context"
	"time"
)

// headerSyncNextEvent runs component C's header-sync task to completion and
// returns its typed outcome event (spec.md §4.1).
func (m *Machine) headerSyncNextEvent(ctx context.Context, state *State) StateEvent {
	m.log.Info("Synchronizing headers", "sync_peers", len(state.SyncPeers))
	outcome := m.headerSyncer.Sync(ctx, state.LocalMetadata, state.SyncPeers)
	return outcome.Event
}

// decideNextSyncNextEvent asks the injected SyncDecision collaborator
// whether horizon-sync or block-sync applies after headers have been
// synchronized (spec.md §4.1 "DecideNextSync").
func (m *Machine) decideNextSyncNextEvent(ctx context.Context, state *State) StateEvent {
	return m.syncDecision.Decide(ctx, state.SyncPeers)
}

func (m *Machine) horizonStateSyncNextEvent(ctx context.Context, state *State) StateEvent {
	m.log.Info("Synchronizing horizon state", "sync_peers", len(state.SyncPeers))
	return m.horizonSyncer.Sync(ctx, state.SyncPeers)
}

func (m *Machine) blockSyncNextEvent(ctx context.Context, state *State) StateEvent {
	m.log.Info("Synchronizing blocks", "sync_peers", len(state.SyncPeers))
	return m.blockSyncer.Sync(ctx, state.SyncPeers)
}

// waitingNextEvent cools down after a recoverable sync failure before
// returning to Listening (spec.md §7 "Transient I/O" / "recoverable").
func (m *Machine) waitingNextEvent(ctx context.Context) StateEvent {
	m.log.Info("Waiting before retrying sync", "cooldown", m.config.WaitingCooldown)
	select {
	case <-ctx.Done():
		return StateEvent{Kind: UserQuit}
	case <-time.After(m.config.WaitingCooldown):
		return StateEvent{Kind: Continue}
	}
}
