package basenode

import (
	"context"
	"time"

	"github.com/godanchain/node/chainmeta"
)

// listeningNextEvent implements the Listening state's event loop from
// spec.md §4.1: it consumes chain-metadata events until it either detects
// lagging (FallenBehind) or observes that the chain is up to date, applying
// the one-block-behind propagation grace along the way.
func (m *Machine) listeningNextEvent(ctx context.Context, state *State) StateEvent {
	m.setStateInfo(StateInfo{Kind: Listening, IsSynced: state.IsSynced})

	isSynced := state.IsSynced
	var timeSinceBetterBlock *time.Time

	for {
		event, lagged, ok := m.metadataStream.Recv(ctx)
		if !ok {
			return StateEvent{Kind: UserQuit}
		}
		if lagged > 0 {
			m.log.Debug("Metadata event subscriber lagged", "count", lagged)
		}

		switch event.Kind {
		case ChainMetadataNetworkSilence:
			if !isSynced {
				isSynced = true
				state.IsSynced = true
				m.setStateInfo(StateInfo{Kind: Listening, IsSynced: true})
			}
			continue
		case ChainMetadataPeerReceived:
			// Best-effort side channel: never blocks the FSM on failure.
			for _, p := range event.Peers {
				m.peerMetadata.SetPeerMetadata(p.NodeID, p)
			}

			peers := event.Peers
			if len(m.config.ForcedSyncPeers) > 0 {
				peers = filterForcedSyncPeers(peers, m.config.ForcedSyncPeers)
			}

			if len(peers) == 0 {
				if !isSynced {
					isSynced = true
					state.IsSynced = true
					m.setStateInfo(StateInfo{Kind: Listening, IsSynced: true})
				}
				continue
			}

			best, found := chainmeta.BestClaimedMetadata(peers)
			if !found {
				continue
			}

			local, err := m.store.GetChainMetadata(ctx)
			if err != nil {
				return StateEvent{Kind: FatalError, Reason: "could not get local blockchain metadata: " + err.Error()}
			}

			// One-block-behind propagation grace.
			if isSynced && best.Height == local.Height+1 {
				if timeSinceBetterBlock == nil || time.Since(*timeSinceBetterBlock) < m.config.OneBlockBehindWaitPeriod {
					if timeSinceBetterBlock == nil {
						now := nowFunc()
						timeSinceBetterBlock = &now
					}
					m.log.Debug("One block behind, waiting for propagation", "network_height", best.Height)
					continue
				}
			}
			timeSinceBetterBlock = nil

			var syncPeers []chainmeta.PeerChainMetadata
			if len(m.config.ForcedSyncPeers) > 0 {
				syncPeers = peers
			} else {
				syncPeers = chainmeta.SelectSyncPeers(best, peers)
			}

			status := chainmeta.DetermineSyncStatus(m.config.BlocksBehindBeforeConsideredLagging, local, best, syncPeers)
			if status.IsLagging() {
				return StateEvent{Kind: FallenBehind, Status: status}
			}

			if !isSynced {
				isSynced = true
				state.IsSynced = true
				m.setStateInfo(StateInfo{Kind: Listening, IsSynced: true})
			}
		}
	}
}

// nowFunc supplies the time at which the one-block-behind grace starts;
// the elapsed time is then measured with time.Since.
var nowFunc = time.Now

func filterForcedSyncPeers(peers []chainmeta.PeerChainMetadata, forced []string) []chainmeta.PeerChainMetadata {
	allowed := make(map[chainmeta.NodeID]struct{}, len(forced))
	for _, id := range forced {
		allowed[chainmeta.NodeID(id)] = struct{}{}
	}
	out := make([]chainmeta.PeerChainMetadata, 0, len(peers))
	for _, p := range peers {
		if _, ok := allowed[p.NodeID]; ok {
			out = append(out, p)
		}
	}
	return out
}
