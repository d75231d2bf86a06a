package mempool

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config bounds the supervisor's admission policy (spec.md §4.2
// "Admission").
type Config struct {
	SessionConfig
	InitialSyncNumPeers int
}

// ConnectedPeer describes an outbound connection event relevant to
// initiator admission (spec.md §4.2 "Initiator side").
type ConnectedPeer struct {
	NodeID              string
	IsOutbound          bool
	HasCommunicationBit bool
	// OpenSubstream opens the framed mempool-sync substream to this peer.
	// A nil function or an error means the attempt is abandoned.
	OpenSubstream func(ctx context.Context) (Substream, error)
}

// InboundSubstream is a newly opened inbound substream handed to the
// supervisor by the protocol-notification router (spec.md §2 component F
// "spawned by a protocol-notification router on each new inbound
// substream").
type InboundSubstream struct {
	NodeID string
	Stream Substream
}

// MempoolSyncProtocol is the per-node supervisor task (spec.md §2
// component F, §5 "one supervisor task plus one short-lived child task
// per session"), grounded on
// original_source/.../mempool/sync_protocol/mod.rs's MempoolSyncProtocol.
type MempoolSyncProtocol struct {
	config Config
	store  *Store

	numSynced int64
	permits   chan struct{} // 1-slot initiator semaphore

	wg sync.WaitGroup
}

// NewMempoolSyncProtocol constructs a supervisor over store.
func NewMempoolSyncProtocol(config Config, store *Store) *MempoolSyncProtocol {
	permits := make(chan struct{}, 1)
	permits <- struct{}{}
	return &MempoolSyncProtocol{config: config, store: store, permits: permits}
}

func (s *MempoolSyncProtocol) isSynced() bool {
	return atomic.LoadInt64(&s.numSynced) >= int64(s.config.InitialSyncNumPeers)
}

// HandlePeerConnected is the connectivity-event handler (spec.md §4.2
// "Initiator side"): only outbound connections to communication nodes,
// while not already synced, attempt the initiator protocol — and only if
// the initiator permit is free.
func (s *MempoolSyncProtocol) HandlePeerConnected(ctx context.Context, peer ConnectedPeer) {
	if !peer.IsOutbound || !peer.HasCommunicationBit {
		return
	}
	if s.isSynced() {
		return
	}
	s.spawnInitiator(ctx, peer)
}

func (s *MempoolSyncProtocol) spawnInitiator(ctx context.Context, peer ConnectedPeer) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case <-s.permits:
		case <-ctx.Done():
			return
		}
		defer func() { s.permits <- struct{}{} }()

		if s.isSynced() {
			return
		}
		if peer.OpenSubstream == nil {
			storeLogger.Error("No substream opener for mempool initiator peer", "peer", peer.NodeID)
			return
		}
		conn, err := peer.OpenSubstream(ctx)
		if err != nil {
			storeLogger.Error("Unable to establish mempool protocol substream to peer", "peer", peer.NodeID, "err", err)
			return
		}

		session := NewMempoolPeerProtocol(s.config.SessionConfig, NewCanonicalFraming(conn), peer.NodeID, s.store)
		if err := session.StartInitiator(); err != nil {
			storeLogger.Debug("Mempool initiator protocol failed for peer", "peer", peer.NodeID, "session", session.SessionID(), "err", err)
			return
		}
		atomic.AddInt64(&s.numSynced, 1)
		storeLogger.Debug("Mempool initiator protocol completed successfully for peer", "peer", peer.NodeID, "session", session.SessionID())
	}()
}

// HandleInboundSubstream is the protocol-notification handler (spec.md
// §4.2 "Responder side": "no admission limit beyond the protocol
// substream being opened").
func (s *MempoolSyncProtocol) HandleInboundSubstream(inbound InboundSubstream) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		session := NewMempoolPeerProtocol(s.config.SessionConfig, NewCanonicalFraming(inbound.Stream), inbound.NodeID, s.store)
		if err := session.StartResponder(); err != nil {
			storeLogger.Debug("Mempool responder protocol failed for peer", "peer", inbound.NodeID, "session", session.SessionID(), "err", err)
			return
		}
		storeLogger.Debug("Mempool responder protocol succeeded for peer", "peer", inbound.NodeID, "session", session.SessionID())
	}()
}

// Wait blocks until every spawned session task has returned, for use in
// tests and orderly shutdown (spec.md §5 "Mempool sync: drop session
// tasks; substreams close on drop. No graceful drain." — Wait is a
// test/shutdown convenience, not a protocol requirement).
func (s *MempoolSyncProtocol) Wait() {
	s.wg.Wait()
}
