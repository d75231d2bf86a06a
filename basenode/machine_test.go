package basenode

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/godanchain/node/chainmeta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanMetadataStream struct {
	ch chan ChainMetadataEvent
}

func newChanMetadataStream() *chanMetadataStream {
	return &chanMetadataStream{ch: make(chan ChainMetadataEvent, 8)}
}

func (s *chanMetadataStream) Recv(ctx context.Context) (ChainMetadataEvent, int, bool) {
	select {
	case ev, ok := <-s.ch:
		return ev, 0, ok
	case <-ctx.Done():
		return ChainMetadataEvent{}, 0, false
	}
}

type fakeStore struct {
	mu           sync.Mutex
	local        chainmeta.ChainMetadata
	disableCount int
	minDisable   int // tracks the lowest value disableCount ever reached
}

func (s *fakeStore) GetChainMetadata(ctx context.Context) (chainmeta.ChainMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.local, nil
}

func (s *fakeStore) SetDisableAddBlockFlag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disableCount++
}

func (s *fakeStore) ClearDisableAddBlockFlag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disableCount--
	if s.disableCount < s.minDisable {
		s.minDisable = s.disableCount
	}
}

type noopPeerMetadataStore struct{}

func (noopPeerMetadataStore) SetPeerMetadata(chainmeta.NodeID, chainmeta.PeerChainMetadata) {}

type fixedHeaderSyncer struct{ event StateEvent }

func (f fixedHeaderSyncer) Sync(ctx context.Context, local chainmeta.ChainMetadata, peers []chainmeta.PeerChainMetadata) HeaderSyncOutcome {
	return HeaderSyncOutcome{Event: f.event}
}

type fixedSyncDecision struct{ event StateEvent }

func (f fixedSyncDecision) Decide(ctx context.Context, peers []chainmeta.PeerChainMetadata) StateEvent {
	return f.event
}

type fixedSyncer struct{ event StateEvent }

func (f fixedSyncer) Sync(ctx context.Context, peers []chainmeta.PeerChainMetadata) StateEvent {
	return f.event
}

type recordingEventPublisher struct {
	mu     sync.Mutex
	events []StateEvent
}

func (r *recordingEventPublisher) Publish(e StateEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEventPublisher) snapshot() []StateEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]StateEvent, len(r.events))
	copy(out, r.events)
	return out
}

type recordingStatusPublisher struct {
	mu    sync.Mutex
	infos []StatusInfo
}

func (r *recordingStatusPublisher) Publish(s StatusInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infos = append(r.infos, s)
}

func newTestMachine(t *testing.T, store *fakeStore, metadataStream ChainMetadataStream) (*Machine, *recordingEventPublisher) {
	t.Helper()
	events := &recordingEventPublisher{}
	m := New(
		DefaultConfig,
		metadataStream,
		store,
		noopPeerMetadataStore{},
		fixedHeaderSyncer{event: StateEvent{Kind: HeadersSynchronized, HeadersReturned: 1}},
		fixedSyncDecision{event: StateEvent{Kind: Continue}},
		fixedSyncer{event: StateEvent{Kind: HorizonStateSynchronized}},
		fixedSyncer{event: StateEvent{Kind: BlocksSynchronized}},
		events,
		&recordingStatusPublisher{},
		nil,
	)
	return m, events
}

// TestUserQuitAlwaysEndsInShutdown is the universal invariant from spec.md
// §8: any trace containing UserQuit ends in Shutdown.
func TestUserQuitAlwaysEndsInShutdown(t *testing.T) {
	store := &fakeStore{}
	stream := newChanMetadataStream()
	m, _ := newTestMachine(t, store, stream)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already cancelled: Starting yields UserQuit at once -> Shutdown

	done := make(chan struct{})
	var finalState State
	go func() {
		defer close(done)
		state := State{Kind: Starting}
		for state.Kind != Shutdown {
			ev := m.selectNextEvent(ctx, &state)
			state = m.Transition(state, ev)
		}
		finalState = state
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("machine did not reach Shutdown")
	}
	assert.Equal(t, Shutdown, finalState.Kind)
}

// TestDisableAddBlockNeverGoesNegative is the universal invariant from
// spec.md §8: every SetDisableAddBlockFlag is matched by a later clear on
// every exit edge of HeaderSync/HorizonStateSync/BlockSync.
func TestDisableAddBlockNeverGoesNegative(t *testing.T) {
	store := &fakeStore{}
	m, _ := newTestMachine(t, store, newChanMetadataStream())

	state := State{Kind: Listening}
	lagging := StateEvent{Kind: FallenBehind, Status: chainmeta.SyncStatus{Lagging: true}}
	state = m.Transition(state, lagging)
	require.Equal(t, HeaderSync, state.Kind)
	assert.Equal(t, 1, store.disableCount)

	state = m.Transition(state, StateEvent{Kind: HeaderSyncFailed})
	require.Equal(t, Waiting, state.Kind)
	assert.Equal(t, 0, store.disableCount)
	assert.GreaterOrEqual(t, store.minDisable, 0)
}

// TestScenarioS1HappyPathLag reproduces spec.md §8 Scenario S1: Alice at
// genesis observes Bob's better tip and falls behind.
func TestScenarioS1HappyPathLag(t *testing.T) {
	store := &fakeStore{local: chainmeta.ChainMetadata{Height: 0, AccumulatedDifficulty: 0}}
	stream := newChanMetadataStream()
	m, events := newTestMachine(t, store, stream)

	stream.ch <- ChainMetadataEvent{
		Kind: ChainMetadataPeerReceived,
		Peers: []chainmeta.PeerChainMetadata{
			{NodeID: "bob", Claimed: chainmeta.ChainMetadata{Height: 1, BestBlock: "h1", AccumulatedDifficulty: 100}},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ev := m.listeningNextEvent(ctx, &State{Kind: Listening})
	require.Equal(t, FallenBehind, ev.Kind)
	require.True(t, ev.Status.IsLagging())
	require.Len(t, ev.Status.SyncPeers, 1)
	assert.Equal(t, chainmeta.NodeID("bob"), ev.Status.SyncPeers[0].NodeID)
	_ = events
}

// TestScenarioS2EqualPowStandoff reproduces spec.md §8 Scenario S2: equal
// accumulated difficulty is UpToDate: Listening keeps reading and emits no
// FallenBehind, so no sync is attempted.
func TestScenarioS2EqualPowStandoff(t *testing.T) {
	store := &fakeStore{local: chainmeta.ChainMetadata{Height: 3, AccumulatedDifficulty: 500}}
	stream := newChanMetadataStream()
	m, _ := newTestMachine(t, store, stream)

	stream.ch <- ChainMetadataEvent{
		Kind: ChainMetadataPeerReceived,
		Peers: []chainmeta.PeerChainMetadata{
			{NodeID: "bob", Claimed: chainmeta.ChainMetadata{Height: 2, BestBlock: "h1", AccumulatedDifficulty: 500}},
		},
	}
	// Close the stream right after so Recv returns ok=false on the next read.
	close(stream.ch)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ev := m.listeningNextEvent(ctx, &State{Kind: Listening, IsSynced: true})
	assert.Equal(t, UserQuit, ev.Kind) // loop continues (UpToDate) then the closed stream ends it
}

// TestOneBlockBehindGraceBoundary covers spec.md §8 boundary behavior: a
// one-block gap under the grace period does not trigger HeaderSync.
func TestOneBlockBehindGraceBoundary(t *testing.T) {
	store := &fakeStore{local: chainmeta.ChainMetadata{Height: 10, AccumulatedDifficulty: 100}}
	cfg := DefaultConfig
	cfg.OneBlockBehindWaitPeriod = 50 * time.Millisecond
	stream := newChanMetadataStream()
	events := &recordingEventPublisher{}
	m := New(cfg, stream, store, noopPeerMetadataStore{}, fixedHeaderSyncer{}, fixedSyncDecision{}, fixedSyncer{}, fixedSyncer{}, events, &recordingStatusPublisher{}, nil)

	oneBehind := ChainMetadataEvent{
		Kind: ChainMetadataPeerReceived,
		Peers: []chainmeta.PeerChainMetadata{
			{NodeID: "bob", Claimed: chainmeta.ChainMetadata{Height: 11, BestBlock: "h1", AccumulatedDifficulty: 101}},
		},
	}
	stream.ch <- oneBehind
	close(stream.ch)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ev := m.listeningNextEvent(ctx, &State{Kind: Listening, IsSynced: true})
	// The stream closes before the grace period elapses, so we never reach
	// FallenBehind; we observe clean termination instead.
	assert.Equal(t, UserQuit, ev.Kind)
}
