package dan

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/godanchain/node/dan/models"
)

// TestTransitionTableMatchesSpec exhaustively checks every row of the
// consensus worker's state-transition table (spec.md §4.3).
func TestTransitionTableMatchesSpec(t *testing.T) {
	w := &ConsensusWorker{log: workerLogger}

	cases := []struct {
		from  WorkerStateKind
		event ConsensusWorkerStateEvent
		to    WorkerStateKind
	}{
		{Starting, ConsensusWorkerStateEvent{Kind: EventInitialized}, Synchronizing},
		{Synchronizing, ConsensusWorkerStateEvent{Kind: EventSynchronized}, NextView},
		{Prepare, ConsensusWorkerStateEvent{Kind: EventNotPartOfCommittee}, Idle},
		{Commit, ConsensusWorkerStateEvent{Kind: EventNotPartOfCommittee}, Idle},
		{Idle, ConsensusWorkerStateEvent{Kind: EventTimedOut}, Starting},
		{Prepare, ConsensusWorkerStateEvent{Kind: EventTimedOut}, NextView},
		{Decide, ConsensusWorkerStateEvent{Kind: EventTimedOut}, Decide},
		{NextView, ConsensusWorkerStateEvent{Kind: EventNewView, NewView: 7}, Prepare},
		{Prepare, ConsensusWorkerStateEvent{Kind: EventPrepared}, PreCommit},
		{PreCommit, ConsensusWorkerStateEvent{Kind: EventPreCommitted}, Commit},
		{Commit, ConsensusWorkerStateEvent{Kind: EventCommitted}, Decide},
		{Decide, ConsensusWorkerStateEvent{Kind: EventDecided}, NextView},
	}

	for _, c := range cases {
		got := w.Transition(c.from, c.event)
		require.Equalf(t, c.to, got, "from=%s event=%s", c.from, c.event.Kind)
	}

	require.Equal(t, models.ViewID(7), w.currentViewID)
}

// fakeCommitteeManager returns a fixed committee for every asset.
type fakeCommitteeManager struct{ committee models.Committee }

func (f fakeCommitteeManager) CurrentCommittee(ctx context.Context, asset models.AssetDefinition) (models.Committee, error) {
	return f.committee, nil
}

type fakeBaseNodeClient struct{}

func (fakeBaseNodeClient) CheckpointExists(ctx context.Context, asset models.AssetDefinition) (bool, error) {
	return true, nil
}
func (fakeBaseNodeClient) AssetRegistrationExists(ctx context.Context, asset models.AssetDefinition) (bool, error) {
	return true, nil
}

type fakeCheckpointManager struct{ calls int }

func (f *fakeCheckpointManager) EmitCheckpoint(ctx context.Context, asset models.AssetDefinition, stateRoot [32]byte, committee models.Committee) error {
	f.calls++
	return nil
}

type fakeSigningService struct{ key models.PublicKey }

func (f fakeSigningService) Sign(nodeHash models.NodeHash, messageType models.MessageType, viewID models.ViewID) ([]byte, error) {
	return []byte(string(f.key)), nil
}

// fakePayloadProvider yields one payload per call until exhausted, then
// reports no pending work.
type fakePayloadProvider struct {
	mu       sync.Mutex
	payloads []models.Payload
}

func (p *fakePayloadProvider) NextPayload(ctx context.Context) (models.Payload, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.payloads) == 0 {
		return models.Payload{}, false, nil
	}
	next := p.payloads[0]
	p.payloads = p.payloads[1:]
	return next, true, nil
}

func (p *fakePayloadProvider) PendingCount(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads), nil
}

// identityProcessor writes nothing and returns no instructions; it only
// exercises the deterministic-node-hash path.
type identityProcessor struct{}

func (identityProcessor) Process(uow StateUnitOfWork, payload models.Payload) ([]models.Instruction, error) {
	return nil, nil
}

type noopMembershipWatcher struct{}

func (noopMembershipWatcher) WaitForChange(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// busOutbound/busInbound implement a synchronous in-memory fan-out bus so
// two ConsensusWorkers can exchange HotStuffMessages directly, standing
// in for the real networked InboundConnectionService/OutboundService
// (spec.md §6 "Inbound"/"Outbound").
type messageBus struct {
	mu    sync.Mutex
	boxes map[models.PublicKey]chan HotStuffMessage
}

func newMessageBus(members []models.PublicKey) *messageBus {
	boxes := make(map[models.PublicKey]chan HotStuffMessage, len(members))
	for _, m := range members {
		boxes[m] = make(chan HotStuffMessage, 64)
	}
	return &messageBus{boxes: boxes}
}

func (b *messageBus) send(to models.PublicKey, msg HotStuffMessage) {
	b.mu.Lock()
	ch := b.boxes[to]
	b.mu.Unlock()
	ch <- msg
}

type busOutbound struct {
	self models.PublicKey
	bus  *messageBus
}

func (o busOutbound) SendToCommittee(ctx context.Context, committee models.Committee, msg HotStuffMessage) error {
	for _, m := range committee.Members {
		o.bus.send(m, msg)
	}
	return nil
}

func (o busOutbound) SendToLeader(ctx context.Context, leader models.PublicKey, msg HotStuffMessage) error {
	o.bus.send(leader, msg)
	return nil
}

type busInbound struct {
	self models.PublicKey
	bus  *messageBus
}

func (i busInbound) Recv(ctx context.Context) (HotStuffMessage, error) {
	select {
	case msg := <-i.bus.boxes[i.self]:
		return msg, nil
	case <-ctx.Done():
		return HotStuffMessage{}, ctx.Err()
	}
}

// recordingEvents collects every StateChanged a worker publishes.
type recordingEvents struct {
	mu   sync.Mutex
	seen []StateChanged
}

func (r *recordingEvents) Publish(ev StateChanged) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, ev)
}

func (r *recordingEvents) snapshot() []StateChanged {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]StateChanged, len(r.seen))
	copy(out, r.seen)
	return out
}

// singleAssetDbFactory is one committee member's own chain-DB/state-DB
// replica: each node keeps independent storage, matching spec.md §2's
// "chain-DB, per asset" / "state-DB, per asset" (per-node, not shared).
type singleAssetDbFactory struct {
	chain *memChainStore
	state *memStateStore
}

func newSingleAssetDbFactory() *singleAssetDbFactory {
	return &singleAssetDbFactory{chain: newMemChainStore(), state: newMemStateStore()}
}

func (f *singleAssetDbFactory) GetOrCreateChainDB(asset models.AssetDefinition) (ChainStore, error) {
	return f.chain, nil
}

func (f *singleAssetDbFactory) GetOrCreateStateDB(asset models.AssetDefinition) (StateStore, error) {
	return f.state, nil
}

// TestScenarioS6TwoNodeHappyPath reproduces spec.md §8 Scenario S6: a
// 2-node committee drives two full view cycles and must agree on the
// committed node hash at each view boundary, each against its own
// independent chain-DB replica.
func TestScenarioS6TwoNodeHappyPath(t *testing.T) {
	bob := models.PublicKey("bob")
	alice := models.PublicKey("alice")
	// Members ordered [bob, alice] so LeaderForView(1) == alice, matching
	// spec.md §8 S6: "A is leader for view 1".
	committee, err := models.NewCommittee([]models.PublicKey{bob, alice}, models.QuorumSimpleMajority)
	require.NoError(t, err)

	bus := newMessageBus(committee.Members)
	asset := models.AssetDefinition{PublicKey: "asset-1", QuorumStrategy: models.QuorumSimpleMajority}

	payload := models.Payload{Instructions: []models.Instruction{{
		Hash:       [32]byte{1},
		TemplateID: 1,
		Method:     "transfer",
	}}}

	build := func(self models.PublicKey) (*ConsensusWorker, *recordingEvents) {
		events := &recordingEvents{}
		dbFactory := newSingleAssetDbFactory()
		w := New(
			asset,
			self,
			busInbound{self: self, bus: bus},
			busOutbound{self: self, bus: bus},
			fakeCommitteeManager{committee: committee},
			&fakePayloadProvider{payloads: []models.Payload{payload, payload}},
			identityProcessor{},
			fakeSigningService{key: self},
			&fakeCheckpointManager{},
			fakeBaseNodeClient{},
			dbFactory,
			noopMembershipWatcher{},
			events,
			Config{ViewTimeout: 2 * time.Second},
		)
		w.state = NextView
		w.currentViewID = 0
		w.chainDB = dbFactory.chain
		w.stateDB = dbFactory.state
		return w, events
	}

	aliceWorker, aliceEvents := build(alice)
	bobWorker, bobEvents := build(bob)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	runTwoViews := func(w *ConsensusWorker) {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			event, err := w.nextStateEvent(ctx)
			require.NoError(t, err)
			from := w.state
			w.state = w.Transition(from, event)
			w.events.Publish(StateChanged{From: from, To: w.state})
		}
	}

	wg.Add(2)
	go runTwoViews(aliceWorker)
	go runTwoViews(bobWorker)
	wg.Wait()

	wantTrace := []WorkerStateKind{Prepare, PreCommit, Commit, Decide, NextView, Prepare, PreCommit, Commit, Decide, NextView}
	for _, trace := range [][]StateChanged{aliceEvents.snapshot(), bobEvents.snapshot()} {
		require.Len(t, trace, len(wantTrace))
		for i, ev := range trace {
			require.Equalf(t, wantTrace[i], ev.To, "step %d", i)
		}
	}

	aliceTip, ok, err := aliceWorker.chainDB.GetTipNode()
	require.NoError(t, err)
	require.True(t, ok)
	bobTip, ok, err := bobWorker.chainDB.GetTipNode()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, aliceTip.Hash, bobTip.Hash)
	require.True(t, aliceTip.IsCommitted)
	require.True(t, bobTip.IsCommitted)
}
