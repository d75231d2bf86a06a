// Package basenode implements the base-node synchronization finite state
// machine described in spec.md §4.1: it listens to peer chain-metadata,
// decides when the local chain is lagging, and sequences
// header-sync -> horizon/block-sync -> steady-state listening, with
// cancellation on shutdown. Grounded on
// original_source/base_layer/core/src/base_node/state_machine_service/state_machine.rs
// and .../states/listening.rs, translated into the teacher's FSM idiom
// (consensus/istanbul/core's explicit state + transition-table shape).
package basenode

import (
	"context"

	golog "github.com/godanchain/node/log"
	"github.com/inconshreveable/log15"
)

var logger = golog.NewModuleLogger(golog.ModuleBaseNode)

// EventPublisher receives every StateEvent the FSM produces, in order.
// Subscribers that fall behind drop events rather than block the FSM
// (spec.md §5 "Broadcast lag").
type EventPublisher interface {
	Publish(StateEvent)
}

// StatusPublisher receives a StatusInfo snapshot whenever it changes.
type StatusPublisher interface {
	Publish(StatusInfo)
}

// Machine is the base-node FSM runtime. One instance runs as a single task
// per node (spec.md §5).
type Machine struct {
	config Config

	metadataStream ChainMetadataStream
	store          BlockchainStore
	peerMetadata   PeerMetadataStore

	headerSyncer  HeaderSyncer
	syncDecision  SyncDecision
	horizonSyncer HorizonSyncer
	blockSyncer   BlockSyncer

	events  EventPublisher
	status  StatusPublisher
	randoms RandomXInfoSource

	info           StateInfo
	isBootstrapped bool

	log log15.Logger
}

// RandomXInfoSource supplies the out-of-scope proof-of-work VM pool
// statistics carried in StatusInfo (spec.md §1 "dual proof-of-work"; the
// VM pool itself belongs to the PoW subsystem, not this core).
type RandomXInfoSource interface {
	VMCount() int
	VMFlags() uint64
}

type noopRandomXInfo struct{}

func (noopRandomXInfo) VMCount() int    { return 0 }
func (noopRandomXInfo) VMFlags() uint64 { return 0 }

// New constructs a Machine. Any collaborator left nil is replaced with an
// inert default where one exists (RandomXInfoSource only); the rest are
// required.
func New(
	config Config,
	metadataStream ChainMetadataStream,
	store BlockchainStore,
	peerMetadata PeerMetadataStore,
	headerSyncer HeaderSyncer,
	syncDecision SyncDecision,
	horizonSyncer HorizonSyncer,
	blockSyncer BlockSyncer,
	events EventPublisher,
	status StatusPublisher,
	randoms RandomXInfoSource,
) *Machine {
	if randoms == nil {
		randoms = noopRandomXInfo{}
	}
	return &Machine{
		config:         config,
		metadataStream: metadataStream,
		store:          store,
		peerMetadata:   peerMetadata,
		headerSyncer:   headerSyncer,
		syncDecision:   syncDecision,
		horizonSyncer:  horizonSyncer,
		blockSyncer:    blockSyncer,
		events:         events,
		status:         status,
		randoms:        randoms,
		info:           StateInfo{Kind: Starting},
		log:            logger,
	}
}

// Transition implements the state-transition table of spec.md §4.1. Pairs
// not covered fall through to the no-op default, logging a warning and
// preserving state.
func (m *Machine) Transition(state State, event StateEvent) State {
	switch {
	case event.Kind == FatalError:
		return State{Kind: Shutdown, Reason: event.Reason}
	case event.Kind == UserQuit:
		return State{Kind: Shutdown, Reason: "user quit"}
	}

	switch state.Kind {
	case Starting:
		if event.Kind == Initialized {
			return State{Kind: Listening, IsSynced: false}
		}
	case Listening:
		if event.Kind == FallenBehind && event.Status.IsLagging() {
			m.store.SetDisableAddBlockFlag()
			return State{Kind: HeaderSync, SyncPeers: event.Status.SyncPeers, LocalMetadata: event.Status.Local}
		}
	case HeaderSync:
		switch event.Kind {
		case HeaderSyncFailed:
			m.store.ClearDisableAddBlockFlag()
			return State{Kind: Waiting}
		case Continue, NetworkSilence:
			m.store.ClearDisableAddBlockFlag()
			return State{Kind: Listening, IsSynced: false}
		case HeadersSynchronized:
			return State{Kind: DecideNextSync, SyncPeers: state.SyncPeers}
		}
	case DecideNextSync:
		switch event.Kind {
		case ProceedToHorizonSync:
			return State{Kind: HorizonStateSync, SyncPeers: event.SyncPeers}
		case ProceedToBlockSync:
			return State{Kind: BlockSync, SyncPeers: event.SyncPeers}
		case Continue:
			m.store.ClearDisableAddBlockFlag()
			return State{Kind: Listening, IsSynced: false}
		}
	case HorizonStateSync:
		switch event.Kind {
		case HorizonStateSynchronized:
			return State{Kind: BlockSync, SyncPeers: state.SyncPeers}
		case HorizonStateSyncFailure:
			m.store.ClearDisableAddBlockFlag()
			return State{Kind: Waiting}
		}
	case BlockSync:
		switch event.Kind {
		case BlocksSynchronized:
			m.store.ClearDisableAddBlockFlag()
			return State{Kind: Listening, IsSynced: true}
		case BlockSyncFailed:
			m.store.ClearDisableAddBlockFlag()
			return State{Kind: Waiting}
		}
	case Waiting:
		if event.Kind == Continue {
			return State{Kind: Listening, IsSynced: false}
		}
	}

	m.log.Warn("No state transition occurs for event in state", "state", state.Kind, "event", event.Kind)
	return state
}

// Run drives the FSM to completion (i.e. until Shutdown), racing every
// state's work against ctx cancellation. The race is biased toward
// cancellation: a closed ctx always yields UserQuit even if the state's own
// work is also ready, per spec.md §4.1 "Cancellation".
func (m *Machine) Run(ctx context.Context) {
	state := State{Kind: Starting}
	for {
		if state.Kind == Shutdown {
			m.log.Info("Base node state machine is shutting down", "reason", state.Reason)
			return
		}

		event := m.selectNextEvent(ctx, &state)
		m.events.Publish(event)
		m.log.Debug("Base node event", "state", state.Kind, "event", event.Kind)
		state = m.Transition(state, event)
	}
}

// selectNextEvent polls ctx first (non-blocking) so that a shutdown that
// raced in concurrently with a ready state event always wins.
func (m *Machine) selectNextEvent(ctx context.Context, state *State) StateEvent {
	select {
	case <-ctx.Done():
		return StateEvent{Kind: UserQuit}
	default:
	}

	type result struct{ ev StateEvent }
	done := make(chan result, 1)
	go func() {
		done <- result{ev: m.nextStateEvent(ctx, state)}
	}()

	select {
	case <-ctx.Done():
		return StateEvent{Kind: UserQuit}
	case r := <-done:
		if ctx.Err() != nil {
			return StateEvent{Kind: UserQuit}
		}
		return r.ev
	}
}

func (m *Machine) nextStateEvent(ctx context.Context, state *State) StateEvent {
	switch state.Kind {
	case Starting:
		return StateEvent{Kind: Initialized}
	case Listening:
		// listeningNextEvent publishes its own StateInfo, since Listening
		// carries an IsSynced flag that changes within the state.
		return m.listeningNextEvent(ctx, state)
	case HeaderSync:
		m.setStateInfo(StateInfo{Kind: HeaderSync})
		return m.headerSyncNextEvent(ctx, state)
	case DecideNextSync:
		m.setStateInfo(StateInfo{Kind: DecideNextSync})
		return m.decideNextSyncNextEvent(ctx, state)
	case HorizonStateSync:
		m.setStateInfo(StateInfo{Kind: HorizonStateSync})
		return m.horizonStateSyncNextEvent(ctx, state)
	case BlockSync:
		m.setStateInfo(StateInfo{Kind: BlockSync})
		return m.blockSyncNextEvent(ctx, state)
	case Waiting:
		m.setStateInfo(StateInfo{Kind: Waiting})
		return m.waitingNextEvent(ctx)
	default:
		panic("nextStateEvent called in terminal state")
	}
}

// setStateInfo updates the published StateInfo and flips is_bootstrapped
// one-way on the first transition into a synced Listening state, per
// spec.md §4.1 "Status publication".
func (m *Machine) setStateInfo(info StateInfo) {
	m.info = info
	if info.IsSyncedStatus() && !m.isBootstrapped {
		m.log.Debug("Node has bootstrapped")
		m.isBootstrapped = true
	}
	m.publishStatus()
}

func (m *Machine) publishStatus() {
	m.status.Publish(StatusInfo{
		Bootstrapped:  m.isBootstrapped,
		StateInfo:     m.info,
		RandomXVMCnt:  m.randoms.VMCount(),
		RandomXVMFlag: m.randoms.VMFlags(),
	})
}
