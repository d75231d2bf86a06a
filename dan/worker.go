// Package dan implements the per-asset HotStuff-style consensus worker
// of spec.md §4.3: a state machine (Prepare -> PreCommit -> Commit ->
// Decide -> NextView) driven by network messages, view timeouts, and a
// pluggable payload processor. Grounded on
// original_source/dan_layer/core/src/workers/consensus_worker.rs,
// translated into the teacher's FSM idiom (consensus/istanbul/core).
package dan

import (
	"context"

	"github.com/inconshreveable/log15"

	"github.com/godanchain/node/dan/models"
	golog "github.com/godanchain/node/log"
)

var workerLogger = golog.NewModuleLogger(golog.ModuleDAN)

// ConsensusWorker runs one HotStuff-style FSM instance for one asset
// (spec.md §5 "Consensus worker: one task per asset").
type ConsensusWorker struct {
	asset models.AssetDefinition

	inbound          InboundConnectionService
	outbound         OutboundService
	committeeManager CommitteeManager
	payloads         PayloadProvider
	processor        PayloadProcessor
	signing          SigningService
	checkpoints      CheckpointManager
	baseNode         BaseNodeClient
	dbFactory        DbFactory
	membership       CommitteeMembershipWatcher

	events      EventsPublisher
	config      Config
	nodeAddress models.PublicKey

	log log15.Logger

	state         WorkerStateKind
	currentViewID models.ViewID

	chainDB ChainStore
	stateDB StateStore

	// stateUow is the single retained state-DB unit-of-work, owned
	// exclusively between Prepare and Decide (spec.md §3 "Ownership";
	// §9 "Shared-then-owned state-DB unit-of-work" — modeled as a typed
	// field replaced on transition, never a reference-counted handle).
	stateUow StateUnitOfWork

	// pendingProposal carries the node proposed in Prepare
	// through to Decide, where it is marked committed.
	pendingProposal *models.Node

	// pendingProposalMsg is the Proposal message a follower consumed
	// while waiting in NextView, carried forward so Prepare does not
	// need (and cannot) read it a second time off the inbound channel.
	pendingProposalMsg *HotStuffMessage

	// pendingCheckpointRoot is set once the node and state-DB commits in
	// Decide have both succeeded, so a checkpoint-emission failure can
	// retry at Decide without re-committing either (spec.md §4.3 "Decide
	// contract" gates only checkpoint emission, not the commits).
	pendingCheckpointRoot *[32]byte
}

// New constructs a ConsensusWorker for asset.
func New(
	asset models.AssetDefinition,
	nodeAddress models.PublicKey,
	inbound InboundConnectionService,
	outbound OutboundService,
	committeeManager CommitteeManager,
	payloads PayloadProvider,
	processor PayloadProcessor,
	signing SigningService,
	checkpoints CheckpointManager,
	baseNode BaseNodeClient,
	dbFactory DbFactory,
	membership CommitteeMembershipWatcher,
	events EventsPublisher,
	config Config,
) *ConsensusWorker {
	return &ConsensusWorker{
		asset:            asset,
		nodeAddress:      nodeAddress,
		inbound:          inbound,
		outbound:         outbound,
		committeeManager: committeeManager,
		payloads:         payloads,
		processor:        processor,
		signing:          signing,
		checkpoints:      checkpoints,
		baseNode:         baseNode,
		dbFactory:        dbFactory,
		membership:       membership,
		events:           events,
		config:           config,
		log:              workerLogger,
		state:            Starting,
	}
}

// Transition implements the state-transition table of spec.md §4.3.
func (w *ConsensusWorker) Transition(from WorkerStateKind, event ConsensusWorkerStateEvent) WorkerStateKind {
	if event.Kind == EventNotPartOfCommittee {
		return Idle
	}
	if event.Kind == EventTimedOut {
		switch from {
		case Idle:
			return Starting
		case Decide:
			// A checkpoint-emission failure holds at Decide so the next
			// iteration retries emission against the already-committed
			// node and state root, instead of abandoning them.
			return Decide
		default:
			return NextView
		}
	}

	switch from {
	case Starting:
		if event.Kind == EventInitialized {
			return Synchronizing
		}
	case Synchronizing:
		if event.Kind == EventSynchronized {
			return NextView
		}
	case NextView:
		if event.Kind == EventNewView {
			w.currentViewID = event.NewView
			return Prepare
		}
	case Prepare:
		if event.Kind == EventPrepared {
			return PreCommit
		}
	case PreCommit:
		if event.Kind == EventPreCommitted {
			return Commit
		}
	case Commit:
		if event.Kind == EventCommitted {
			return Decide
		}
	case Decide:
		if event.Kind == EventDecided {
			return NextView
		}
	}

	w.log.Warn("No state transition occurs for event in state", "state", from, "event", event.Kind)
	return from
}

// Run drives the worker until ctx is cancelled or a terminal event fires
// (spec.md §4.3 "BaseLayerCheckpointNotFound/BaseLayerAssetRegistrationNotFound
// is treated as unrecoverable for that asset and terminates the worker").
func (w *ConsensusWorker) Run(ctx context.Context) error {
	chainDB, err := w.dbFactory.GetOrCreateChainDB(w.asset)
	if err != nil {
		return err
	}
	stateDB, err := w.dbFactory.GetOrCreateStateDB(w.asset)
	if err != nil {
		return err
	}
	w.chainDB = chainDB
	w.stateDB = stateDB

	tip, ok, err := chainDB.GetTipNode()
	if err != nil {
		return err
	}
	if ok {
		w.currentViewID = models.ViewID(tip.Height)
	}

	for {
		select {
		case <-ctx.Done():
			if w.stateUow != nil {
				w.stateUow.Discard()
				w.stateUow = nil
			}
			return ctx.Err()
		default:
		}

		event, err := w.nextStateEvent(ctx)
		if err != nil {
			return err
		}
		if event.MustShutdown() {
			w.log.Info("Consensus worker is shutting down", "reason", event.Reason)
			return nil
		}

		from := w.state
		to := w.Transition(from, event)
		w.state = to
		w.events.Publish(StateChanged{From: from, To: to})
		w.log.Debug("Consensus worker transition", "from", from, "to", to, "view", w.currentViewID)
	}
}

func (w *ConsensusWorker) nextStateEvent(ctx context.Context) (ConsensusWorkerStateEvent, error) {
	switch w.state {
	case Starting:
		return w.starting(ctx)
	case Synchronizing:
		return w.synchronizing(ctx)
	case Prepare:
		return w.prepare(ctx)
	case PreCommit:
		return w.preCommit(ctx)
	case Commit:
		return w.commit(ctx)
	case Decide:
		return w.decide(ctx)
	case NextView:
		return w.nextView(ctx)
	case Idle:
		return w.idle(ctx)
	default:
		panic("nextStateEvent called in unknown state")
	}
}

func (w *ConsensusWorker) currentCommittee(ctx context.Context) (models.Committee, error) {
	return w.committeeManager.CurrentCommittee(ctx, w.asset)
}

func (w *ConsensusWorker) isLeaderForCurrentView(ctx context.Context) (bool, error) {
	committee, err := w.currentCommittee(ctx)
	if err != nil {
		return false, err
	}
	if !committee.Contains(w.nodeAddress) {
		return false, nil
	}
	return committee.LeaderForView(w.currentViewID) == w.nodeAddress, nil
}
