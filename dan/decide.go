package dan

import "context"

// decide marks the pending node committed, commits the retained
// state-DB unit-of-work, and gates Decided on a successful base-layer
// checkpoint (spec.md §4.3 "Decide contract").
func (w *ConsensusWorker) decide(ctx context.Context) (ConsensusWorkerStateEvent, error) {
	committee, err := w.currentCommittee(ctx)
	if err != nil {
		return ConsensusWorkerStateEvent{}, err
	}

	// A retry after a prior checkpoint-emission failure: the node and
	// state-DB commits below already happened, so skip straight to
	// re-emitting the checkpoint against the retained root.
	if w.pendingCheckpointRoot == nil {
		node, ok, err := w.chainDB.GetNode(w.pendingProposal.Hash)
		if err != nil {
			return ConsensusWorkerStateEvent{}, err
		}
		if !ok {
			return ConsensusWorkerStateEvent{}, errNodeNotFound
		}

		uow := w.chainDB.NewUnitOfWork()
		uow.MarkCommitted(node.Hash)
		if err := uow.Commit(); err != nil {
			return ConsensusWorkerStateEvent{}, err
		}

		if w.stateUow == nil {
			return ConsensusWorkerStateEvent{}, errNoRetainedUnitOfWork
		}
		root := w.stateUow.MerkleRoot()
		if err := w.stateUow.Commit(); err != nil {
			return ConsensusWorkerStateEvent{}, err
		}
		w.stateUow = nil
		w.pendingCheckpointRoot = &root
	}

	if err := w.checkpoints.EmitCheckpoint(ctx, w.asset, *w.pendingCheckpointRoot, committee); err != nil {
		w.log.Warn("Checkpoint emission failed, holding at Decide", "err", err)
		return ConsensusWorkerStateEvent{Kind: EventTimedOut, Reason: "checkpoint emission failed"}, nil
	}

	w.pendingCheckpointRoot = nil
	w.pendingProposal = nil
	return ConsensusWorkerStateEvent{Kind: EventDecided}, nil
}
