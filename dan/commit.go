package dan

import (
	"context"

	"github.com/godanchain/node/dan/models"
)

// commit gathers Commit votes for the pending proposal, aggregates them
// into a QC, and persists it as the new locked-QC (spec.md §4.3
// "PreCommit, Commit. Identical shape"; locked-QC.view is monotonically
// non-decreasing per the phase invariants).
func (w *ConsensusWorker) commit(ctx context.Context) (ConsensusWorkerStateEvent, error) {
	committee, err := w.currentCommittee(ctx)
	if err != nil {
		return ConsensusWorkerStateEvent{}, err
	}
	if !committee.Contains(w.nodeAddress) {
		return ConsensusWorkerStateEvent{Kind: EventNotPartOfCommittee, Reason: "not a committee member"}, nil
	}

	sigs, err := w.gatherQuorumSignatures(ctx, committee, models.MessageTypeCommit, w.pendingProposal.Hash, w.currentViewID)
	if err != nil {
		return w.timedOutOrErr(err)
	}

	qc := models.QuorumCertificate{
		MessageType: models.MessageTypeCommit,
		ViewID:      w.currentViewID,
		NodeHash:    w.pendingProposal.Hash,
		Signatures:  sigs,
	}

	locked, err := w.chainDB.GetLockedQC()
	if err != nil {
		return ConsensusWorkerStateEvent{}, err
	}
	if !locked.IsEmpty() && qc.ViewID < locked.ViewID {
		w.log.Warn("Refusing to regress locked-QC view", "current", locked.ViewID, "proposed", qc.ViewID)
		return ConsensusWorkerStateEvent{Kind: EventTimedOut, Reason: "locked-QC view regression"}, nil
	}

	uow := w.chainDB.NewUnitOfWork()
	uow.SetLockedQC(qc)
	if err := uow.Commit(); err != nil {
		return ConsensusWorkerStateEvent{}, err
	}

	return ConsensusWorkerStateEvent{Kind: EventCommitted}, nil
}
