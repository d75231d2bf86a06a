package dan

import (
	"context"

	"github.com/godanchain/node/dan/models"
)

// preCommit gathers PreCommit votes for the pending proposal, aggregates
// them into a QC, and persists it as the new prepare-QC (spec.md §4.3
// "PreCommit, Commit. Identical shape").
func (w *ConsensusWorker) preCommit(ctx context.Context) (ConsensusWorkerStateEvent, error) {
	committee, err := w.currentCommittee(ctx)
	if err != nil {
		return ConsensusWorkerStateEvent{}, err
	}
	if !committee.Contains(w.nodeAddress) {
		return ConsensusWorkerStateEvent{Kind: EventNotPartOfCommittee, Reason: "not a committee member"}, nil
	}

	sigs, err := w.gatherQuorumSignatures(ctx, committee, models.MessageTypePreCommit, w.pendingProposal.Hash, w.currentViewID)
	if err != nil {
		return w.timedOutOrErr(err)
	}

	qc := models.QuorumCertificate{
		MessageType: models.MessageTypePreCommit,
		ViewID:      w.currentViewID,
		NodeHash:    w.pendingProposal.Hash,
		Signatures:  sigs,
	}

	uow := w.chainDB.NewUnitOfWork()
	uow.SetPrepareQC(qc)
	if err := uow.Commit(); err != nil {
		return ConsensusWorkerStateEvent{}, err
	}

	return ConsensusWorkerStateEvent{Kind: EventPreCommitted}, nil
}
