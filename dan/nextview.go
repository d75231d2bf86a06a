package dan

import (
	"context"

	"github.com/godanchain/node/dan/models"
)

// nextView discards any retained state-DB unit-of-work, announces the
// next view to its leader, and waits for that view to actually start
// (spec.md §4.3 "NextView contract").
func (w *ConsensusWorker) nextView(ctx context.Context) (ConsensusWorkerStateEvent, error) {
	if w.stateUow != nil {
		w.stateUow.Discard()
		w.stateUow = nil
	}

	committee, err := w.currentCommittee(ctx)
	if err != nil {
		return ConsensusWorkerStateEvent{}, err
	}
	if !committee.Contains(w.nodeAddress) {
		return ConsensusWorkerStateEvent{Kind: EventNotPartOfCommittee, Reason: "not a committee member"}, nil
	}

	nextViewID := w.currentViewID + 1
	leader := committee.LeaderForView(nextViewID)

	prepareQC, err := w.chainDB.GetPrepareQC()
	if err != nil {
		return ConsensusWorkerStateEvent{}, err
	}

	msg := HotStuffMessage{
		Asset:     w.asset.PublicKey,
		ViewID:    nextViewID,
		Sender:    w.nodeAddress,
		IsNewView: true,
		PrepareQC: prepareQC,
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, w.config.ViewTimeout)
	defer cancel()

	if err := w.outbound.SendToLeader(timeoutCtx, leader, msg); err != nil {
		return ConsensusWorkerStateEvent{}, err
	}

	if leader == w.nodeAddress {
		if err := w.awaitNewViewQuorum(timeoutCtx, committee, nextViewID); err != nil {
			return w.timedOutOrErr(err)
		}
	} else {
		if err := w.awaitNextProposal(timeoutCtx, nextViewID); err != nil {
			return w.timedOutOrErr(err)
		}
	}

	return ConsensusWorkerStateEvent{Kind: EventNewView, NewView: nextViewID}, nil
}

// awaitNewViewQuorum waits for distinct committee members' NewView
// messages for viewID to reach quorum (spec.md §4.3: "a supermajority of
// NewView messages (if this node is the next leader)").
func (w *ConsensusWorker) awaitNewViewQuorum(ctx context.Context, committee models.Committee, viewID models.ViewID) error {
	seen := make(map[models.PublicKey]bool)
	seen[w.nodeAddress] = true
	for len(seen) < committee.Quorum() {
		msg, err := w.inbound.Recv(ctx)
		if err != nil {
			return err
		}
		if !msg.IsNewView || msg.ViewID != viewID {
			continue
		}
		seen[msg.Sender] = true
	}
	return nil
}

// awaitNextProposal waits for the next leader's Proposal message for
// viewID (spec.md §4.3: "a Proposal from the next leader"), stashing it
// for Prepare to consume rather than reading it a second time.
func (w *ConsensusWorker) awaitNextProposal(ctx context.Context, viewID models.ViewID) error {
	for {
		msg, err := w.inbound.Recv(ctx)
		if err != nil {
			return err
		}
		if msg.IsProposal && msg.ViewID == viewID {
			w.pendingProposalMsg = &msg
			return nil
		}
	}
}

// timedOutOrErr maps a context-deadline error onto TimedOut, propagating
// any other error unchanged.
func (w *ConsensusWorker) timedOutOrErr(err error) (ConsensusWorkerStateEvent, error) {
	if err == context.DeadlineExceeded {
		return ConsensusWorkerStateEvent{Kind: EventTimedOut, Reason: "view timeout"}, nil
	}
	return ConsensusWorkerStateEvent{}, err
}
