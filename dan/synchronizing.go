package dan

import "context"

// synchronizing re-confirms committee membership before entering the
// view loop; chain-level synchronization with peers is delegated to the
// base-node core (spec.md §4.1) and is not re-implemented here.
func (w *ConsensusWorker) synchronizing(ctx context.Context) (ConsensusWorkerStateEvent, error) {
	committee, err := w.currentCommittee(ctx)
	if err != nil {
		return ConsensusWorkerStateEvent{}, err
	}
	if !committee.Contains(w.nodeAddress) {
		return ConsensusWorkerStateEvent{Kind: EventNotPartOfCommittee, Reason: "not a committee member"}, nil
	}
	return ConsensusWorkerStateEvent{Kind: EventSynchronized}, nil
}
