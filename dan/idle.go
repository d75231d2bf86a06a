package dan

import "context"

// idle waits for a committee-membership change notification, then hands
// control back to Starting to re-synchronize (spec.md §4.3 "Idle...
// waits for committee-membership change notifications, then transitions
// via TimedOut back to Starting").
func (w *ConsensusWorker) idle(ctx context.Context) (ConsensusWorkerStateEvent, error) {
	if err := w.membership.WaitForChange(ctx); err != nil {
		return ConsensusWorkerStateEvent{}, err
	}
	return ConsensusWorkerStateEvent{Kind: EventTimedOut, Reason: "committee membership changed"}, nil
}
