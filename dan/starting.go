package dan

import "context"

// starting checks the base layer for this asset's checkpoint and
// registration before joining consensus (spec.md §4.3 "Starting: checks
// checkpoint/asset-registration existence via BaseNodeClient").
func (w *ConsensusWorker) starting(ctx context.Context) (ConsensusWorkerStateEvent, error) {
	exists, err := w.baseNode.AssetRegistrationExists(ctx, w.asset)
	if err != nil {
		return ConsensusWorkerStateEvent{}, err
	}
	if !exists {
		return ConsensusWorkerStateEvent{
			Kind:   EventBaseLayerAssetRegistrationNotFound,
			Reason: "asset registration not found on base layer",
		}, nil
	}

	exists, err = w.baseNode.CheckpointExists(ctx, w.asset)
	if err != nil {
		return ConsensusWorkerStateEvent{}, err
	}
	if !exists {
		return ConsensusWorkerStateEvent{
			Kind:   EventBaseLayerCheckpointNotFound,
			Reason: "checkpoint not found on base layer",
		}, nil
	}

	committee, err := w.currentCommittee(ctx)
	if err != nil {
		return ConsensusWorkerStateEvent{}, err
	}
	if !committee.Contains(w.nodeAddress) {
		return ConsensusWorkerStateEvent{Kind: EventNotPartOfCommittee, Reason: "not a committee member"}, nil
	}

	return ConsensusWorkerStateEvent{Kind: EventInitialized}, nil
}
