package dan

import (
	"context"

	"github.com/godanchain/node/dan/models"
)

// prepare implements spec.md §4.3's Prepare phase contract: the leader
// proposes a node parented on the chain tip and executes it through the
// payload processor; every committee member (leader included) then votes
// and collects a quorum before persisting.
func (w *ConsensusWorker) prepare(ctx context.Context) (ConsensusWorkerStateEvent, error) {
	committee, err := w.currentCommittee(ctx)
	if err != nil {
		return ConsensusWorkerStateEvent{}, err
	}
	if !committee.Contains(w.nodeAddress) {
		return ConsensusWorkerStateEvent{Kind: EventNotPartOfCommittee, Reason: "not a committee member"}, nil
	}

	chainUow := w.chainDB.NewUnitOfWork()
	stateUow := w.stateDB.NewUnitOfWork(uint64(w.currentViewID))

	isLeader := committee.LeaderForView(w.currentViewID) == w.nodeAddress

	node, instructions, err := w.obtainProposedNode(ctx, committee, isLeader, stateUow)
	if err != nil {
		chainUow.Discard()
		stateUow.Discard()
		return ConsensusWorkerStateEvent{}, err
	}

	if _, err := w.gatherQuorumSignatures(ctx, committee, models.MessageTypePrepare, node.Hash, w.currentViewID); err != nil {
		chainUow.Discard()
		stateUow.Discard()
		return w.timedOutOrErr(err)
	}

	chainUow.AddNode(node, instructions)
	if err := chainUow.Commit(); err != nil {
		stateUow.Discard()
		return ConsensusWorkerStateEvent{}, err
	}

	w.pendingProposal = &node
	w.stateUow = stateUow

	return ConsensusWorkerStateEvent{Kind: EventPrepared}, nil
}

// obtainProposedNode returns the node to vote on for the current view:
// built from the payload provider if this node leads the view, or read
// off the inbound channel's Proposal message otherwise.
func (w *ConsensusWorker) obtainProposedNode(
	ctx context.Context,
	committee models.Committee,
	isLeader bool,
	stateUow StateUnitOfWork,
) (models.Node, []models.Instruction, error) {
	if isLeader {
		payload, ok, err := w.payloads.NextPayload(ctx)
		if err != nil {
			return models.Node{}, nil, err
		}
		if !ok {
			payload = models.Payload{}
		}

		tip, hasTip, err := w.chainDB.GetTipNode()
		if err != nil {
			return models.Node{}, nil, err
		}
		var parent models.NodeHash
		var height uint64
		if hasTip {
			parent = tip.Hash
			height = tip.Height + 1
		}

		instructions, err := w.processor.Process(stateUow, payload)
		if err != nil {
			return models.Node{}, nil, err
		}

		node := models.Node{
			Hash:       payload.Hash(parent),
			ParentHash: parent,
			Height:     height,
		}

		msg := HotStuffMessage{
			Asset:      w.asset.PublicKey,
			ViewID:     w.currentViewID,
			Sender:     w.nodeAddress,
			IsProposal: true,
			NodeHash:   node.Hash,
			Payload:    payload,
		}
		if err := w.outbound.SendToCommittee(ctx, committee, msg); err != nil {
			return models.Node{}, nil, err
		}
		return node, instructions, nil
	}

	for {
		var msg HotStuffMessage
		if w.pendingProposalMsg != nil && w.pendingProposalMsg.ViewID == w.currentViewID {
			msg = *w.pendingProposalMsg
			w.pendingProposalMsg = nil
		} else {
			var err error
			msg, err = w.inbound.Recv(ctx)
			if err != nil {
				return models.Node{}, nil, err
			}
		}
		if !msg.IsProposal || msg.ViewID != w.currentViewID {
			continue
		}
		tip, hasTip, err := w.chainDB.GetTipNode()
		if err != nil {
			return models.Node{}, nil, err
		}
		var parent models.NodeHash
		var height uint64
		if hasTip {
			parent = tip.Hash
			height = tip.Height + 1
		}
		hash := msg.Payload.Hash(parent)
		if hash != msg.NodeHash {
			continue
		}
		instructions, err := w.processor.Process(stateUow, msg.Payload)
		if err != nil {
			return models.Node{}, nil, err
		}
		return models.Node{Hash: hash, ParentHash: parent, Height: height}, instructions, nil
	}
}

// gatherQuorumSignatures signs nodeHash for messageType, broadcasts the
// vote to the committee, and collects distinct members' signatures until
// quorum is reached (spec.md §4.3 "PreCommit, Commit" shape, applied
// uniformly to Prepare too).
func (w *ConsensusWorker) gatherQuorumSignatures(
	ctx context.Context,
	committee models.Committee,
	messageType models.MessageType,
	nodeHash models.NodeHash,
	viewID models.ViewID,
) (map[models.PublicKey][]byte, error) {
	sig, err := w.signing.Sign(nodeHash, messageType, viewID)
	if err != nil {
		return nil, err
	}

	vote := HotStuffMessage{
		Asset:       w.asset.PublicKey,
		ViewID:      viewID,
		Sender:      w.nodeAddress,
		MessageType: messageType,
		NodeHash:    nodeHash,
		Signature:   sig,
	}
	if err := w.outbound.SendToCommittee(ctx, committee, vote); err != nil {
		return nil, err
	}

	signatures := map[models.PublicKey][]byte{w.nodeAddress: sig}
	for len(signatures) < committee.Quorum() {
		msg, err := w.inbound.Recv(ctx)
		if err != nil {
			return nil, err
		}
		if msg.IsProposal || msg.IsNewView || msg.MessageType != messageType || msg.ViewID != viewID || msg.NodeHash != nodeHash {
			continue
		}
		signatures[msg.Sender] = msg.Signature
	}
	return signatures, nil
}
