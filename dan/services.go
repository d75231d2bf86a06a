package dan

import (
	"context"
	"time"

	"github.com/godanchain/node/dan/models"
)

// CommitteeManager resolves the current committee for an asset (spec.md
// §2 component G). Modeled as a capability interface per spec.md §9
// "Dynamic dispatch over collaborators".
type CommitteeManager interface {
	CurrentCommittee(ctx context.Context, asset models.AssetDefinition) (models.Committee, error)
}

// PayloadProvider supplies pending payloads to propose (spec.md §2
// component H, §6 "next_payload() returning at most one payload;
// get_payload_queue() returning the pending count").
type PayloadProvider interface {
	NextPayload(ctx context.Context) (models.Payload, bool, error)
	PendingCount(ctx context.Context) (int, error)
}

// PayloadProcessor is the deterministic state-transition function over a
// payload (spec.md §2 component H): it writes through the state-DB
// unit-of-work and returns the instructions it produced.
type PayloadProcessor interface {
	Process(uow StateUnitOfWork, payload models.Payload) ([]models.Instruction, error)
}

// CheckpointManager emits (state_root, committee_members) to the base
// layer at the close of each view (spec.md §6 "Checkpoint emission").
// Success is a gating precondition for the Decide->Decided transition.
type CheckpointManager interface {
	EmitCheckpoint(ctx context.Context, asset models.AssetDefinition, stateRoot [32]byte, committee models.Committee) error
}

// SigningService produces this node's signature over a hotstuff message
// payload (spec.md §1 "cryptographic primitive design" is assumed
// correct; only the capability is modeled here).
type SigningService interface {
	Sign(nodeHash models.NodeHash, messageType models.MessageType, viewID models.ViewID) ([]byte, error)
}

// HotStuffMessage is one inbound or outbound consensus message (spec.md
// §6 "Consensus worker boundary").
type HotStuffMessage struct {
	Asset       models.PublicKey
	ViewID      models.ViewID
	Sender      models.PublicKey
	MessageType models.MessageType
	NodeHash    models.NodeHash
	Payload     models.Payload
	Signature   []byte
	IsProposal  bool
	IsNewView   bool
	PrepareQC   models.QuorumCertificate
}

// InboundConnectionService delivers messages addressed to this node for
// one asset/view (spec.md §6 "Inbound").
type InboundConnectionService interface {
	Recv(ctx context.Context) (HotStuffMessage, error)
}

// OutboundService sends messages to the committee or a specific leader
// (spec.md §6 "Outbound").
type OutboundService interface {
	SendToCommittee(ctx context.Context, committee models.Committee, msg HotStuffMessage) error
	SendToLeader(ctx context.Context, leader models.PublicKey, msg HotStuffMessage) error
}

// BaseNodeClient is the out-of-scope base-layer collaborator consulted
// for checkpoint/asset-registration existence (spec.md §1 "treated as
// external collaborators with stated interfaces").
type BaseNodeClient interface {
	CheckpointExists(ctx context.Context, asset models.AssetDefinition) (bool, error)
	AssetRegistrationExists(ctx context.Context, asset models.AssetDefinition) (bool, error)
}

// ChainUnitOfWork is the staged-mutation surface the consensus worker
// drives against the chain-DB (spec.md §3 "Ownership"). *storage.
// ChainDbUnitOfWork implements every method; db_factory.go's
// chainStoreAdapter narrows ChainStore.NewUnitOfWork's return type to it.
type ChainUnitOfWork interface {
	AddNode(node models.Node, instructions []models.Instruction)
	SetLockedQC(qc models.QuorumCertificate)
	SetPrepareQC(qc models.QuorumCertificate)
	MarkCommitted(hash models.NodeHash)
	Commit() error
	Discard()
}

// StateUnitOfWork is the staged-mutation surface the consensus worker and
// the payload processor drive against the state-DB (spec.md §9 "Shared-
// then-owned state-DB unit-of-work"). *storage.StateDbUnitOfWork
// implements every method; stateStoreAdapter narrows the return type.
type StateUnitOfWork interface {
	Set(key, value []byte)
	Delete(key []byte)
	Get(key []byte) ([]byte, bool, error)
	MerkleRoot() [32]byte
	Commit() error
	Discard()
}

// ChainStore is the read/unit-of-work surface of the chain-DB that the
// consensus worker depends on (spec.md §9 "Dynamic dispatch over
// collaborators" applied uniformly to persistence, not just network and
// committee collaborators). db_factory.go's chainStoreAdapter wraps
// *storage.ChainDB to satisfy it.
type ChainStore interface {
	GetTipNode() (models.Node, bool, error)
	GetNode(hash models.NodeHash) (models.Node, bool, error)
	GetLockedQC() (models.QuorumCertificate, error)
	GetPrepareQC() (models.QuorumCertificate, error)
	NewUnitOfWork() ChainUnitOfWork
}

// StateStore is the surface of the state-DB that the consensus worker
// depends on. db_factory.go's stateStoreAdapter wraps *storage.StateDB
// to satisfy it.
type StateStore interface {
	Get(key []byte) ([]byte, bool, error)
	NewUnitOfWork(viewID uint64) StateUnitOfWork
}

// DbFactory opens (or returns the already-open) chain-DB and state-DB for
// an asset (spec.md §2 component I/J collaboration).
type DbFactory interface {
	GetOrCreateChainDB(asset models.AssetDefinition) (ChainStore, error)
	GetOrCreateStateDB(asset models.AssetDefinition) (StateStore, error)
}

// CommitteeMembershipWatcher notifies Idle of membership changes (spec.md
// §4.3 "Idle... waits for committee-membership change notifications").
type CommitteeMembershipWatcher interface {
	WaitForChange(ctx context.Context) error
}

// Config bounds view timeouts (spec.md §5 "Consensus phase: config-
// supplied per-worker value (default 5 s in tests)").
type Config struct {
	ViewTimeout time.Duration
}

// DefaultConfig matches spec.md §5's stated test default.
var DefaultConfig = Config{ViewTimeout: 5 * time.Second}
