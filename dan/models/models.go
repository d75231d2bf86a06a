// Package models holds the DAN consensus worker's data model: views,
// quorum certificates, the node tree, instructions, and committee
// membership (spec.md §3, §4.3). Grounded on
// original_source/dan_layer/core/src/workers/consensus_worker.rs and
// dan_layer/storage_sqlite/src/sqlite_chain_backend_adapter.rs.
package models

import (
	"fmt"

	"golang.org/x/crypto/sha3"
)

// ViewID is a monotonic per-asset view identifier (spec.md §3 "View
// identifier"): a committed block at height h implies current view = h.
type ViewID uint64

// PublicKey identifies a committee member. Key generation and signature
// verification are out of scope (spec.md §1 "cryptographic primitive
// design"); this is an opaque comparable value.
type PublicKey string

// MessageType distinguishes the phases of one HotStuff round (spec.md §3
// "Quorum certificate").
type MessageType int

const (
	MessageTypePrepare MessageType = iota
	MessageTypePreCommit
	MessageTypeCommit
	MessageTypeDecide
)

func (m MessageType) String() string {
	switch m {
	case MessageTypePrepare:
		return "Prepare"
	case MessageTypePreCommit:
		return "PreCommit"
	case MessageTypeCommit:
		return "Commit"
	case MessageTypeDecide:
		return "Decide"
	default:
		return "Unknown"
	}
}

// NodeHash identifies a consensus Node by content hash.
type NodeHash [32]byte

func (h NodeHash) String() string { return fmt.Sprintf("%x", h[:8]) }

// QuorumCertificate aggregates committee signatures attesting to one
// phase of one view (spec.md §3). Signature aggregation itself is out of
// scope; Signatures holds whatever opaque bytes the signing service
// produced per signer.
type QuorumCertificate struct {
	MessageType MessageType
	ViewID      ViewID
	NodeHash    NodeHash
	Signatures  map[PublicKey][]byte
}

// IsEmpty reports the zero-value "no QC yet" certificate, used as the
// genesis locked-QC/prepare-QC.
func (qc QuorumCertificate) IsEmpty() bool {
	return qc.ViewID == 0 && qc.NodeHash == NodeHash{}
}

// Node is a consensus tree node (spec.md §3 "Consensus node"). Nodes form
// a tree rooted at genesis; each non-genesis node names exactly one
// parent that exists.
type Node struct {
	Hash        NodeHash
	ParentHash  NodeHash
	Height      uint64
	IsCommitted bool
}

// Instruction is one unit of work within a Node's payload (spec.md §3
// "Instruction"): inserted together with its node in a single chain-DB
// unit-of-work, deleted only by cascade when the node is deleted.
type Instruction struct {
	Hash       [32]byte
	NodeHash   NodeHash
	TemplateID uint32
	Method     string
	Args       []byte
	Sender     PublicKey
}

// Payload is an ordered batch of instructions proposed for inclusion in a
// DAN node (GLOSSARY).
type Payload struct {
	Instructions []Instruction
}

// Hash computes the payload's content hash, used as the proposed node's
// hash (SHA3, per spec.md §3/§6 "computes a merkle root using SHA3").
func (p Payload) Hash(parent NodeHash) NodeHash {
	h := sha3.New256()
	h.Write(parent[:])
	for _, instr := range p.Instructions {
		h.Write(instr.Hash[:])
	}
	var out NodeHash
	copy(out[:], h.Sum(nil))
	return out
}

// AssetDefinition identifies the asset this worker instance runs
// consensus for, and carries committee configuration (spec.md §9 "the
// exact quorum threshold for the DAN committee is parameterized").
type AssetDefinition struct {
	PublicKey      PublicKey
	QuorumStrategy QuorumStrategy
}

// QuorumStrategy selects how Committee.Quorum computes the vote threshold
// (Open Question in spec.md §9, resolved here as a config field; see
// DESIGN.md).
type QuorumStrategy int

const (
	// QuorumSimpleMajority requires > n/2 votes (the mock/testing default
	// named in spec.md §4.3 "Prepare phase contract").
	QuorumSimpleMajority QuorumStrategy = iota
	// QuorumByzantine requires > 2n/3 votes, for committees sized to
	// tolerate Byzantine faults.
	QuorumByzantine
)

// Committee is the ordered set of public keys participating in consensus
// for one asset, grounded on consensus/istanbul/validator's
// ValidatorSet/F() quorum-size pattern.
type Committee struct {
	Members  []PublicKey
	Strategy QuorumStrategy
}

// NewCommittee validates size and constructs a Committee. Committee sizes
// below 1 are rejected (spec.md §9).
func NewCommittee(members []PublicKey, strategy QuorumStrategy) (Committee, error) {
	if len(members) < 1 {
		return Committee{}, errCommitteeTooSmall
	}
	cp := make([]PublicKey, len(members))
	copy(cp, members)
	return Committee{Members: cp, Strategy: strategy}, nil
}

func (c Committee) Size() int { return len(c.Members) }

// Quorum returns the minimum vote count required to reach quorum under
// the committee's configured strategy.
func (c Committee) Quorum() int {
	n := len(c.Members)
	switch c.Strategy {
	case QuorumByzantine:
		return (2*n)/3 + 1
	default:
		return n/2 + 1
	}
}

// LeaderForView returns the committee member elected to lead viewID,
// by committee-ordered round robin (spec.md §4.3 "leader selection:
// committee-ordered round-robin indexed by view_id mod committee.size"),
// grounded on istanbul.ValidatorSet's proposer-selection role.
func (c Committee) LeaderForView(viewID ViewID) PublicKey {
	idx := int(uint64(viewID) % uint64(len(c.Members)))
	return c.Members[idx]
}

// Contains reports whether key is a member of the committee.
func (c Committee) Contains(key PublicKey) bool {
	for _, m := range c.Members {
		if m == key {
			return true
		}
	}
	return false
}
