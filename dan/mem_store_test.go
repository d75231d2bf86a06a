package dan

import (
	"sort"
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/godanchain/node/dan/models"
)

// memChainStore is an in-memory ChainStore standing in for *storage.
// ChainDB in tests that exercise the consensus worker without a MySQL
// connection. One instance models one committee member's own replica.
type memChainStore struct {
	mu           sync.Mutex
	nodes        map[models.NodeHash]models.Node
	instructions map[models.NodeHash][]models.Instruction
	tip          models.NodeHash
	hasTip       bool
	lockedQC     models.QuorumCertificate
	prepareQC    models.QuorumCertificate
}

func newMemChainStore() *memChainStore {
	return &memChainStore{
		nodes:        make(map[models.NodeHash]models.Node),
		instructions: make(map[models.NodeHash][]models.Instruction),
	}
}

func (s *memChainStore) GetTipNode() (models.Node, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasTip {
		return models.Node{}, false, nil
	}
	return s.nodes[s.tip], true, nil
}

func (s *memChainStore) GetNode(hash models.NodeHash) (models.Node, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[hash]
	return n, ok, nil
}

func (s *memChainStore) GetLockedQC() (models.QuorumCertificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lockedQC, nil
}

func (s *memChainStore) GetPrepareQC() (models.QuorumCertificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prepareQC, nil
}

func (s *memChainStore) NewUnitOfWork() ChainUnitOfWork {
	return &memChainUow{store: s, newInstructions: make(map[models.NodeHash][]models.Instruction)}
}

type memChainUow struct {
	store           *memChainStore
	newNodes        []models.Node
	newInstructions map[models.NodeHash][]models.Instruction
	lockedQC        *models.QuorumCertificate
	prepareQC       *models.QuorumCertificate
	commitHash      *models.NodeHash
}

func (u *memChainUow) AddNode(node models.Node, instructions []models.Instruction) {
	u.newNodes = append(u.newNodes, node)
	u.newInstructions[node.Hash] = instructions
}

func (u *memChainUow) SetLockedQC(qc models.QuorumCertificate) { u.lockedQC = &qc }
func (u *memChainUow) SetPrepareQC(qc models.QuorumCertificate) { u.prepareQC = &qc }
func (u *memChainUow) MarkCommitted(hash models.NodeHash)      { u.commitHash = &hash }

func (u *memChainUow) Commit() error {
	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range u.newNodes {
		s.nodes[n.Hash] = n
		s.instructions[n.Hash] = u.newInstructions[n.Hash]
		if !s.hasTip || n.Height > s.nodes[s.tip].Height {
			s.tip = n.Hash
			s.hasTip = true
		}
	}
	if u.lockedQC != nil {
		s.lockedQC = *u.lockedQC
	}
	if u.prepareQC != nil {
		s.prepareQC = *u.prepareQC
	}
	if u.commitHash != nil {
		if n, ok := s.nodes[*u.commitHash]; ok {
			n.IsCommitted = true
			s.nodes[*u.commitHash] = n
		}
	}
	return nil
}

func (u *memChainUow) Discard() {
	u.newNodes = nil
	u.newInstructions = make(map[models.NodeHash][]models.Instruction)
	u.lockedQC = nil
	u.prepareQC = nil
	u.commitHash = nil
}

// memStateStore is an in-memory StateStore standing in for *storage.
// StateDB in tests, avoiding a real badger instance.
type memStateStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStateStore() *memStateStore {
	return &memStateStore{data: make(map[string][]byte)}
}

func (s *memStateStore) Get(key []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[string(key)]
	return v, ok, nil
}

func (s *memStateStore) NewUnitOfWork(viewID uint64) StateUnitOfWork {
	return &memStateUow{store: s, writes: make(map[string][]byte), deletes: make(map[string]struct{})}
}

type memStateUow struct {
	store   *memStateStore
	writes  map[string][]byte
	deletes map[string]struct{}
}

func (u *memStateUow) Set(key, value []byte) {
	delete(u.deletes, string(key))
	u.writes[string(key)] = append([]byte(nil), value...)
}

func (u *memStateUow) Delete(key []byte) {
	delete(u.writes, string(key))
	u.deletes[string(key)] = struct{}{}
}

func (u *memStateUow) Get(key []byte) ([]byte, bool, error) {
	if _, deleted := u.deletes[string(key)]; deleted {
		return nil, false, nil
	}
	if v, ok := u.writes[string(key)]; ok {
		return v, true, nil
	}
	return u.store.Get(key)
}

func (u *memStateUow) MerkleRoot() [32]byte {
	keys := make([]string, 0, len(u.writes))
	for k := range u.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha3.New256()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write(u.writes[k])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func (u *memStateUow) Commit() error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	for k, v := range u.writes {
		u.store.data[k] = v
	}
	for k := range u.deletes {
		delete(u.store.data, k)
	}
	return nil
}

func (u *memStateUow) Discard() {
	u.writes = make(map[string][]byte)
	u.deletes = make(map[string]struct{})
}
