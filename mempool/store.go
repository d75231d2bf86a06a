// Package mempool implements the mempool sync protocol core of spec.md
// §4.2: a bounded, turn-based gossip protocol that reconciles two peers'
// unconfirmed-transaction sets over a framed substream. Grounded on
// original_source/base_layer/core/src/mempool/sync_protocol/mod.rs.
package mempool

import (
	"hash"
	"hash/fnv"
	"sync"

	"github.com/steakknife/bloomfilter"

	golog "github.com/godanchain/node/log"
	"github.com/godanchain/node/mempool/proto"
)

var storeLogger = golog.NewModuleLogger(golog.ModuleMempool)

// ExcessSig is the unique key of a mempool transaction (spec.md §3): the
// first kernel's excess signature.
type ExcessSig string

// StoredTransaction pairs the wire-decoded transaction with its key.
type StoredTransaction struct {
	ExcessSig   ExcessSig
	Transaction *proto.Transaction
}

// InsertOutcome is the result of Store.Insert, consumed only for metrics
// (spec.md §3 "Mempool transaction" lifecycle).
type InsertOutcome int

const (
	InsertOutcomeStored InsertOutcome = iota
	InsertOutcomeRejectedDuplicate
	InsertOutcomeRejectedInvalid
)

func (o InsertOutcome) IsStored() bool { return o == InsertOutcomeStored }

func (o InsertOutcome) String() string {
	switch o {
	case InsertOutcomeStored:
		return "Stored"
	case InsertOutcomeRejectedDuplicate:
		return "RejectedDuplicate"
	case InsertOutcomeRejectedInvalid:
		return "RejectedInvalid"
	default:
		return "Unknown"
	}
}

// Stats is a point-in-time snapshot of pool sizes, matching
// mempool::stats() in sync_protocol/mod.rs (used to update the size
// gauges after a sync session).
type Stats struct {
	UnconfirmedTxs int
	ReorgTxs       int
}

// ReorgPool is a bounded-retention store for transactions removed from the
// unconfirmed set by a chain reorg, modeled on the same bounded-retention
// shape as original_source/comms/dht/src/store_forward/store.rs applied to
// reorg'd transactions (spec.md §3 "removed on reorg").
type ReorgPool interface {
	Put(sig ExcessSig, tx *proto.Transaction)
	Has(sig ExcessSig) bool
	Len() int
}

// Store is the at-most-once-insert mempool (spec.md §2 component E / §3).
// A bloom filter gives a cheap negative pre-check ahead of the
// authoritative map lookup in HasTransaction.
type Store struct {
	mu     sync.RWMutex
	byKey  map[ExcessSig]*StoredTransaction
	order  []ExcessSig // insertion order, for Snapshot
	filter *bloomfilter.Filter
	reorg  ReorgPool

	stored   int64
	rejected int64
}

// NewStore constructs a Store sized for approximately capacity
// transactions, with the given reorg pool (use NewInMemoryReorgPool for the
// default, or NewRedisReorgPool when configured).
func NewStore(capacity int, reorg ReorgPool) (*Store, error) {
	if capacity <= 0 {
		capacity = 1024
	}
	// false-positive rate of 1% at the configured capacity.
	filter, err := bloomfilter.NewOptimal(uint64(capacity), 0.01)
	if err != nil {
		return nil, err
	}
	return &Store{
		byKey:  make(map[ExcessSig]*StoredTransaction, capacity),
		filter: filter,
		reorg:  reorg,
	}, nil
}

// sigHash returns sig's key for the bloom filter. bloomfilter.Filter.Add
// and .Contains both take a hash.Hash64.
func sigHash(sig ExcessSig) hash.Hash64 {
	h := fnv.New64a()
	h.Write([]byte(sig))
	return h
}

// HasTransaction reports whether sig is already stored. The bloom filter
// answers definite negatives without taking the map lookup's contention
// path on the hot "not present" case; positives are always confirmed
// against the authoritative map. Both checks run under the same read lock
// since Insert mutates the filter and the map together.
func (s *Store) HasTransaction(sig ExcessSig) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.filter.Contains(sigHash(sig)) {
		return false
	}
	_, ok := s.byKey[sig]
	return ok
}

// Insert stores txn under sig if not already present (spec.md §3 "inserted
// via insert returning a stored/rejected outcome").
func (s *Store) Insert(sig ExcessSig, tx *proto.Transaction) InsertOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byKey[sig]; ok {
		return InsertOutcomeRejectedDuplicate
	}

	s.byKey[sig] = &StoredTransaction{ExcessSig: sig, Transaction: tx}
	s.order = append(s.order, sig)
	s.filter.Add(sigHash(sig))
	s.stored++
	return InsertOutcomeStored
}

// Remove moves a transaction out of the unconfirmed set into the reorg
// pool, per spec.md §3 "removed on reorg into the reorg-pool".
func (s *Store) Remove(sig ExcessSig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byKey[sig]
	if !ok {
		return
	}
	delete(s.byKey, sig)
	for i, k := range s.order {
		if k == sig {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.reorg != nil {
		s.reorg.Put(sig, stored.Transaction)
	}
}

// Snapshot is a cheap shallow clone of the unconfirmed set for streaming
// (spec.md §3 "snapshotted for streaming").
func (s *Store) Snapshot() []*StoredTransaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*StoredTransaction, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.byKey[k])
	}
	return out
}

// Stats returns the current pool sizes.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reorgLen := 0
	if s.reorg != nil {
		reorgLen = s.reorg.Len()
	}
	return Stats{UnconfirmedTxs: len(s.byKey), ReorgTxs: reorgLen}
}
