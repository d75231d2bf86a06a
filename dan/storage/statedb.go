package storage

import (
	"sort"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/dgraph-io/badger"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// StateDB is the per-asset key-value state store (spec.md §2 component I
// "State DB unit-of-work: scoped mutation buffer over per-asset state;
// computes merkle root; commit-or-discard"). One badger instance is
// opened per asset.
type StateDB struct {
	db        *badger.DB
	readCache *fastcache.Cache
}

// OpenStateDB opens (creating if absent) the badger store rooted at dir,
// with an in-memory read-through cache sized cacheBytes.
func OpenStateDB(dir string, cacheBytes int) (*StateDB, error) {
	opts := badger.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open state-db")
	}
	if cacheBytes <= 0 {
		cacheBytes = 32 * 1024 * 1024
	}
	return &StateDB{db: db, readCache: fastcache.New(cacheBytes)}, nil
}

func (s *StateDB) Close() error {
	return s.db.Close()
}

// Get reads key, consulting the read cache before badger.
func (s *StateDB) Get(key []byte) ([]byte, bool, error) {
	if v, ok := s.readCache.HasGet(nil, key); ok {
		return v, true, nil
	}

	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to read state-db key")
	}
	if out == nil {
		return nil, false, nil
	}
	s.readCache.Set(key, out)
	return out, true, nil
}

// StateDbUnitOfWork is the scoped mutation buffer that lives from the
// Prepare phase to Decide (spec.md §9 "Shared-then-owned state-DB
// unit-of-work"). It is exclusively owned by the worker; the single-owner
// invariant is enforced by the caller holding it as a value field replaced
// on transition, not by reference counting here.
type StateDbUnitOfWork struct {
	db      *StateDB
	viewID  uint64
	writes  map[string][]byte
	deletes map[string]struct{}
}

// NewUnitOfWork opens a mutation buffer stamped with viewID (spec.md
// §4.3 Prepare phase contract: "one state-DB unit-of-work stamped with
// the current view id").
func (s *StateDB) NewUnitOfWork(viewID uint64) *StateDbUnitOfWork {
	return &StateDbUnitOfWork{
		db:      s,
		viewID:  viewID,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

// Set stages a key write. Reads within the same unit-of-work observe the
// staged value (see Get).
func (u *StateDbUnitOfWork) Set(key, value []byte) {
	delete(u.deletes, string(key))
	u.writes[string(key)] = append([]byte(nil), value...)
}

// Delete stages a key removal.
func (u *StateDbUnitOfWork) Delete(key []byte) {
	delete(u.writes, string(key))
	u.deletes[string(key)] = struct{}{}
}

// Get reads key, preferring this unit-of-work's own staged writes over
// the committed state-DB.
func (u *StateDbUnitOfWork) Get(key []byte) ([]byte, bool, error) {
	if _, deleted := u.deletes[string(key)]; deleted {
		return nil, false, nil
	}
	if v, ok := u.writes[string(key)]; ok {
		return v, true, nil
	}
	return u.db.Get(key)
}

// MerkleRoot computes a SHA3 root over the staged writes in sorted key
// order (spec.md §3/§6 "computes a merkle root using SHA3"). This is a
// deterministic content digest, not a full Merkle-tree proof structure —
// proof generation is out of scope.
func (u *StateDbUnitOfWork) MerkleRoot() [32]byte {
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

// Commit writes every staged mutation to badger and invalidates the read
// cache for touched keys; commit is the atomic write boundary (spec.md §3
// "commit-or-discard").
func (u *StateDbUnitOfWork) Commit() error {
	err := u.db.db.Update(func(txn *badger.Txn) error {
		for k, v := range u.writes {
			if err := txn.Set([]byte(k), v); err != nil {
				return err
			}
		}
		for k := range u.deletes {
			if err := txn.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "failed to commit state-db unit-of-work")
	}
	for k := range u.writes {
		u.db.readCache.Del([]byte(k))
	}
	for k := range u.deletes {
		u.db.readCache.Del([]byte(k))
	}
	return nil
}

// Discard abandons every staged mutation; the state-DB is left untouched
// (spec.md §4.3 NextView contract: "Discard any retained state-DB unit-of-
// work").
func (u *StateDbUnitOfWork) Discard() {
	u.writes = make(map[string][]byte)
	u.deletes = make(map[string]struct{})
}
