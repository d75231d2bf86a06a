package mempool

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/go-redis/redis/v7"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/godanchain/node/mempool/proto"
)

// InMemoryReorgPool is the default ReorgPool: a bounded-retention map keyed
// by excess signature, evicted lazily on access once entries age past
// retention (spec.md §3 "bounded retention").
type InMemoryReorgPool struct {
	mu        sync.Mutex
	retention time.Duration
	entries   map[ExcessSig]reorgEntry
}

type reorgEntry struct {
	tx       *proto.Transaction
	insertAt time.Time
}

// NewInMemoryReorgPool constructs a pool that forgets entries older than
// retention.
func NewInMemoryReorgPool(retention time.Duration) *InMemoryReorgPool {
	return &InMemoryReorgPool{
		retention: retention,
		entries:   make(map[ExcessSig]reorgEntry),
	}
}

func (p *InMemoryReorgPool) Put(sig ExcessSig, tx *proto.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[sig] = reorgEntry{tx: tx, insertAt: time.Now()}
}

func (p *InMemoryReorgPool) Has(sig ExcessSig) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[sig]
	if !ok {
		return false
	}
	if time.Since(e.insertAt) > p.retention {
		delete(p.entries, sig)
		return false
	}
	return true
}

func (p *InMemoryReorgPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// RedisReorgPool is an optional Redis-backed ReorgPool whose entries
// outlive the process. No config field selects it; a caller constructs it
// and passes it to NewStore. Retention is enforced with Redis EXPIRE rather than in-process
// bookkeeping.
type RedisReorgPool struct {
	client    *redis.Client
	keyPrefix string
	retention time.Duration
}

// NewRedisReorgPool constructs a pool backed by client, namespaced under
// keyPrefix, with entries expiring after retention.
func NewRedisReorgPool(client *redis.Client, keyPrefix string, retention time.Duration) *RedisReorgPool {
	return &RedisReorgPool{client: client, keyPrefix: keyPrefix, retention: retention}
}

func (p *RedisReorgPool) key(sig ExcessSig) string {
	return p.keyPrefix + ":reorg:" + string(sig)
}

func (p *RedisReorgPool) Put(sig ExcessSig, tx *proto.Transaction) {
	var body []byte
	if tx != nil {
		body = tx.Body
	}
	if err := p.client.Set(p.key(sig), body, p.retention).Err(); err != nil {
		storeLogger.Warn("Failed to write reorg pool entry to redis", "err", err)
	}
}

func (p *RedisReorgPool) Has(sig ExcessSig) bool {
	n, err := p.client.Exists(p.key(sig)).Result()
	if err != nil {
		storeLogger.Warn("Failed to query reorg pool entry in redis", "err", err)
		return false
	}
	return n > 0
}

func (p *RedisReorgPool) Len() int {
	keys, err := p.client.Keys(p.keyPrefix + ":reorg:*").Result()
	if err != nil {
		storeLogger.Warn("Failed to count reorg pool entries in redis", "err", err)
		return 0
	}
	return len(keys)
}

// LevelDBReorgPool is a single-node, on-disk ReorgPool: entries survive a
// process restart, unlike InMemoryReorgPool, without requiring a separate
// Redis deployment. Each value is prefixed with the insertion timestamp so
// Has can apply the same lazy-retention rule as the in-memory pool.
type LevelDBReorgPool struct {
	db        *leveldb.DB
	retention time.Duration
}

// NewLevelDBReorgPool opens (or creates) a LevelDB-backed reorg pool at dir.
func NewLevelDBReorgPool(dir string, retention time.Duration) (*LevelDBReorgPool, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDBReorgPool{db: db, retention: retention}, nil
}

func (p *LevelDBReorgPool) Close() error {
	return p.db.Close()
}

func (p *LevelDBReorgPool) Put(sig ExcessSig, tx *proto.Transaction) {
	var body []byte
	if tx != nil {
		body = tx.Body
	}
	value := make([]byte, 8+len(body))
	binary.BigEndian.PutUint64(value, uint64(time.Now().UnixNano()))
	copy(value[8:], body)
	if err := p.db.Put([]byte(sig), value, nil); err != nil {
		storeLogger.Warn("Failed to write reorg pool entry to leveldb", "err", err)
	}
}

func (p *LevelDBReorgPool) Has(sig ExcessSig) bool {
	value, err := p.db.Get([]byte(sig), nil)
	if err == leveldb.ErrNotFound {
		return false
	}
	if err != nil {
		storeLogger.Warn("Failed to query reorg pool entry in leveldb", "err", err)
		return false
	}
	if len(value) < 8 {
		return false
	}
	insertAt := time.Unix(0, int64(binary.BigEndian.Uint64(value[:8])))
	if time.Since(insertAt) > p.retention {
		if err := p.db.Delete([]byte(sig), nil); err != nil {
			storeLogger.Warn("Failed to evict expired reorg pool entry in leveldb", "err", err)
		}
		return false
	}
	return true
}

func (p *LevelDBReorgPool) Len() int {
	iter := p.db.NewIterator(nil, nil)
	defer iter.Release()
	n := 0
	for iter.Next() {
		n++
	}
	return n
}
