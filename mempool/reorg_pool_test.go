package mempool

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godanchain/node/mempool/proto"
)

func TestInMemoryReorgPoolRetention(t *testing.T) {
	pool := NewInMemoryReorgPool(time.Hour)
	sig := ExcessSig("sig-a")

	assert.False(t, pool.Has(sig))
	pool.Put(sig, &proto.Transaction{Body: []byte("tx-a")})
	assert.True(t, pool.Has(sig))
	assert.Equal(t, 1, pool.Len())
}

func TestInMemoryReorgPoolExpires(t *testing.T) {
	pool := NewInMemoryReorgPool(time.Nanosecond)
	sig := ExcessSig("sig-b")

	pool.Put(sig, &proto.Transaction{Body: []byte("tx-b")})
	time.Sleep(time.Millisecond)
	assert.False(t, pool.Has(sig), "entry older than retention should be forgotten")
}

func TestLevelDBReorgPoolPutHas(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reorg")
	pool, err := NewLevelDBReorgPool(dir, time.Hour)
	require.NoError(t, err)
	defer pool.Close()

	sig := ExcessSig("sig-c")
	assert.False(t, pool.Has(sig))

	pool.Put(sig, &proto.Transaction{Body: []byte("tx-c")})
	assert.True(t, pool.Has(sig))
	assert.Equal(t, 1, pool.Len())
}

func TestLevelDBReorgPoolExpires(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reorg")
	pool, err := NewLevelDBReorgPool(dir, time.Nanosecond)
	require.NoError(t, err)
	defer pool.Close()

	sig := ExcessSig("sig-d")
	pool.Put(sig, &proto.Transaction{Body: []byte("tx-d")})
	time.Sleep(time.Millisecond)
	assert.False(t, pool.Has(sig), "entry older than retention should be forgotten")
	assert.Equal(t, 0, pool.Len(), "expired entry should be evicted on access")
}

var (
	_ ReorgPool = (*InMemoryReorgPool)(nil)
	_ ReorgPool = (*RedisReorgPool)(nil)
	_ ReorgPool = (*LevelDBReorgPool)(nil)
)
