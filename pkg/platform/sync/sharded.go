// Package sync holds locking helpers shared by in-memory stores.
package sync

import (
	"hash/maphash"
	"sync"
)

const defaultShards = 64

// ShardedMutex serializes work per key without one global lock: keys hash
// onto a fixed set of mutexes, so unrelated keys rarely contend.
type ShardedMutex struct {
	seed   maphash.Seed
	shards []sync.Mutex
}

// NewShardedMutex creates a ShardedMutex. n <= 0 selects the default shard count.
func NewShardedMutex(n int) *ShardedMutex {
	if n <= 0 {
		n = defaultShards
	}
	return &ShardedMutex{
		seed:   maphash.MakeSeed(),
		shards: make([]sync.Mutex, n),
	}
}

// Lock acquires the lock guarding key.
func (m *ShardedMutex) Lock(key string) {
	m.shardFor(key).Lock()
}

// Unlock releases the lock guarding key.
func (m *ShardedMutex) Unlock(key string) {
	m.shardFor(key).Unlock()
}

// Do runs fn while holding the lock for key.
func (m *ShardedMutex) Do(key string, fn func()) {
	mu := m.shardFor(key)
	mu.Lock()
	defer mu.Unlock()
	fn()
}

func (m *ShardedMutex) shardFor(key string) *sync.Mutex {
	idx := maphash.String(m.seed, key) % uint64(len(m.shards))
	return &m.shards[idx]
}
