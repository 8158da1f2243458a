package sync

import (
	"slices"
	"strings"
	"sync"
)

// ShardedMutex serializes work per key without a single global lock.
// Keys hash onto a fixed set of shards, so unrelated keys rarely contend.
type ShardedMutex struct {
	shards [32]sync.Mutex
}

// NewShardedMutex creates a new ShardedMutex with 32 shards.
func NewShardedMutex() *ShardedMutex {
	return &ShardedMutex{}
}

// Lock acquires the lock for the given key's shard.
// Empty keys default to shard 0.
func (m *ShardedMutex) Lock(key string) {
	m.shards[m.shardFor(key)].Lock()
}

// Unlock releases the lock for the given key's shard.
func (m *ShardedMutex) Unlock(key string) {
	m.shards[m.shardFor(key)].Unlock()
}

// WithLock runs fn while holding the shard lock for key.
func (m *ShardedMutex) WithLock(key string, fn func() error) error {
	m.Lock(key)
	defer m.Unlock(key)
	return fn()
}

// WithLocks runs fn while holding the shard locks for all keys. Shards are
// deduplicated and taken in ascending order, so callers locking overlapping key
// sets cannot deadlock.
func (m *ShardedMutex) WithLocks(keys []string, fn func() error) error {
	shards := make([]int, 0, len(keys))
	for _, k := range keys {
		shards = append(shards, m.shardFor(k))
	}
	slices.Sort(shards)
	shards = slices.Compact(shards)

	for _, i := range shards {
		m.shards[i].Lock()
	}
	defer func() {
		for i := len(shards) - 1; i >= 0; i-- {
			m.shards[shards[i]].Unlock()
		}
	}()
	return fn()
}

// UserKey is the lock key for read-modify-write cycles on one user record.
func UserKey(userID string) string {
	return "user:" + userID
}

// EmailKey normalizes an email address into a lock key so that
// differently-cased spellings of one address share a shard.
func EmailKey(email string) string {
	return "email:" + strings.ToLower(strings.TrimSpace(email))
}

func (m *ShardedMutex) shardFor(key string) int {
	if key == "" {
		return 0
	}
	return int(hashString(key) % uint32(len(m.shards)))
}

// hashString is a djb2-style hash for shard selection.
func hashString(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return h
}
