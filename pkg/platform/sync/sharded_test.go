package sync

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShardedMutex_SameKeySerializes(t *testing.T) {
	m := NewShardedMutex()
	counter := 0
	var wg sync.WaitGroup

	for range 100 {
		wg.Go(func() {
			_ = m.WithLock(EmailKey("dumont@didomi.io"), func() error {
				counter++
				return nil
			})
		})
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestShardedMutex_WithLockReturnsError(t *testing.T) {
	m := NewShardedMutex()
	err := m.WithLock("k", func() error { return assert.AnError })
	require.ErrorIs(t, err, assert.AnError)

	// lock must have been released
	m.Lock("k")
	m.Unlock("k")
}

func TestEmailKey_NormalizesCaseAndSpace(t *testing.T) {
	assert.Equal(t, EmailKey("Dumont@Didomi.io"), EmailKey("  dumont@didomi.io "))
	assert.NotEqual(t, EmailKey("a@example.com"), EmailKey("b@example.com"))
}

func TestShardedMutex_ShardDistribution(t *testing.T) {
	m := NewShardedMutex()
	shards := make(map[int]bool)
	for _, email := range []string{"a@x.io", "b@x.io", "c@x.io", "d@x.io", "e@x.io", "f@x.io"} {
		shards[m.shardFor(EmailKey(email))] = true
	}
	assert.GreaterOrEqual(t, len(shards), 3)
	assert.Equal(t, 0, m.shardFor(""))
}

func TestShardedMutex_WithLocksSharedShard(t *testing.T) {
	m := NewShardedMutex()
	// duplicate keys land on one shard and must not self-deadlock
	err := m.WithLocks([]string{UserKey("u1"), UserKey("u1"), EmailKey("a@x.io")}, func() error {
		return nil
	})
	require.NoError(t, err)

	// all shards released
	m.Lock(UserKey("u1"))
	m.Unlock(UserKey("u1"))
	m.Lock(EmailKey("a@x.io"))
	m.Unlock(EmailKey("a@x.io"))
}

func TestShardedMutex_WithLocksOverlappingSets(t *testing.T) {
	m := NewShardedMutex()
	keysA := []string{UserKey("u1"), EmailKey("a@x.io")}
	keysB := []string{EmailKey("a@x.io"), UserKey("u1")}
	counter := 0
	var wg sync.WaitGroup

	for i := range 50 {
		keys := keysA
		if i%2 == 1 {
			keys = keysB
		}
		wg.Go(func() {
			_ = m.WithLocks(keys, func() error {
				counter++
				return nil
			})
		})
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}
