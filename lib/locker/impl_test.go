package locker

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArgs(uid, owner string, resources ...string) *LockArgs {
	return &LockArgs{
		UID:       uid,
		Resources: resources,
		Owner:     owner,
		Source:    "locker_test.go",
		Quorum:    3,
	}
}

func TestLockUnlockRoundTrip(t *testing.T) {
	l := NewLocalLocker()

	ok, err := l.Lock(writeArgs("u1", "node-1", "r1"))
	require.NoError(t, err)
	require.True(t, ok)

	st, err := l.Stats()
	require.NoError(t, err)
	assert.Equal(t, LockStats{Total: 1, Writes: 1, Reads: 0}, st)

	ok, err = l.Unlock(writeArgs("u1", "node-1", "r1"))
	require.NoError(t, err)
	require.True(t, ok)

	// Table and reverse index must be empty again.
	assert.Empty(t, l.Dump())
	impl := l.(*localLocker)
	assert.Empty(t, impl.lockUID)
}

func TestLockIsExclusive(t *testing.T) {
	l := NewLocalLocker()

	ok, err := l.Lock(writeArgs("u1", "node-1", "r1"))
	require.NoError(t, err)
	require.True(t, ok)

	// Second writer is rejected without error.
	ok, err = l.Lock(writeArgs("u2", "node-2", "r1"))
	require.NoError(t, err)
	assert.False(t, ok)

	// Readers are rejected too.
	ok, err = l.RLock(writeArgs("u3", "node-3", "r1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLockBatchAllOrNothing(t *testing.T) {
	l := NewLocalLocker()

	ok, err := l.Lock(writeArgs("u1", "node-1", "b"))
	require.NoError(t, err)
	require.True(t, ok)

	// b is held, so locking [a, b] must fail and must not leave a behind.
	ok, err = l.Lock(writeArgs("u2", "node-2", "a", "b"))
	require.NoError(t, err)
	require.False(t, ok)

	dump := l.Dump()
	assert.NotContains(t, dump, "a")
	assert.Contains(t, dump, "b")
	assert.Equal(t, "u1", dump["b"][0].UID)
}

func TestLockBatchRecordsGroupAndIndex(t *testing.T) {
	l := NewLocalLocker()

	ok, err := l.Lock(writeArgs("u1", "node-1", "r0", "r1", "r2"))
	require.NoError(t, err)
	require.True(t, ok)

	dump := l.Dump()
	for i, resource := range []string{"r0", "r1", "r2"} {
		require.Len(t, dump[resource], 1)
		lri := dump[resource][0]
		assert.True(t, lri.Writer)
		assert.True(t, lri.Group)
		assert.Equal(t, i, lri.Index)
		assert.Equal(t, 3, lri.Quorum)
	}

	// A single-resource acquisition is not a group.
	ok, err = l.Lock(writeArgs("u2", "node-1", "solo"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, l.Dump()["solo"][0].Group)
}

func TestLockBatchTooLarge(t *testing.T) {
	l := NewLocalLocker()

	resources := make([]string, MaxResourceBatch+1)
	for i := range resources {
		resources[i] = fmt.Sprintf("r%d", i)
	}

	_, err := l.Lock(writeArgs("u1", "node-1", resources...))
	require.Error(t, err)
	assert.Equal(t, RetCInternalError, err.(*Error).Code)

	_, err = l.Unlock(writeArgs("u1", "node-1", resources...))
	require.Error(t, err)

	// The failed call must not have touched the table.
	assert.Empty(t, l.Dump())
}

func TestSharedLocks(t *testing.T) {
	l := NewLocalLocker()

	ok, err := l.RLock(writeArgs("u1", "node-1", "r1"))
	require.NoError(t, err)
	require.True(t, ok)

	// Multiple readers coexist.
	ok, err = l.RLock(writeArgs("u2", "node-2", "r1"))
	require.NoError(t, err)
	require.True(t, ok)

	st, _ := l.Stats()
	assert.Equal(t, LockStats{Total: 1, Writes: 0, Reads: 1}, st)
	assert.Len(t, l.Dump()["r1"], 2)

	// A writer is excluded and the readers stay untouched.
	ok, err = l.Lock(writeArgs("u3", "node-3", "r1"))
	require.NoError(t, err)
	require.False(t, ok)
	assert.Len(t, l.Dump()["r1"], 2)

	// Release both readers, key disappears.
	ok, err = l.RUnlock(writeArgs("u1", "node-1", "r1"))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = l.RUnlock(writeArgs("u2", "node-2", "r1"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, l.Dump())
}

func TestRLockRejectsBatch(t *testing.T) {
	l := NewLocalLocker()

	_, err := l.RLock(writeArgs("u1", "node-1", "r1", "r2"))
	require.Error(t, err)
	assert.Equal(t, RetCInternalError, err.(*Error).Code)

	_, err = l.RUnlock(writeArgs("u1", "node-1", "r1", "r2"))
	require.Error(t, err)
}

func TestRUnlockOnWriteLockedResource(t *testing.T) {
	l := NewLocalLocker()

	ok, err := l.Lock(writeArgs("u1", "node-1", "r1"))
	require.NoError(t, err)
	require.True(t, ok)

	_, err = l.RUnlock(writeArgs("u1", "node-1", "r1"))
	require.Error(t, err)
	assert.Equal(t, RetCInvalidOperation, err.(*Error).Code)

	// The write lock survives the bad call.
	assert.Contains(t, l.Dump(), "r1")
}

func TestUnlockOnReadLockedResource(t *testing.T) {
	l := NewLocalLocker()

	ok, err := l.RLock(writeArgs("u1", "node-1", "a"))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = l.Lock(writeArgs("u2", "node-1", "b"))
	require.NoError(t, err)
	require.True(t, ok)

	// b is released, a is reported in the error, the call as a whole
	// still did work.
	ok, err = l.Unlock(writeArgs("u2", "node-1", "a", "b"))
	assert.True(t, ok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a")
	assert.Contains(t, l.Dump(), "a")
	assert.NotContains(t, l.Dump(), "b")
}

func TestUnlockWrongUID(t *testing.T) {
	l := NewLocalLocker()

	ok, err := l.Lock(writeArgs("u1", "node-1", "r1"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.Unlock(writeArgs("other", "node-1", "r1"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, l.Dump(), "r1")
}

func TestUnlockOwnerScoped(t *testing.T) {
	l := NewLocalLocker()

	ok, err := l.Lock(writeArgs("u1", "tenantA", "r1"))
	require.NoError(t, err)
	require.True(t, ok)

	// Owner mismatch: nothing released.
	ok, err = l.Unlock(writeArgs("u1", "tenantB", "r1"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, l.Dump(), "r1")

	// Empty owner matches any holder.
	ok, err = l.Unlock(writeArgs("u1", "", "r1"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, l.Dump())
}

func TestUnlockMissingResourceIsNotAnError(t *testing.T) {
	l := NewLocalLocker()

	ok, err := l.Unlock(writeArgs("u1", "", "nothing-here"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefresh(t *testing.T) {
	l := NewLocalLocker()

	ok, err := l.Lock(writeArgs("u1", "node-1", "r0", "r1"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.Refresh(writeArgs("u1", "node-1"))
	require.NoError(t, err)
	assert.True(t, ok)

	// Unknown UID holds nothing.
	ok, err = l.Refresh(writeArgs("ghost", "node-1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefreshExtendsDeadline(t *testing.T) {
	l := NewLocalLocker()

	ok, err := l.Lock(writeArgs("u1", "node-1", "r1"))
	require.NoError(t, err)
	require.True(t, ok)

	before := l.Dump()["r1"][0].LastRefreshedAt
	time.Sleep(5 * time.Millisecond)

	ok, err = l.Refresh(writeArgs("u1", "node-1"))
	require.NoError(t, err)
	require.True(t, ok)

	after := l.Dump()["r1"][0].LastRefreshedAt
	assert.True(t, after.After(before), "refresh must advance LastRefreshedAt")
}

func TestRefreshAfterPartialRelease(t *testing.T) {
	l := NewLocalLocker()

	ok, err := l.Lock(writeArgs("u1", "node-1", "r0", "r1"))
	require.NoError(t, err)
	require.True(t, ok)

	// Drop position 1 only.
	ok, err = l.Unlock(writeArgs("u1", "node-1", "r1"))
	require.NoError(t, err)
	require.True(t, ok)

	// Position 0 still confirms; the walk terminates cleanly at the miss.
	ok, err = l.Refresh(writeArgs("u1", "node-1"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRefreshCleansStaleIndexSlot(t *testing.T) {
	l := NewLocalLocker()

	ok, err := l.Lock(writeArgs("u1", "node-1", "r0"))
	require.NoError(t, err)
	require.True(t, ok)

	// Remove the holder behind the index's back via unconditional force
	// release of the resource under a second uid chain.
	impl := l.(*localLocker)
	impl.mu.Lock()
	delete(impl.lockMap, "r0")
	impl.mu.Unlock()

	// The uid chain starts but position 0 no longer resolves: refresh
	// reports false and drops the stale slot.
	ok, err = l.Refresh(writeArgs("u1", "node-1"))
	require.NoError(t, err)
	assert.False(t, ok)

	impl.mu.Lock()
	_, stale := impl.lockUID[uidKey{"u1", 0}]
	impl.mu.Unlock()
	assert.False(t, stale)
}

func TestExpire(t *testing.T) {
	l := NewLocalLocker()

	ok, err := l.Lock(writeArgs("u1", "node-1", "old"))
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(10 * time.Millisecond)

	ok, err = l.Lock(writeArgs("u2", "node-1", "fresh"))
	require.NoError(t, err)
	require.True(t, ok)

	removed := l.Expire(5 * time.Millisecond)
	assert.Equal(t, 1, removed)

	dump := l.Dump()
	assert.NotContains(t, dump, "old")
	assert.Contains(t, dump, "fresh")

	// The reverse index slot of the expired holder is gone too.
	impl := l.(*localLocker)
	impl.mu.Lock()
	_, stale := impl.lockUID[uidKey{"u1", 0}]
	impl.mu.Unlock()
	assert.False(t, stale)
}

func TestExpireSparesRefreshedHolders(t *testing.T) {
	l := NewLocalLocker()

	ok, err := l.Lock(writeArgs("u1", "node-1", "r1"))
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(10 * time.Millisecond)

	ok, err = l.Refresh(writeArgs("u1", "node-1"))
	require.NoError(t, err)
	require.True(t, ok)

	removed := l.Expire(5 * time.Millisecond)
	assert.Equal(t, 0, removed)
	assert.Contains(t, l.Dump(), "r1")
}

func TestForceUnlockUnconditional(t *testing.T) {
	l := NewLocalLocker()

	ok, err := l.Lock(writeArgs("u1", "node-1", "a", "b"))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = l.RLock(writeArgs("u2", "node-2", "c"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.ForceUnlock(&LockArgs{Resources: []string{"a", "b", "c"}})
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Empty(t, l.Dump())
	impl := l.(*localLocker)
	assert.Empty(t, impl.lockUID)
}

func TestForceUnlockIdempotent(t *testing.T) {
	l := NewLocalLocker()

	// Forcing resources nobody holds succeeds and changes nothing.
	ok, err := l.ForceUnlock(&LockArgs{Resources: []string{"x", "y"}})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, l.Dump())
}

func TestForceUnlockTargeted(t *testing.T) {
	l := NewLocalLocker()

	ok, err := l.Lock(writeArgs("u1", "node-1", "a", "b"))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = l.Lock(writeArgs("u2", "node-2", "c"))
	require.NoError(t, err)
	require.True(t, ok)

	// Only u1's resources disappear.
	ok, err = l.ForceUnlock(&LockArgs{UID: "u1"})
	require.NoError(t, err)
	assert.True(t, ok)

	dump := l.Dump()
	assert.NotContains(t, dump, "a")
	assert.NotContains(t, dump, "b")
	assert.Contains(t, dump, "c")
}

func TestForceUnlockTargetedOwnerFilter(t *testing.T) {
	l := NewLocalLocker()

	ok, err := l.Lock(writeArgs("u1", "tenantA", "r1"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.ForceUnlock(&LockArgs{UID: "u1", Owner: "tenantB"})
	require.NoError(t, err)
	assert.True(t, ok, "the walk found the uid even though the owner filter matched nothing")
	assert.Contains(t, l.Dump(), "r1")

	ok, err = l.ForceUnlock(&LockArgs{UID: "u1", Owner: "tenantA"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, l.Dump())
}

func TestForceUnlockUnknownUID(t *testing.T) {
	l := NewLocalLocker()

	ok, err := l.ForceUnlock(&LockArgs{UID: "ghost"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	l := NewLocalLocker()

	_, _ = l.Lock(writeArgs("u1", "node-1", "w1", "w2"))
	_, _ = l.RLock(writeArgs("u2", "node-2", "rd"))

	st, err := l.Stats()
	require.NoError(t, err)
	assert.Equal(t, LockStats{Total: 3, Writes: 2, Reads: 1}, st)
}

func TestDumpIsIndependentSnapshot(t *testing.T) {
	l := NewLocalLocker()

	ok, err := l.Lock(writeArgs("u1", "node-1", "r1"))
	require.NoError(t, err)
	require.True(t, ok)

	dump := l.Dump()
	dump["r1"][0].UID = "tampered"
	delete(dump, "r1")

	fresh := l.Dump()
	require.Contains(t, fresh, "r1")
	assert.Equal(t, "u1", fresh["r1"][0].UID)
}

func TestSelfReport(t *testing.T) {
	l := NewLocalLocker()
	assert.True(t, l.IsOnline())
	assert.True(t, l.IsLocal())
	assert.NoError(t, l.Close())
}

// TestConcurrentAcquisitions hammers one resource from many goroutines and
// checks that exactly one writer at a time ever holds it.
func TestConcurrentAcquisitions(t *testing.T) {
	l := NewLocalLocker()

	const workers = 32
	const rounds = 200

	var wg sync.WaitGroup
	acquired := make([]int, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			uid := fmt.Sprintf("u%d", w)
			for i := 0; i < rounds; i++ {
				ok, err := l.Lock(writeArgs(uid, "node", "contended"))
				if err != nil {
					t.Error(err)
					return
				}
				if !ok {
					continue
				}
				acquired[w]++
				ok, err = l.Unlock(writeArgs(uid, "node", "contended"))
				if err != nil || !ok {
					t.Errorf("unlock of held lock failed: ok=%v err=%v", ok, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	// Fully released at the end and never corrupted in between.
	assert.Empty(t, l.Dump())
	total := 0
	for _, n := range acquired {
		total += n
	}
	assert.Greater(t, total, 0)
}
