package server

import (
	"testing"

	"github.com/quorlock/quorlock/lib/locker"
	"github.com/quorlock/quorlock/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lockArgs(uid string, resources ...string) *locker.LockArgs {
	return &locker.LockArgs{
		UID:       uid,
		Resources: resources,
		Owner:     "node-1",
		Source:    "adapter_locker_test.go",
	}
}

func TestAdapterNilLocker(t *testing.T) {
	adapter := NewLockerServerAdapter()

	resp := adapter.Handle(common.NewPingRequest(), nil)
	assert.Equal(t, common.MsgTError, resp.MsgType)
	assert.NotEmpty(t, resp.Err)
}

func TestAdapterLockUnlock(t *testing.T) {
	adapter := NewLockerServerAdapter()
	lk := locker.NewLocalLocker()

	// Lock succeeds
	resp := adapter.Handle(common.NewLockRequest(lockArgs("u1", "r1", "r2")), lk)
	require.Equal(t, common.MsgTLock, resp.MsgType)
	assert.True(t, resp.Ok)
	assert.Empty(t, resp.Err)

	// Second lock on the same resources is contended, not an error
	resp = adapter.Handle(common.NewLockRequest(lockArgs("u2", "r1")), lk)
	assert.False(t, resp.Ok)
	assert.Empty(t, resp.Err)

	// Unlock releases
	resp = adapter.Handle(common.NewUnlockRequest(lockArgs("u1", "r1", "r2")), lk)
	require.Equal(t, common.MsgTUnlock, resp.MsgType)
	assert.True(t, resp.Ok)
	assert.Empty(t, resp.Err)
}

func TestAdapterSharedLocks(t *testing.T) {
	adapter := NewLockerServerAdapter()
	lk := locker.NewLocalLocker()

	resp := adapter.Handle(common.NewRLockRequest(lockArgs("u1", "r1")), lk)
	require.True(t, resp.Ok)
	resp = adapter.Handle(common.NewRLockRequest(lockArgs("u2", "r1")), lk)
	require.True(t, resp.Ok)

	// RUnlock on a shared resource works per holder
	resp = adapter.Handle(common.NewRUnlockRequest(lockArgs("u1", "r1")), lk)
	assert.True(t, resp.Ok)
	assert.Empty(t, resp.Err)

	// RUnlock with a batch is a caller-contract violation surfaced as Err
	resp = adapter.Handle(common.NewRUnlockRequest(lockArgs("u2", "r1", "r2")), lk)
	assert.False(t, resp.Ok)
	assert.NotEmpty(t, resp.Err)
}

func TestAdapterRefreshAndForceUnlock(t *testing.T) {
	adapter := NewLockerServerAdapter()
	lk := locker.NewLocalLocker()

	resp := adapter.Handle(common.NewLockRequest(lockArgs("u1", "r1")), lk)
	require.True(t, resp.Ok)

	resp = adapter.Handle(common.NewRefreshRequest(lockArgs("u1")), lk)
	assert.Equal(t, common.MsgTRefresh, resp.MsgType)
	assert.True(t, resp.Ok)

	// Targeted force unlock via UID
	resp = adapter.Handle(common.NewForceUnlockRequest(&locker.LockArgs{UID: "u1"}), lk)
	assert.True(t, resp.Ok)

	// The heartbeat now reports the lock gone
	resp = adapter.Handle(common.NewRefreshRequest(lockArgs("u1")), lk)
	assert.False(t, resp.Ok)
}

func TestAdapterStatsAndPing(t *testing.T) {
	adapter := NewLockerServerAdapter()
	lk := locker.NewLocalLocker()

	resp := adapter.Handle(common.NewLockRequest(lockArgs("u1", "w")), lk)
	require.True(t, resp.Ok)
	resp = adapter.Handle(common.NewRLockRequest(lockArgs("u2", "r")), lk)
	require.True(t, resp.Ok)

	resp = adapter.Handle(common.NewStatsRequest(), lk)
	require.Equal(t, common.MsgTStats, resp.MsgType)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 1, resp.Writes)
	assert.Equal(t, 1, resp.Reads)

	resp = adapter.Handle(common.NewPingRequest(), lk)
	require.Equal(t, common.MsgTPing, resp.MsgType)
	assert.True(t, resp.Ok)
}

func TestAdapterUnsupportedMessageType(t *testing.T) {
	adapter := NewLockerServerAdapter()
	lk := locker.NewLocalLocker()

	resp := adapter.Handle(&common.Message{MsgType: common.MsgTCustom}, lk)
	assert.Equal(t, common.MsgTError, resp.MsgType)
	assert.NotEmpty(t, resp.Err)
}
