package server

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
	"github.com/quorlock/quorlock/lib/locker"
	"github.com/quorlock/quorlock/rpc/common"
)

// NewLockerServerAdapter creates the adapter that translates RPC messages
// into calls on a node-local lock table.
func NewLockerServerAdapter() IRPCServerAdapter {
	return &lockerServerAdapter{}
}

type lockerServerAdapter struct{}

func (adapter *lockerServerAdapter) Handle(req *common.Message, lk locker.ILocalLocker) (resp *common.Message) {

	// Check for nil locker
	if lk == nil {
		return common.NewErrorResponse("handler: locker is nil")
	}

	// Count every request by operation
	metrics.GetOrCreateCounter(fmt.Sprintf(`quorlock_requests_total{op=%q}`, req.MsgType.String())).Inc()

	// Handle different message types
	switch req.MsgType {
	case common.MsgTLock:
		ok, err := lk.Lock(req.LockArgs())
		return common.NewLockResponse(ok, err)
	case common.MsgTUnlock:
		ok, err := lk.Unlock(req.LockArgs())
		return common.NewUnlockResponse(ok, err)
	case common.MsgTRLock:
		ok, err := lk.RLock(req.LockArgs())
		return common.NewRLockResponse(ok, err)
	case common.MsgTRUnlock:
		ok, err := lk.RUnlock(req.LockArgs())
		return common.NewRUnlockResponse(ok, err)
	case common.MsgTRefresh:
		ok, err := lk.Refresh(req.LockArgs())
		return common.NewRefreshResponse(ok, err)
	case common.MsgTForceUnlock:
		ok, err := lk.ForceUnlock(req.LockArgs())
		return common.NewForceUnlockResponse(ok, err)
	case common.MsgTStats:
		stats, err := lk.Stats()
		return common.NewStatsResponse(stats, err)
	case common.MsgTPing:
		return common.NewPingResponse(lk.IsOnline(), nil)
	default:
		return common.NewErrorResponse(fmt.Sprintf("RPC LockerAdapter - Unsupported message type: %s", req.MsgType))
	}
}
