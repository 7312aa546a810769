package client

import (
	"github.com/quorlock/quorlock/lib/locker"
	"github.com/quorlock/quorlock/rpc/common"
	"github.com/quorlock/quorlock/rpc/serializer"
	"github.com/quorlock/quorlock/rpc/transport"
)

// NewRPCLocker creates a new RPC ILocker talking to the lock table of one shard
// The function takes a shard ID, a config, a transport and a serializer as parameters
// It returns a locker.ILocker and an error
func NewRPCLocker(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (locker.ILocker, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	// Create a new RPC locker
	l := rpcLocker{
		rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}

	// Return the RPC locker
	return &l, nil
}

type rpcLocker struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the locker package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcLocker) Lock(args *locker.LockArgs) (ok bool, err error) {
	return i.invokeLockOp(common.NewLockRequest(args))
}

func (i *rpcLocker) Unlock(args *locker.LockArgs) (ok bool, err error) {
	return i.invokeLockOp(common.NewUnlockRequest(args))
}

func (i *rpcLocker) RLock(args *locker.LockArgs) (ok bool, err error) {
	return i.invokeLockOp(common.NewRLockRequest(args))
}

func (i *rpcLocker) RUnlock(args *locker.LockArgs) (ok bool, err error) {
	return i.invokeLockOp(common.NewRUnlockRequest(args))
}

func (i *rpcLocker) Refresh(args *locker.LockArgs) (ok bool, err error) {
	return i.invokeLockOp(common.NewRefreshRequest(args))
}

func (i *rpcLocker) ForceUnlock(args *locker.LockArgs) (ok bool, err error) {
	return i.invokeLockOp(common.NewForceUnlockRequest(args))
}

func (i *rpcLocker) Stats() (locker.LockStats, error) {
	resp, err := invokeRPCRequest(i.shardId, common.NewStatsRequest(), i.transport, i.serializer)
	if err != nil {
		return locker.LockStats{}, err
	}
	return locker.LockStats{
		Total:  resp.Total,
		Writes: resp.Writes,
		Reads:  resp.Reads,
	}, nil
}

func (i *rpcLocker) IsOnline() bool {
	resp, err := invokeRPCRequest(i.shardId, common.NewPingRequest(), i.transport, i.serializer)
	if err != nil {
		Logger.Debugf("ping to shard %d failed: %v", i.shardId, err)
		return false
	}
	return resp.Ok
}

func (i *rpcLocker) IsLocal() bool {
	return false
}

func (i *rpcLocker) Close() error {
	return i.transport.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// invokeLockOp sends a lock operation request and unwraps the (ok, err) pair.
// A response carrying both is passed through as-is, partial outcomes included.
func (i *rpcLocker) invokeLockOp(req *common.Message) (bool, error) {
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if resp == nil {
		return false, err
	}
	return resp.Ok, err
}
