package client

import (
	"fmt"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/quorlock/quorlock/rpc/common"
	"github.com/quorlock/quorlock/rpc/serializer"
	"github.com/quorlock/quorlock/rpc/transport"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
// Used by the RPCLocker with composition pattern
type rpcClientAdapter struct {
	shardId    uint64
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invokeRPCRequest is a helper function used for all RPC Clients to send requests
// It takes a shard ID, a request message, a transport layer and a serializer as parameters
// It returns a response message and an error if any occurs
// This method also checks if the response is an error response and if the type of the response is the expected type
//
// A response of the expected type that carries an error message is returned
// alongside the error, so callers can still evaluate the Ok field: the lock
// table reports partial results this way (e.g. a batch release that skipped
// read-locked resources).
func invokeRPCRequest(shardId uint64, req *common.Message, transport transport.IRPCClientTransport, serializer serializer.IRPCSerializer) (*common.Message, error) {
	// Serialize the request
	reqBytes, err := serializer.Serialize(*req)
	if err != nil {
		return nil, err
	}

	// Send the request
	respBytes, err := transport.Send(shardId, reqBytes)
	if err != nil {
		return nil, err
	}

	// Deserialize the response
	resp := &common.Message{}
	err = serializer.Deserialize(respBytes, resp)
	if err != nil {
		return nil, fmt.Errorf("RPC LockerClient - Error: %s", err)
	}

	// Check if the response is an error response
	if resp.MsgType == common.MsgTError {
		return nil, fmt.Errorf("RPC LockerClient - Error: %s", resp.Err)
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		return nil, fmt.Errorf("RPC LockerClient - Unexpected message type: %s, expected %s", resp.MsgType, req.MsgType)
	}

	// An operation-level error reported by the lock table
	if resp.Err != "" {
		return resp, fmt.Errorf("%s", resp.Err)
	}

	// Return the response
	return resp, nil
}
