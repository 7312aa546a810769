// Package client implements the RPC client for the distributed lock service.
// It provides an implementation of the locker.ILocker interface that
// communicates with a remote lock server via RPC.
//
// The package focuses on:
//   - Transparent RPC access to a remote lock table
//   - Integration with the transport and serialization layers
//   - Error handling and conversion between RPC and domain errors
//
// Key Components:
//
//   - NewRPCLocker: Factory function that creates a client implementing the
//     locker.ILocker interface. This client forwards all operations to the
//     remote lock server via the configured transport layer.
//
// Usage Example:
//
//	// Configure the client
//	config := common.ClientConfig{
//	  TimeoutSecond: 5,
//	  Transport: common.ClientTransportConfig{
//	    Endpoints:              []string{"localhost:5000"},
//	    RetryCount:             3,
//	    ConnectionsPerEndpoint: 1,
//	  },
//	}
//
//	// Create a locker client
//	lk, _ := client.NewRPCLocker(1, config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//
//	// Acquire and release a lock
//	args := &locker.LockArgs{UID: uuid.NewString(), Resources: []string{"my-resource"}, Owner: "node-1"}
//	if ok, _ := lk.Lock(args); ok {
//	  defer lk.Unlock(args)
//	  // critical section
//	}
//
// Performance Considerations:
//
//   - For applications that frequently send large batches, increasing ConnectionsPerEndpoint
//     can improve throughput by allowing parallel requests.
//
//   - For small messages, a single connection per endpoint is often more efficient due to
//     reduced connection overhead.
//
//   - The choice of serializer significantly affects performance. The binary serializer
//     provides the best performance and smallest payload size.
//
// Thread Safety:
//
//	The client implementation is thread-safe and can be used concurrently from
//	multiple goroutines without additional synchronization.
package client
