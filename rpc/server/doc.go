// Package server implements the RPC server for the distributed lock service.
// It provides the adapter for handling lock table requests, along with the
// core server implementation that manages shards, background maintenance and
// request routing.
//
// The package focuses on:
//   - Server-side RPC request handling for all lock table operations
//   - Adapter pattern to decouple application logic from RPC mechanisms
//   - Shard configuration with one independent lock table per shard
//   - Background expiry sweeps that reclaim locks of crashed clients
//   - Prometheus metrics for requests, table sizes and expired locks
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for all server adapters,
//     with the Handle method that processes incoming requests against a
//     locker.ILocalLocker.
//
//   - NewLockerServerAdapter: Factory function creating the adapter for lock
//     operations, translating RPC requests to locker.ILocalLocker method calls.
//
//   - NewRPCServer: Factory function creating a configured server with the specified
//     transport and serializer mechanisms.
//
// Usage Example:
//
//	// Create server configuration
//	config := common.ServerConfig{
//	  Shards:              []uint64{100, 200},
//	  TimeoutSecond:       5,
//	  LockTTLSecond:       30,
//	  SweepIntervalSecond: 10,
//	  LogLevel:            "info",
//	  Transport: common.ServerTransportConfig{
//	    Endpoint: "0.0.0.0:8080",
//	  },
//	}
//
//	// Create and start the server
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//	  panic(err)
//	}
package server
