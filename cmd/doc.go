// Package cmd implements the command-line interface for the quorlock lock
// service. It provides a hierarchical command structure with operations for
// running the server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - lock: Commands for lock operations (acquire, release, refresh, etc.)
//   - serve: Commands for starting and configuring the quorlock server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See quorlock -help for a list of all commands.
package cmd
