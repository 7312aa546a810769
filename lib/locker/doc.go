// Package locker implements the single-node lock authority backing the
// quorum-based distributed locking protocol. Every storage node runs one
// lock table per shard; the coordinator asks a quorum of nodes to grant,
// refresh or release a lock and combines their per-node answers into the
// cluster-wide decision. This package is only concerned with the per-node
// answer: an in-memory table tracking which named resources are write- or
// read-locked, by whom and since when.
//
// Core Functionality:
//   - Atomic multi-resource exclusive acquisition: a batch of resources is
//     locked all-or-nothing, other callers never observe a partial grant
//   - Shared (read) locks on single resources, excluded by writers
//   - UID-scoped releases with an optional owner filter
//   - Heartbeat refresh keeping a holder's lock set alive
//   - A staleness sweep removing holders whose refresh deadline passed
//   - Administrative force-release for crash recovery and operators
//
// Data Structures:
//
//	The table consists of two maps guarded by one mutex. The lock map goes
//	from resource name to its ordered holder records. The reverse index goes
//	from a (uid, batch index) pair to the resource locked at that position,
//	so that Refresh and targeted ForceUnlock - which only receive a UID -
//	can reconstruct a batch in O(batch size) instead of scanning the table.
//	Batch indices are assigned densely from 0, so the whole batch is
//	recovered by probing positions 0, 1, 2, ... until the first miss.
//
// Invariants, upheld by every operation:
//   - A resource is either held by exactly one writer or by any number of
//     readers, never both
//   - A resource with no holders does not appear in the table
//   - A reverse-index slot exists if and only if a matching holder record
//     exists in the lock map
//
// Error Handling:
//
//	Lock contention is never an error: a rejected acquisition returns
//	(false, nil) and the caller owns retry and backoff. Errors of type
//	*Error signal violated caller contracts, such as a resource batch above
//	MaxResourceBatch or a shared release on a write-locked resource. No
//	failure ever leaves the table in an inconsistent state.
//
// Persistence:
//
//	There is none, deliberately. The table lives in process memory and is
//	empty after a restart. Distributed locks are re-acquired by live
//	clients; a node that lost its state simply votes "not held" until they
//	do.
//
// Thread Safety:
//
//	All operations are safe for concurrent use. Each operation holds the
//	table mutex for its full duration, so no caller can observe an
//	intermediate state.
package locker
