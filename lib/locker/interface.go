package locker

import (
	"fmt"
	"time"
)

// MaxResourceBatch is the maximum number of resources a single Lock, Unlock or
// ForceUnlock call may name. Exceeding it is a caller bug and reported as an
// internal error, not as lock contention.
const MaxResourceBatch = 1000

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// LockArgs is the uniform request shape for all locker operations.
type LockArgs struct {
	// UID is the unique ID of one logical lock request. It is shared across
	// all resources of a multi-resource batch and is the handle used by
	// Refresh and targeted ForceUnlock.
	UID string `json:"uid"`

	// Resources contains the single or multiple entries to be locked or
	// unlocked. Order matters: the position of a resource in this list is
	// its batch index.
	Resources []string `json:"resources"`

	// Owner identifies the logical owner (e.g. the requesting node or
	// tenant) on whose behalf the lock is held. Releases can be scoped to
	// an owner; an empty owner filter matches any holder.
	Owner string `json:"owner"`

	// Source is a free-text diagnostic hint supplied by the caller, usually
	// the call site. It has no semantic effect.
	Source string `json:"source,omitempty"`

	// Quorum is the number of cluster nodes the coordinator requires for
	// this lock. It is recorded for bookkeeping only and never evaluated
	// by the locker itself.
	Quorum int `json:"quorum,omitempty"`
}

// LockStats summarizes the state of a lock table.
type LockStats struct {
	Total  int `json:"total"`  // number of locked resource keys
	Writes int `json:"writes"` // keys held by a writer
	Reads  int `json:"reads"`  // keys held by one or more readers
}

// ILocker is the interface every lock authority implements, be it the local
// in-memory table or an RPC stub talking to a remote node. All methods return
// a boolean outcome plus an error: contention is reported as (false, nil),
// while a non-nil error always signals a violated caller contract or a
// transport failure, never an expected lock outcome.
type ILocker interface {
	// Lock atomically write-locks all resources in args.Resources.
	// The acquisition is all-or-nothing: if any resource is currently held
	// (shared or exclusive), no resource is locked and false is returned.
	Lock(args *LockArgs) (ok bool, err error)

	// Unlock releases the write locks on args.Resources held by args.UID.
	// An owner filter in args.Owner restricts which holders match; an empty
	// owner matches any. Resources that are read-locked are skipped and
	// reported in the returned error, without aborting the remaining
	// resources. Returns true if at least one resource was released.
	Unlock(args *LockArgs) (ok bool, err error)

	// RLock read-locks exactly one resource. Supplying more than one
	// resource is an internal error. Returns false if the resource is
	// write-locked.
	RLock(args *LockArgs) (ok bool, err error)

	// RUnlock releases a read lock on exactly one resource. Calling it on a
	// write-locked resource is an internal error.
	RUnlock(args *LockArgs) (ok bool, err error)

	// Refresh confirms liveness of the lock set held by args.UID and
	// extends the staleness deadline of every record still present.
	// Returns false if the UID holds nothing.
	Refresh(args *LockArgs) (ok bool, err error)

	// ForceUnlock administratively removes locks. With an empty args.UID
	// every holder of every named resource is removed unconditionally.
	// With a UID the removal is scoped to that UID (and optional owner)
	// and resources are discovered through the UID itself.
	ForceUnlock(args *LockArgs) (ok bool, err error)

	// Stats returns aggregate counts over the lock table.
	Stats() (LockStats, error)

	// IsOnline reports whether the locker can serve requests.
	// Local lockers are always online.
	IsOnline() bool

	// IsLocal reports whether the locker is backed by this process.
	IsLocal() bool

	// Close releases any resources held by the locker.
	Close() error
}

// ILocalLocker extends ILocker with the node-local maintenance surface that
// is never exposed over RPC: the staleness sweep driven by the server's
// scheduler and a diagnostic dump of the table.
type ILocalLocker interface {
	ILocker

	// Expire removes every holder record whose last refresh is older than
	// ttl and returns the number of removed records. Resources left without
	// holders are dropped from the table.
	Expire(ttl time.Duration) (removed int)

	// Dump returns a deep, independent snapshot of the lock table.
	Dump() map[string][]LockRequesterInfo
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the error type returned for caller-contract violations. It wraps
// a return code (of type RetCode) and a descriptive message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCInternalError:
		errorCode = "InternalError"
	case RetCInvalidOperation:
		errorCode = "InvalidOperation"
	default:
		errorCode = "Unknown"
	}

	return fmt.Sprintf("LockerError (code %s): %s", errorCode, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess          RetCode = iota // 0: Operation executed successfully.
	RetCInternalError                   // 1: Caller violated the operation contract (e.g. batch too large).
	RetCInvalidOperation                // 2: Operation does not apply to the current lock mode.
)
