package locker

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// --------------------------------------------------------------------------
// Data Model
// --------------------------------------------------------------------------

// LockRequesterInfo is one holder record: a single (resource, holder) pair.
// A resource's holder list is either exactly one writer record or any number
// of reader records, never a mix.
type LockRequesterInfo struct {
	Name            string    `json:"name"`             // the locked resource
	Writer          bool      `json:"writer"`           // true for an exclusive holder
	UID             string    `json:"uid"`              // the acquisition request this record belongs to
	Owner           string    `json:"owner"`            // logical owner, used to scope releases
	Source          string    `json:"source,omitempty"` // caller-supplied diagnostic string
	Group           bool      `json:"group"`            // true if acquired as part of a multi-resource batch
	Quorum          int       `json:"quorum"`           // recorded for the coordinator, never evaluated here
	Index           int       `json:"index"`            // position within the original batch
	AcquiredAt      time.Time `json:"acquired_at"`
	LastRefreshedAt time.Time `json:"last_refreshed_at"`
}

// uidKey is the composite key of the reverse index: one lock request (UID)
// plus a batch position. A struct key rather than a concatenated string, so
// UIDs that end in digits cannot collide with neighbouring indices.
type uidKey struct {
	uid string
	idx int
}

// localLocker is the in-memory lock table of one node. Both maps are guarded
// by a single mutex so every operation is one atomic state transition over
// the combined state. Nothing is persisted: on restart the table is empty and
// clients re-acquire their locks.
type localLocker struct {
	mu      sync.Mutex
	lockMap map[string][]LockRequesterInfo
	lockUID map[uidKey]string
}

// NewLocalLocker creates a new, empty lock table.
func NewLocalLocker() ILocalLocker {
	return &localLocker{
		lockMap: make(map[string][]LockRequesterInfo),
		lockUID: make(map[uidKey]string),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see locker/interface.go)
// --------------------------------------------------------------------------

func (l *localLocker) Lock(args *LockArgs) (bool, error) {
	if len(args.Resources) > MaxResourceBatch {
		return false, NewError(RetCInternalError,
			fmt.Sprintf("Lock called with more than %d resources", MaxResourceBatch))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// All-or-nothing: a single held resource rejects the whole batch.
	if !l.canTakeLock(args.Resources) {
		return false, nil
	}

	now := time.Now()
	for idx, resource := range args.Resources {
		l.lockMap[resource] = []LockRequesterInfo{{
			Name:            resource,
			Writer:          true,
			UID:             args.UID,
			Owner:           args.Owner,
			Source:          args.Source,
			Group:           len(args.Resources) > 1,
			Quorum:          args.Quorum,
			Index:           idx,
			AcquiredAt:      now,
			LastRefreshedAt: now,
		}}
		l.lockUID[uidKey{args.UID, idx}] = resource
	}

	return true, nil
}

func (l *localLocker) Unlock(args *LockArgs) (bool, error) {
	if len(args.Resources) > MaxResourceBatch {
		return false, NewError(RetCInternalError,
			fmt.Sprintf("Unlock called with more than %d resources", MaxResourceBatch))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	reply := false
	var readLocked []string

	for _, resource := range args.Resources {
		lris, ok := l.lockMap[resource]
		if !ok {
			continue
		}

		// Releasing a write lock on a read-locked resource is a caller bug.
		// Record it and keep processing the rest of the batch.
		if !isWriteLock(lris) {
			readLocked = append(readLocked, resource)
			continue
		}

		if l.removeEntry(resource, args.UID, args.Owner, lris) {
			reply = true
		}
	}

	if len(readLocked) > 0 {
		return reply, NewError(RetCInvalidOperation,
			fmt.Sprintf("unlock attempted on read-locked resources: %s", strings.Join(readLocked, ", ")))
	}

	return reply, nil
}

func (l *localLocker) RLock(args *LockArgs) (bool, error) {
	if len(args.Resources) != 1 {
		return false, NewError(RetCInternalError, "RLock called with more than one resource")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	resource := args.Resources[0]
	now := time.Now()
	lri := LockRequesterInfo{
		Name:            resource,
		Writer:          false,
		UID:             args.UID,
		Owner:           args.Owner,
		Source:          args.Source,
		Quorum:          args.Quorum,
		Index:           0,
		AcquiredAt:      now,
		LastRefreshedAt: now,
	}

	if lris, ok := l.lockMap[resource]; ok {
		if isWriteLock(lris) {
			return false, nil
		}
		l.lockMap[resource] = append(lris, lri)
	} else {
		l.lockMap[resource] = []LockRequesterInfo{lri}
	}
	l.lockUID[uidKey{args.UID, 0}] = resource

	return true, nil
}

func (l *localLocker) RUnlock(args *LockArgs) (bool, error) {
	if len(args.Resources) != 1 {
		return false, NewError(RetCInternalError, "RUnlock called with more than one resource")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	resource := args.Resources[0]
	lris, ok := l.lockMap[resource]
	if !ok {
		return false, nil
	}

	if isWriteLock(lris) {
		return false, NewError(RetCInvalidOperation,
			fmt.Sprintf("runlock attempted on a write-locked resource: %s", resource))
	}

	return l.removeEntry(resource, args.UID, args.Owner, lris), nil
}

func (l *localLocker) Refresh(args *LockArgs) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	resource, ok := l.lockUID[uidKey{args.UID, 0}]
	if !ok {
		// The UID holds nothing on this node.
		return false, nil
	}

	now := time.Now()
	idx := 0
	for {
		lris, ok := l.lockMap[resource]
		if !ok {
			// The lock at this batch position was released or expired
			// independently. Drop the stale index slot and report whether
			// anything before it was confirmed alive.
			delete(l.lockUID, uidKey{args.UID, idx})
			return idx > 0, nil
		}

		// Extend the staleness deadline of every record this UID holds on
		// the resource, so an actively heartbeating client never falls to
		// the expiry sweep.
		for i := range lris {
			if lris[i].UID == args.UID {
				lris[i].LastRefreshedAt = now
			}
		}

		idx++
		resource, ok = l.lockUID[uidKey{args.UID, idx}]
		if !ok {
			// End of the batch chain: everything resolved.
			return true, nil
		}
	}
}

func (l *localLocker) ForceUnlock(args *LockArgs) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Unconditional mode: clear every holder of every named resource,
	// no matter who holds it. Idempotent by construction.
	if args.UID == "" {
		for _, resource := range args.Resources {
			lris, ok := l.lockMap[resource]
			if !ok {
				continue
			}
			for _, lri := range lris {
				delete(l.lockUID, uidKey{lri.UID, lri.Index})
			}
			delete(l.lockMap, resource)
		}
		return true, nil
	}

	// Targeted mode: discover the UID's resources through the reverse
	// index, collect all removals, apply them after the walk.
	var (
		idx            int
		removeKeys     []uidKey
		emptyResources []string
	)

	for {
		key := uidKey{args.UID, idx}
		resource, ok := l.lockUID[key]
		if !ok {
			break
		}

		lris, ok := l.lockMap[resource]
		if !ok {
			// Stale slot: the resource is no longer locked. Clean it up and
			// keep walking, later batch positions may still resolve.
			removeKeys = append(removeKeys, key)
			idx++
			continue
		}

		kept := make([]LockRequesterInfo, 0, len(lris))
		for _, lri := range lris {
			if lri.UID == args.UID && (args.Owner == "" || lri.Owner == args.Owner) {
				removeKeys = append(removeKeys, uidKey{lri.UID, lri.Index})
				continue
			}
			kept = append(kept, lri)
		}
		if len(kept) == 0 {
			emptyResources = append(emptyResources, resource)
		} else {
			l.lockMap[resource] = kept
		}
		idx++
	}

	for _, resource := range emptyResources {
		delete(l.lockMap, resource)
	}
	for _, key := range removeKeys {
		delete(l.lockUID, key)
	}

	return idx > 0, nil
}

func (l *localLocker) Expire(ttl time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	removed := 0

	for resource, lris := range l.lockMap {
		kept := make([]LockRequesterInfo, 0, len(lris))
		for _, lri := range lris {
			if now.Sub(lri.LastRefreshedAt) > ttl {
				delete(l.lockUID, uidKey{lri.UID, lri.Index})
				removed++
				continue
			}
			kept = append(kept, lri)
		}
		if len(kept) == 0 {
			delete(l.lockMap, resource)
		} else {
			l.lockMap[resource] = kept
		}
	}

	return removed
}

func (l *localLocker) Stats() (LockStats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := LockStats{Total: len(l.lockMap)}
	for _, lris := range l.lockMap {
		if len(lris) == 0 {
			continue
		}
		// Invariant: a key is either writer-held or reader-held, so the
		// first record determines the mode of the whole key.
		if lris[0].Writer {
			st.Writes++
		} else {
			st.Reads++
		}
	}

	return st, nil
}

func (l *localLocker) Dump() map[string][]LockRequesterInfo {
	l.mu.Lock()
	defer l.mu.Unlock()

	dump := make(map[string][]LockRequesterInfo, len(l.lockMap))
	for resource, lris := range l.lockMap {
		cp := make([]LockRequesterInfo, len(lris))
		copy(cp, lris)
		dump[resource] = cp
	}

	return dump
}

func (l *localLocker) IsOnline() bool {
	return true
}

func (l *localLocker) IsLocal() bool {
	return true
}

func (l *localLocker) Close() error {
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// canTakeLock reports whether every named resource is currently unheld.
// Caller must hold l.mu.
func (l *localLocker) canTakeLock(resources []string) bool {
	for _, resource := range resources {
		if _, ok := l.lockMap[resource]; ok {
			return false
		}
	}
	return true
}

// removeEntry removes every record on resource matching uid and the owner
// filter (empty owner matches any), cleans the corresponding reverse-index
// slots and deletes the resource key when its holder list becomes empty.
// Returns true if at least one record was removed. Caller must hold l.mu.
func (l *localLocker) removeEntry(resource, uid, owner string, lris []LockRequesterInfo) bool {
	removed := false

	kept := make([]LockRequesterInfo, 0, len(lris))
	for _, lri := range lris {
		if lri.UID == uid && (owner == "" || lri.Owner == owner) {
			delete(l.lockUID, uidKey{lri.UID, lri.Index})
			removed = true
			continue
		}
		kept = append(kept, lri)
	}

	if len(kept) == 0 {
		delete(l.lockMap, resource)
	} else {
		l.lockMap[resource] = kept
	}

	return removed
}
