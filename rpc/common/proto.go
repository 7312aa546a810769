package common

import (
	"encoding/json"
	"fmt"

	"github.com/quorlock/quorlock/lib/locker"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// Lock request fields (see locker.LockArgs)
	Resources []string `json:"resources,omitempty"` // Used for: Lock, Unlock, RLock, RUnlock, ForceUnlock
	UID       string   `json:"uid,omitempty"`       // Used for: all lock operations except Stats/Ping
	Owner     string   `json:"owner,omitempty"`     // Used for: all lock operations except Stats/Ping
	Source    string   `json:"source,omitempty"`    // Used for: Lock, RLock
	Quorum    int      `json:"quorum,omitempty"`    // Used for: Lock, RLock

	// Response only fields
	Ok     bool   `json:"ok,omitempty"`     // Used for: all lock operation responses
	Total  int    `json:"total,omitempty"`  // Used for: Stats responses
	Writes int    `json:"writes,omitempty"` // Used for: Stats responses
	Reads  int    `json:"reads,omitempty"`  // Used for: Stats responses
	Err    string `json:"err,omitempty"`    // Empty if no error, otherwise contains the error message

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Unused, can be used for additional Adapters
}

// LockArgs reassembles the locker.LockArgs carried by a lock request message.
func (m *Message) LockArgs() *locker.LockArgs {
	return &locker.LockArgs{
		UID:       m.UID,
		Resources: m.Resources,
		Owner:     m.Owner,
		Source:    m.Source,
		Quorum:    m.Quorum,
	}
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// newLockOpRequest is the shared factory for all messages that carry a full
// set of lock arguments.
func newLockOpRequest(msgType MessageType, args *locker.LockArgs) *Message {
	return &Message{
		MsgType:   msgType,
		Resources: args.Resources,
		UID:       args.UID,
		Owner:     args.Owner,
		Source:    args.Source,
		Quorum:    args.Quorum,
	}
}

// newLockOpResponse is the shared factory for all (ok, err) responses.
func newLockOpResponse(msgType MessageType, ok bool, err error) *Message {
	msg := &Message{
		MsgType: msgType,
		Ok:      ok,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewLockRequest creates a new Lock request
func NewLockRequest(args *locker.LockArgs) *Message {
	return newLockOpRequest(MsgTLock, args)
}

// NewLockResponse creates a new Lock response
func NewLockResponse(ok bool, err error) *Message {
	return newLockOpResponse(MsgTLock, ok, err)
}

// NewUnlockRequest creates a new Unlock request
func NewUnlockRequest(args *locker.LockArgs) *Message {
	return newLockOpRequest(MsgTUnlock, args)
}

// NewUnlockResponse creates a new Unlock response
func NewUnlockResponse(ok bool, err error) *Message {
	return newLockOpResponse(MsgTUnlock, ok, err)
}

// NewRLockRequest creates a new RLock request
func NewRLockRequest(args *locker.LockArgs) *Message {
	return newLockOpRequest(MsgTRLock, args)
}

// NewRLockResponse creates a new RLock response
func NewRLockResponse(ok bool, err error) *Message {
	return newLockOpResponse(MsgTRLock, ok, err)
}

// NewRUnlockRequest creates a new RUnlock request
func NewRUnlockRequest(args *locker.LockArgs) *Message {
	return newLockOpRequest(MsgTRUnlock, args)
}

// NewRUnlockResponse creates a new RUnlock response
func NewRUnlockResponse(ok bool, err error) *Message {
	return newLockOpResponse(MsgTRUnlock, ok, err)
}

// NewRefreshRequest creates a new Refresh request
func NewRefreshRequest(args *locker.LockArgs) *Message {
	return newLockOpRequest(MsgTRefresh, args)
}

// NewRefreshResponse creates a new Refresh response
func NewRefreshResponse(ok bool, err error) *Message {
	return newLockOpResponse(MsgTRefresh, ok, err)
}

// NewForceUnlockRequest creates a new ForceUnlock request
func NewForceUnlockRequest(args *locker.LockArgs) *Message {
	return newLockOpRequest(MsgTForceUnlock, args)
}

// NewForceUnlockResponse creates a new ForceUnlock response
func NewForceUnlockResponse(ok bool, err error) *Message {
	return newLockOpResponse(MsgTForceUnlock, ok, err)
}

// NewStatsRequest creates a new Stats request
func NewStatsRequest() *Message {
	return &Message{
		MsgType: MsgTStats,
	}
}

// NewStatsResponse creates a new Stats response
func NewStatsResponse(stats locker.LockStats, err error) *Message {
	msg := &Message{
		MsgType: MsgTStats,
		Total:   stats.Total,
		Writes:  stats.Writes,
		Reads:   stats.Reads,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewPingRequest creates a new Ping request
func NewPingRequest() *Message {
	return &Message{
		MsgType: MsgTPing,
	}
}

// NewPingResponse creates a new Ping response
func NewPingResponse(ok bool, err error) *Message {
	return newLockOpResponse(MsgTPing, ok, err)
}

// NewCustomRequest creates a new Custom request
func NewCustomRequest(meta []byte) *Message {
	return &Message{
		MsgType: MsgTCustom,
		Meta:    meta,
	}
}

// NewCustomResponse creates a new Custom response
func NewCustomResponse(meta []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTCustom,
		Meta:    meta,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTLock:
		return "lock"
	case MsgTUnlock:
		return "unlock"
	case MsgTRLock:
		return "rlock"
	case MsgTRUnlock:
		return "runlock"
	case MsgTRefresh:
		return "refresh"
	case MsgTForceUnlock:
		return "forceUnlock"
	case MsgTStats:
		return "stats"
	case MsgTPing:
		return "ping"
	case MsgTCustom:
		return "custom"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	// Convert string back to MessageType
	switch s {
	case "lock":
		*t = MsgTLock
	case "unlock":
		*t = MsgTUnlock
	case "rlock":
		*t = MsgTRLock
	case "runlock":
		*t = MsgTRUnlock
	case "refresh":
		*t = MsgTRefresh
	case "forceUnlock":
		*t = MsgTForceUnlock
	case "stats":
		*t = MsgTStats
	case "ping":
		*t = MsgTPing
	case "custom":
		*t = MsgTCustom
	case "error":
		*t = MsgTError
	case "success":
		*t = MsgTSuccess
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// ILocker operations

	MsgTLock        // Write-lock a batch of resources
	MsgTUnlock      // Release write locks
	MsgTRLock       // Read-lock a single resource
	MsgTRUnlock     // Release a read lock
	MsgTRefresh     // Heartbeat a lock set
	MsgTForceUnlock // Administratively remove locks
	MsgTStats       // Aggregate lock table counts
	MsgTPing        // Liveness probe

	// Custom operations

	MsgTCustom // Custom operation type
)
