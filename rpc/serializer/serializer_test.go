package serializer

import (
	"reflect"
	"testing"

	"github.com/quorlock/quorlock/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Lock request
		{
			MsgType:   common.MsgTLock,
			Resources: []string{"bucket/object-1", "bucket/object-2"},
			UID:       "7a3bfa28-1c2f-4c89-b1e1-test",
			Owner:     "node-1",
			Source:    "coordinator.go:42",
			Quorum:    3,
		},

		// Lock response
		{
			MsgType: common.MsgTLock,
			Ok:      true,
		},

		// Refresh request (no resources)
		{
			MsgType: common.MsgTRefresh,
			UID:     "7a3bfa28-1c2f-4c89-b1e1-test",
			Owner:   "node-1",
		},

		// Stats response
		{
			MsgType: common.MsgTStats,
			Total:   42,
			Writes:  40,
			Reads:   2,
		},

		// Error response
		{
			MsgType: common.MsgTError,
			Err:     "test error message",
		},

		// Message with all fields filled
		{
			MsgType:   common.MsgTForceUnlock,
			Resources: []string{"r1", "r2", "r3"},
			UID:       "test-uid",
			Owner:     "test-owner",
			Source:    "test-source",
			Quorum:    5,
			Ok:        true,
			Total:     10,
			Writes:    7,
			Reads:     3,
			Err:       "partial failure",
			Meta:      []byte("test-meta-data"),
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			// Test each message type (don't test for MsgTUnknown since this should raise an error)
			for msgType := common.MsgTSuccess; msgType <= common.MsgTCustom; msgType++ {
				msg := common.Message{MsgType: msgType}

				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Check type
				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s",
						msgType.String(), result.MsgType.String())
				}
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	// Test cases for empty or zero values
	testCases := []struct {
		name string
		msg  common.Message
	}{
		{
			name: "Empty message",
			msg:  common.Message{},
		},
		{
			name: "Message with empty strings and zero values",
			msg: common.Message{
				MsgType: common.MsgTLock,
				UID:     "",
				Owner:   "",
				Source:  "",
				Quorum:  0,
				Ok:      false,
				Err:     "",
			},
		},
		{
			name: "Message with empty strings but Ok=true",
			msg: common.Message{
				MsgType: common.MsgTUnlock,
				UID:     "",
				Ok:      true,
			},
		},
		{
			name: "Message with a single empty resource name",
			msg: common.Message{
				MsgType:   common.MsgTLock,
				Resources: []string{""},
				UID:       "u1",
			},
		},
		{
			name: "Message with empty meta slice but not nil",
			msg: common.Message{
				MsgType: common.MsgTCustom,
				Meta:    []byte{},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Serialize
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			// Deserialize
			var result common.Message
			err = serializer.Deserialize(data, &result)
			if err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			// Verify scalar fields
			if tc.msg.MsgType != result.MsgType {
				t.Errorf("MsgType mismatch: expected %v, got %v", tc.msg.MsgType, result.MsgType)
			}
			if tc.msg.UID != result.UID {
				t.Errorf("UID mismatch: expected '%s', got '%s'", tc.msg.UID, result.UID)
			}
			if tc.msg.Owner != result.Owner {
				t.Errorf("Owner mismatch: expected '%s', got '%s'", tc.msg.Owner, result.Owner)
			}
			if tc.msg.Source != result.Source {
				t.Errorf("Source mismatch: expected '%s', got '%s'", tc.msg.Source, result.Source)
			}
			if tc.msg.Quorum != result.Quorum {
				t.Errorf("Quorum mismatch: expected %d, got %d", tc.msg.Quorum, result.Quorum)
			}
			if tc.msg.Ok != result.Ok {
				t.Errorf("Ok mismatch: expected %v, got %v", tc.msg.Ok, result.Ok)
			}
			if tc.msg.Err != result.Err {
				t.Errorf("Err mismatch: expected '%s', got '%s'", tc.msg.Err, result.Err)
			}

			// Verify resources element by element
			if len(tc.msg.Resources) != len(result.Resources) {
				t.Errorf("Resources length mismatch: expected %d, got %d",
					len(tc.msg.Resources), len(result.Resources))
			} else {
				for i := range tc.msg.Resources {
					if tc.msg.Resources[i] != result.Resources[i] {
						t.Errorf("Resources mismatch at index %d: expected '%s', got '%s'",
							i, tc.msg.Resources[i], result.Resources[i])
					}
				}
			}

			// Special handling for the meta byte slice that may be nil or empty
			if (tc.msg.Meta == nil) != (result.Meta == nil) {
				t.Errorf("Meta nil/non-nil mismatch: expected %v, got %v", tc.msg.Meta, result.Meta)
			} else if tc.msg.Meta != nil && result.Meta != nil {
				if len(tc.msg.Meta) != len(result.Meta) {
					t.Errorf("Meta length mismatch: expected %d, got %d", len(tc.msg.Meta), len(result.Meta))
				} else {
					for i := 0; i < len(tc.msg.Meta); i++ {
						if tc.msg.Meta[i] != result.Meta[i] {
							t.Errorf("Meta content mismatch at index %d", i)
							break
						}
					}
				}
			}
		})
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{1, 0}, // Message type plus one flag byte, second flag byte missing
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{1, 0, 0}, // Message type 1, no flags
			expectError: false,
		},
		{
			name: "Invalid length for resource",
			// Claims one resource with length 5 but only 3 bytes provided
			data:        []byte{1, 0, 1, 0, 0, 0, 1, 0, 0, 0, 5, 'a', 'b', 'c'},
			expectError: true,
		},
		{
			name:        "Invalid length for uid",
			data:        []byte{1, 0, 2, 0, 0, 0, 10}, // Claims uid length 10 but no bytes provided
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}
