package serializer

import (
	"fmt"
	"testing"

	"github.com/quorlock/quorlock/rpc/common"
)

// benchmarkMessages returns a set of messages for targeted benchmarking
func benchmarkMessages() map[string]common.Message {
	// A batch the size a coordinator would lock for a large erasure set
	largeBatch := make([]string, 128)
	for i := range largeBatch {
		largeBatch[i] = fmt.Sprintf("bucket/prefix/object-%04d", i)
	}

	return map[string]common.Message{
		"Empty": {
			MsgType: common.MsgTSuccess,
		},
		"SingleResource": {
			MsgType:   common.MsgTLock,
			Resources: []string{"r"},
			UID:       "7a3bfa28-1c2f-4c89-b1e1-bench",
			Owner:     "node-1",
		},
		"SmallBatch": {
			MsgType:   common.MsgTLock,
			Resources: []string{"bucket/object-1", "bucket/object-2", "bucket/object-3"},
			UID:       "7a3bfa28-1c2f-4c89-b1e1-bench",
			Owner:     "node-1",
			Source:    "coordinator.go:42",
			Quorum:    3,
		},
		"LargeBatch": {
			MsgType:   common.MsgTLock,
			Resources: largeBatch,
			UID:       "7a3bfa28-1c2f-4c89-b1e1-bench",
			Owner:     "node-1",
			Quorum:    3,
		},
		"RefreshRequest": {
			MsgType: common.MsgTRefresh,
			UID:     "7a3bfa28-1c2f-4c89-b1e1-bench",
			Owner:   "node-1",
		},
		"StatsResponse": {
			MsgType: common.MsgTStats,
			Total:   100000,
			Writes:  90000,
			Reads:   10000,
		},
		"CompleteMessage": {
			MsgType:   common.MsgTForceUnlock,
			Resources: []string{"complete-test-resource"},
			UID:       "complete-test-uid",
			Owner:     "complete-test-owner",
			Source:    "complete-test-source",
			Quorum:    5,
			Ok:        true,
			Total:     10,
			Writes:    7,
			Reads:     3,
			Err:       "This is a test error message",
			Meta:      []byte("test-meta-data-for-benchmarking"),
		},
		"ErrorMessage": {
			MsgType: common.MsgTError,
			Err:     "Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua.",
		},
	}
}

// BenchmarkSerialize benchmarks serialization for all implementations with various message types
func BenchmarkSerialize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					_, err := serializer.Serialize(msg)
					if err != nil {
						b.Fatalf("Failed to serialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkDeserialize benchmarks deserialization for all implementations with various message types
func BenchmarkDeserialize(b *testing.B) {
	messages := benchmarkMessages()
	serializedData := make(map[string]map[string][]byte)

	// Pre-serialize all messages with all serializers
	for name, factory := range testSerializers {
		serializer := factory()
		serializedData[name] = make(map[string][]byte)

		for msgName, msg := range messages {
			data, err := serializer.Serialize(msg)
			if err != nil {
				b.Fatalf("Failed to serialize %s with %s: %v", msgName, name, err)
			}
			serializedData[name][msgName] = data
		}
	}

	// Benchmark deserialization
	for name, factory := range testSerializers {
		for msgName := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				data := serializedData[name][msgName]
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					var msg common.Message
					err := serializer.Deserialize(data, &msg)
					if err != nil {
						b.Fatalf("Failed to deserialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkSize measures and reports the serialized size for each message type
func BenchmarkSize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		serializer := factory()

		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				data, err := serializer.Serialize(msg)
				if err != nil {
					b.Fatalf("Failed to serialize: %v", err)
				}

				// Report the size as a custom metric
				b.ReportMetric(float64(len(data)), "bytes")

				// Minimal loop to satisfy benchmark requirements
				for i := 0; i < b.N; i++ {
					_ = data
				}
			})
		}
	}
}
