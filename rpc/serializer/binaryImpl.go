package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/quorlock/quorlock/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasResources uint16 = 1 << 0
	hasUID       uint16 = 1 << 1
	hasOwner     uint16 = 1 << 2
	hasSource    uint16 = 1 << 3
	hasQuorum    uint16 = 1 << 4
	hasOk        uint16 = 1 << 5
	hasTotal     uint16 = 1 << 6
	hasWrites    uint16 = 1 << 7
	hasReads     uint16 = 1 << 8
	hasErr       uint16 = 1 << 9
	hasMeta      uint16 = 1 << 10
)

// headerSize is 1 byte for MsgType + 2 bytes for the flags
const headerSize = 3

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Calculate total size needed
	totalSize := b.sizeBytes(msg)
	result := make([]byte, totalSize)

	// Write message type
	result[0] = byte(msg.MsgType)

	// Initialize flags
	var flags uint16 = 0

	// Set position for writing
	pos := headerSize

	// writeString encodes a length-prefixed string at the current position
	writeString := func(s string) {
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(s)))
		pos += 4
		copy(result[pos:pos+len(s)], s)
		pos += len(s)
	}

	// writeUint32 encodes a fixed-width integer at the current position
	writeUint32 := func(v int) {
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(v))
		pos += 4
	}

	// Handle Resources
	if len(msg.Resources) > 0 {
		flags |= hasResources

		// Write resource count, then each resource length-prefixed
		writeUint32(len(msg.Resources))
		for _, resource := range msg.Resources {
			writeString(resource)
		}
	}

	// Handle UID
	if msg.UID != "" {
		flags |= hasUID
		writeString(msg.UID)
	}

	// Handle Owner
	if msg.Owner != "" {
		flags |= hasOwner
		writeString(msg.Owner)
	}

	// Handle Source
	if msg.Source != "" {
		flags |= hasSource
		writeString(msg.Source)
	}

	// Handle Quorum
	if msg.Quorum > 0 {
		flags |= hasQuorum
		writeUint32(msg.Quorum)
	}

	// Handle Ok
	if msg.Ok {
		flags |= hasOk
		result[pos] = 1
		pos += 1
	}

	// Handle Total
	if msg.Total > 0 {
		flags |= hasTotal
		writeUint32(msg.Total)
	}

	// Handle Writes
	if msg.Writes > 0 {
		flags |= hasWrites
		writeUint32(msg.Writes)
	}

	// Handle Reads
	if msg.Reads > 0 {
		flags |= hasReads
		writeUint32(msg.Reads)
	}

	// Handle Err
	if msg.Err != "" {
		flags |= hasErr
		writeString(msg.Err)
	}

	// Handle Meta
	if msg.Meta != nil {
		flags |= hasMeta
		writeUint32(len(msg.Meta))
		if len(msg.Meta) > 0 {
			copy(result[pos:pos+len(msg.Meta)], msg.Meta)
			pos += len(msg.Meta)
		}
	}

	// Set flags after knowing which fields are present
	binary.BigEndian.PutUint16(result[1:3], flags)

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < headerSize {
		return fmt.Errorf("data too short for message header")
	}

	// Read message type
	msg.MsgType = common.MessageType(data[0])

	// Read flags
	flags := binary.BigEndian.Uint16(data[1:3])

	// Initialize read position
	pos := headerSize

	// readString decodes a length-prefixed string at the current position
	readString := func(field string) (string, error) {
		if pos+4 > len(data) {
			return "", fmt.Errorf("data too short for %s length", field)
		}
		strLen := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4

		if pos+strLen > len(data) {
			return "", fmt.Errorf("data too short for %s data", field)
		}
		s := string(data[pos : pos+strLen])
		pos += strLen
		return s, nil
	}

	// readUint32 decodes a fixed-width integer at the current position
	readUint32 := func(field string) (int, error) {
		if pos+4 > len(data) {
			return 0, fmt.Errorf("data too short for %s", field)
		}
		v := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		return v, nil
	}

	// Read Resources if present
	if flags&hasResources != 0 {
		count, err := readUint32("resource count")
		if err != nil {
			return err
		}

		msg.Resources = make([]string, count)
		for i := 0; i < count; i++ {
			resource, err := readString("resource")
			if err != nil {
				return err
			}
			msg.Resources[i] = resource
		}
	} else {
		msg.Resources = nil
	}

	// Read UID if present
	if flags&hasUID != 0 {
		uid, err := readString("uid")
		if err != nil {
			return err
		}
		msg.UID = uid
	} else {
		msg.UID = ""
	}

	// Read Owner if present
	if flags&hasOwner != 0 {
		owner, err := readString("owner")
		if err != nil {
			return err
		}
		msg.Owner = owner
	} else {
		msg.Owner = ""
	}

	// Read Source if present
	if flags&hasSource != 0 {
		source, err := readString("source")
		if err != nil {
			return err
		}
		msg.Source = source
	} else {
		msg.Source = ""
	}

	// Read Quorum if present
	if flags&hasQuorum != 0 {
		quorum, err := readUint32("quorum")
		if err != nil {
			return err
		}
		msg.Quorum = quorum
	} else {
		msg.Quorum = 0
	}

	// Read Ok if present
	if flags&hasOk != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for Ok flag")
		}
		msg.Ok = data[pos] != 0
		pos += 1
	} else {
		msg.Ok = false
	}

	// Read Total if present
	if flags&hasTotal != 0 {
		total, err := readUint32("total")
		if err != nil {
			return err
		}
		msg.Total = total
	} else {
		msg.Total = 0
	}

	// Read Writes if present
	if flags&hasWrites != 0 {
		writes, err := readUint32("writes")
		if err != nil {
			return err
		}
		msg.Writes = writes
	} else {
		msg.Writes = 0
	}

	// Read Reads if present
	if flags&hasReads != 0 {
		reads, err := readUint32("reads")
		if err != nil {
			return err
		}
		msg.Reads = reads
	} else {
		msg.Reads = 0
	}

	// Read Err if present
	if flags&hasErr != 0 {
		errStr, err := readString("error")
		if err != nil {
			return err
		}
		msg.Err = errStr
	} else {
		msg.Err = ""
	}

	// Read Meta if present
	if flags&hasMeta != 0 {
		metaLen, err := readUint32("meta length")
		if err != nil {
			return err
		}

		if pos+metaLen > len(data) {
			return fmt.Errorf("data too short for meta data")
		}

		// Read metadata - create an empty slice (not nil) if length is 0
		// Allocate only if needed
		if msg.Meta == nil || cap(msg.Meta) < metaLen {
			msg.Meta = make([]byte, metaLen)
		} else {
			msg.Meta = msg.Meta[:metaLen]
		}

		if metaLen > 0 {
			copy(msg.Meta, data[pos:pos+metaLen])
		}
		pos += metaLen
	} else {
		msg.Meta = nil
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 2 bytes for flags
	size := headerSize

	// Add sizes for fields that require length encoding
	if len(msg.Resources) > 0 {
		size += 4 // resource count
		for _, resource := range msg.Resources {
			size += 4 + len(resource) // 4 bytes for length + resource string
		}
	}
	if msg.UID != "" {
		size += 4 + len(msg.UID)
	}
	if msg.Owner != "" {
		size += 4 + len(msg.Owner)
	}
	if msg.Source != "" {
		size += 4 + len(msg.Source)
	}
	if msg.Quorum > 0 {
		size += 4 // uint32
	}
	if msg.Ok {
		size += 1 // 1 byte for boolean
	}
	if msg.Total > 0 {
		size += 4 // uint32
	}
	if msg.Writes > 0 {
		size += 4 // uint32
	}
	if msg.Reads > 0 {
		size += 4 // uint32
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta)
	}

	return size
}
