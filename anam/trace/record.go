// Package trace decodes and merges the per-thread binary traces written by the
// pool allocator's tracing layer.
// This package has no dependencies on anam/; it stores pure data types and codecs.
package trace

import "encoding/binary"

// RecordSize is the width of one on-disk trace record in bytes:
// timestamp(8) | slot(4) | generation(2) | op_type(1) | thread_id(1), little-endian.
const RecordSize = 16

// OpType identifies the pool operation a trace record describes.
type OpType int

const (
	OpAlloc          OpType = iota // successful allocation
	OpRelease                      // slot released
	OpGetValid                     // lookup with a matching generation
	OpGetStale                     // lookup with a stale generation
	OpValidationFail               // explicit validation failed
	OpUnknown                      // wire code outside the known set; see Event.RawOp
)

// NumKnownOps is the number of op types defined by the trace format.
const NumKnownOps = int(OpUnknown)

var opNames = [...]string{
	OpAlloc:          "alloc",
	OpRelease:        "release",
	OpGetValid:       "get_valid",
	OpGetStale:       "get_stale",
	OpValidationFail: "validate_fail",
	OpUnknown:        "unknown",
}

// ParseOpType maps a wire code to its OpType. Codes outside 0-4 map to OpUnknown.
func ParseOpType(code uint8) OpType {
	if int(code) < NumKnownOps {
		return OpType(code)
	}
	return OpUnknown
}

// Known reports whether op is one of the five op types defined by the format.
func (op OpType) Known() bool {
	return op >= OpAlloc && op < OpUnknown
}

func (op OpType) String() string {
	if op < OpAlloc || op > OpUnknown {
		return opNames[OpUnknown]
	}
	return opNames[op]
}

// Event is one decoded trace record.
type Event struct {
	Timestamp  uint64 // cycle counter at record time; ordering key, not unique
	Slot       uint32 // pool index; not validated against capacity
	Generation uint16
	Op         OpType
	RawOp      uint8 // op code exactly as read from the wire
	ThreadID   uint8
}

// NewEvent builds an Event for a known op, filling RawOp from op.
// Used by producers of synthetic traces; decoded events come from Decoder.
func NewEvent(ts uint64, slot uint32, gen uint16, op OpType, thread uint8) Event {
	raw := uint8(OpUnknown)
	if op.Known() {
		raw = uint8(op)
	}
	return Event{Timestamp: ts, Slot: slot, Generation: gen, Op: op, RawOp: raw, ThreadID: thread}
}

// AppendBinary appends the canonical 16-byte record encoding of e to b.
func (e Event) AppendBinary(b []byte) ([]byte, error) {
	b = binary.LittleEndian.AppendUint64(b, e.Timestamp)
	b = binary.LittleEndian.AppendUint32(b, e.Slot)
	b = binary.LittleEndian.AppendUint16(b, e.Generation)
	return append(b, e.RawOp, e.ThreadID), nil
}

// parseRecord decodes exactly RecordSize bytes.
func parseRecord(rec []byte) Event {
	raw := rec[14]
	return Event{
		Timestamp:  binary.LittleEndian.Uint64(rec[0:8]),
		Slot:       binary.LittleEndian.Uint32(rec[8:12]),
		Generation: binary.LittleEndian.Uint16(rec[12:14]),
		Op:         ParseOpType(raw),
		RawOp:      raw,
		ThreadID:   rec[15],
	}
}
