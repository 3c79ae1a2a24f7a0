package ingest

import "encoding/binary"

// PackOperationBody packs an operation's JSON body into the binary
// envelope carried through the volatile store and replay batches: a
// 4-byte big-endian length prefix followed by the raw JSON bytes. This
// mirrors the length-prefix framing the node-source stream uses for its
// own messages, and keeps packing deterministic so the replay/live
// equivalence property holds. The JSON text is only recovered again at
// flush time, by UnpackOperationBody.
func PackOperationBody(json []byte) []byte {
	packed := make([]byte, 4+len(json))
	binary.BigEndian.PutUint32(packed, uint32(len(json)))
	copy(packed[4:], json)
	return packed
}

// UnpackOperationBody reverses PackOperationBody, recovering the JSON
// text an operation body renders as in hive_operations.body.
func UnpackOperationBody(packed []byte) ([]byte, bool) {
	if len(packed) < 4 {
		return nil, false
	}
	n := binary.BigEndian.Uint32(packed)
	if uint64(len(packed)) != 4+uint64(n) {
		return nil, false
	}
	return packed[4:], true
}
