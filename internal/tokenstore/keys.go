package tokenstore

import (
	"encoding/binary"
)

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - tok/{processor}/{segment_be4}
var (
	sep       = byte('/')
	tokPrefix = []byte("tok/")
)

func appendBE4(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

// KeyCheckpoint builds the checkpoint key for a processor segment.
func KeyCheckpoint(processor string, segment uint32) []byte {
	k := make([]byte, 0, len(processor)+16)
	k = append(k, tokPrefix...)
	k = append(k, processor...)
	k = append(k, sep)
	k = appendBE4(k, segment)
	return k
}

// KeyCheckpointPrefix returns a range prefix scanning all segments of a processor.
func KeyCheckpointPrefix(processor string) []byte {
	k := make([]byte, 0, len(processor)+8)
	k = append(k, tokPrefix...)
	k = append(k, processor...)
	k = append(k, sep)
	return k
}
