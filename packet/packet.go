// Package packet implements the on-wire framing for voice datagrams:
// a 6-byte header (origin id + sequence) followed by the opaque codec
// payload. No length prefix is added — the transport delivers message
// boundaries.
package packet

import (
	"encoding/binary"
	"errors"
)

// HeaderSize is the fixed wire header length: 4-byte origin id + 2-byte
// sequence, both little-endian.
const HeaderSize = 6

// ErrMalformedHeader is returned by Unwrap when data is shorter than
// HeaderSize.
var ErrMalformedHeader = errors.New("packet: malformed header")

// Wrap concatenates a 4-byte little-endian origin id, a 2-byte
// little-endian sequence number, and payload verbatim. The returned slice
// is a fresh allocation; payload is not retained.
func Wrap(originID uint32, seq uint16, payload []byte) []byte {
	out := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint32(out[0:4], originID)
	binary.LittleEndian.PutUint16(out[4:6], seq)
	copy(out[HeaderSize:], payload)
	return out
}

// Unwrap parses a wire packet. The returned payload aliases data — copy it
// if the caller needs to retain it beyond the lifetime of data's backing
// array. Unwrap fails with ErrMalformedHeader when len(data) < HeaderSize.
func Unwrap(data []byte) (originID uint32, seq uint16, payload []byte, err error) {
	if len(data) < HeaderSize {
		return 0, 0, nil, ErrMalformedHeader
	}
	originID = binary.LittleEndian.Uint32(data[0:4])
	seq = binary.LittleEndian.Uint16(data[4:6])
	payload = data[HeaderSize:]
	return originID, seq, payload, nil
}
