package protocol

import "errors"

// maxVarIntBytes is the encoding length bound; the protocol caps VarInts at 32 bits.
const maxVarIntBytes = 5

var (
	// ErrIncompleteVarInt signals that the buffer ran out before a terminator
	// byte was seen. This is not a failure: callers should retry the decode
	// once more bytes have arrived.
	ErrIncompleteVarInt = errors.New("incomplete VarInt")

	// ErrInvalidVarInt signals a malformed encoding (more than five
	// continuation bytes). Connections sending these are beyond saving.
	ErrInvalidVarInt = errors.New("invalid VarInt: exceeds five bytes")
)

// DecodeVarInt reads a VarInt from the head of buf, returning the decoded
// value and the number of bytes consumed.
//
// Each byte contributes its low seven bits; the high bit set means another
// byte follows. Returns ErrIncompleteVarInt if buf is exhausted before a
// terminator byte and ErrInvalidVarInt if no terminator appears within the
// five byte bound.
func DecodeVarInt(buf []byte) (uint32, int, error) {
	var value uint32

	for i := 0; ; i++ {
		if i == maxVarIntBytes {
			return 0, 0, ErrInvalidVarInt
		}
		if i >= len(buf) {
			return 0, 0, ErrIncompleteVarInt
		}

		b := buf[i]
		value |= uint32(b&0x7F) << (7 * i)

		if b&0x80 == 0 {
			return value, i + 1, nil
		}
	}
}

// EncodeVarInt appends the VarInt encoding of value to dst and returns the
// extended slice. Seven-bit groups are emitted low-order first with the
// continuation bit set on every group except the last.
func EncodeVarInt(dst []byte, value uint32) []byte {
	for {
		b := byte(value & 0x7F)
		value >>= 7

		if value != 0 {
			b |= 0x80
		}
		dst = append(dst, b)

		if value == 0 {
			return dst
		}
	}
}

// VarIntSize returns the number of bytes EncodeVarInt will emit for value.
func VarIntSize(value uint32) int {
	size := 1
	for value >>= 7; value != 0; value >>= 7 {
		size++
	}
	return size
}
