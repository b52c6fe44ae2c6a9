package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Field-level encoding helpers shared by the packet types. All multi-byte
// integers are big-endian; strings are length-prefixed with a VarInt.

var errStringTooLong = errors.New("string exceeds maximum length")

// maxStringLength bounds string fields so a hostile length prefix cannot
// force a huge allocation.
const maxStringLength = 32767

// payloadReader is a cursor over a packet payload used by deserializers.
type payloadReader struct {
	buf []byte
	off int
}

func newPayloadReader(payload []byte) *payloadReader {
	return &payloadReader{buf: payload}
}

func (r *payloadReader) remaining() int { return len(r.buf) - r.off }

func (r *payloadReader) readByte() (byte, error) {
	if r.off >= len(r.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *payloadReader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.buf) {
		return nil, io.ErrUnexpectedEOF
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *payloadReader) readUint16() (uint16, error) {
	b, err := r.readBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *payloadReader) readInt64() (int64, error) {
	b, err := r.readBytes(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (r *payloadReader) readVarInt() (uint32, error) {
	v, n, err := DecodeVarInt(r.buf[r.off:])
	if err != nil {
		// A payload is a complete unit, so running out of bytes here is a
		// shape mismatch rather than a retryable condition.
		if errors.Is(err, ErrIncompleteVarInt) {
			return 0, io.ErrUnexpectedEOF
		}
		return 0, err
	}
	r.off += n
	return v, nil
}

func (r *payloadReader) readString() (string, error) {
	length, err := r.readVarInt()
	if err != nil {
		return "", err
	}
	if length > maxStringLength {
		return "", fmt.Errorf("%w: %d bytes", errStringTooLong, length)
	}

	b, err := r.readBytes(int(length))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// expectEmpty returns an error if any payload bytes remain unconsumed.
// Trailing garbage means the payload doesn't match the declared shape.
func (r *payloadReader) expectEmpty() error {
	if r.remaining() != 0 {
		return fmt.Errorf("%d trailing bytes in payload", r.remaining())
	}
	return nil
}

func appendUint16(dst []byte, v uint16) []byte {
	return binary.BigEndian.AppendUint16(dst, v)
}

func appendInt64(dst []byte, v int64) []byte {
	return binary.BigEndian.AppendUint64(dst, uint64(v))
}

func appendString(dst []byte, s string) []byte {
	dst = EncodeVarInt(dst, uint32(len(s)))
	return append(dst, s...)
}
