package protocol

import (
	"errors"
	"fmt"
	"io"
)

// RawFrame is one length-delimited unit pulled off the wire: a packet ID and
// its raw, not-yet-deserialized payload.
type RawFrame struct {
	PacketID byte
	Payload  []byte
}

// ErrTruncatedFrame is returned when the peer closes the stream in the middle
// of a frame. A clean close is only possible on a frame boundary.
var ErrTruncatedFrame = errors.New("stream closed mid-frame")

// maxFrameLength bounds the declared frame length so a hostile peer cannot
// make us buffer unbounded data for a single frame.
const maxFrameLength = 1 << 21

const readChunkSize = 2048

// FrameReader reassembles length-prefixed frames from a byte stream,
// tolerating arbitrary TCP segmentation. Newly read bytes are appended to an
// internal growable buffer; a frame is only emitted once the full declared
// length (packet ID + payload) is buffered, and a single read from the
// underlying stream may satisfy several frames.
//
// FrameReader is not safe for concurrent use; each connection owns one.
type FrameReader struct {
	src io.Reader
	buf []byte
}

func NewFrameReader(src io.Reader) *FrameReader {
	return &FrameReader{src: src}
}

// ReadFrame blocks until a complete frame is available and returns it.
// io.EOF is returned only on a clean close (no partial frame buffered);
// mid-frame closes surface ErrTruncatedFrame.
func (r *FrameReader) ReadFrame() (RawFrame, error) {
	for {
		frame, ok, err := r.next()
		if err != nil {
			return RawFrame{}, err
		}
		if ok {
			return frame, nil
		}

		if err := r.fill(); err != nil {
			return RawFrame{}, err
		}
	}
}

// Peek returns the next n buffered bytes without consuming them, reading from
// the stream as needed. Used to recognize non-framed preambles such as the
// legacy server list ping before frame parsing begins.
func (r *FrameReader) Peek(n int) ([]byte, error) {
	for len(r.buf) < n {
		if err := r.fill(); err != nil {
			return nil, err
		}
	}
	return r.buf[:n], nil
}

// next attempts to parse one frame from the buffered bytes. It consumes
// nothing unless a complete frame is available.
func (r *FrameReader) next() (RawFrame, bool, error) {
	length, consumed, err := DecodeVarInt(r.buf)
	if errors.Is(err, ErrIncompleteVarInt) {
		return RawFrame{}, false, nil
	}
	if err != nil {
		return RawFrame{}, false, err
	}

	if length == 0 || length > maxFrameLength {
		return RawFrame{}, false, fmt.Errorf("declared frame length %d out of range", length)
	}

	if len(r.buf) < consumed+int(length) {
		// Length known but the body hasn't fully arrived.
		return RawFrame{}, false, nil
	}

	body := r.buf[consumed : consumed+int(length)]
	frame := RawFrame{
		PacketID: body[0],
		Payload:  append([]byte(nil), body[1:]...),
	}

	// Slide any remaining bytes to the front so buffer growth stays bounded
	// by the largest in-flight frame.
	rest := copy(r.buf, r.buf[consumed+int(length):])
	r.buf = r.buf[:rest]

	return frame, true, nil
}

// fill performs one read from the underlying stream and appends the bytes to
// the reassembly buffer.
func (r *FrameReader) fill() error {
	chunk := make([]byte, readChunkSize)
	n, err := r.src.Read(chunk)
	if n > 0 {
		r.buf = append(r.buf, chunk[:n]...)
		return nil
	}

	if err == nil || errors.Is(err, io.EOF) {
		// Zero-byte read means the peer closed the connection. That is a
		// clean close only if no frame is pending.
		if len(r.buf) > 0 {
			return ErrTruncatedFrame
		}
		return io.EOF
	}
	return err
}
