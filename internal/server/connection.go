package server

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/mcastelli/minegate/internal/protocol"
)

// ErrConnectionClosed is returned by send and receive operations invoked
// after the connection has been disconnected.
var ErrConnectionClosed = errors.New("connection closed")

// Connection owns exactly one client socket. Frames are read through the
// embedded frame reader by the connection's single reader goroutine; writes
// may come from any goroutine (direct replies and broadcasts race here) and
// are serialized so that the bytes of two frames can never interleave.
type Connection struct {
	conn       net.Conn
	remoteAddr string
	reader     *protocol.FrameReader

	// phase is only touched by the connection's reader goroutine.
	phase protocol.Phase

	// session is attached by the login flow and read by the connection's
	// reader goroutine on teardown.
	session *Session

	writeMutex sync.Mutex
	closed     atomic.Bool
	closeOnce  sync.Once
	closeErr   error
}

func NewConnection(conn net.Conn) *Connection {
	return &Connection{
		conn:       conn,
		remoteAddr: conn.RemoteAddr().String(),
		reader:     protocol.NewFrameReader(conn),
		phase:      protocol.Handshaking,
	}
}

func (c *Connection) RemoteAddr() string { return c.remoteAddr }

// Phase returns the protocol phase the connection is currently in.
func (c *Connection) Phase() protocol.Phase { return c.phase }

// SetPhase advances the connection to the given protocol phase.
func (c *Connection) SetPhase(p protocol.Phase) { c.phase = p }

// Session returns the session attached after a completed login, or nil.
func (c *Connection) Session() *Session { return c.session }

// AttachSession binds the logged-in session to this connection.
func (c *Connection) AttachSession(s *Session) { c.session = s }

// ReceiveFrame blocks until the next complete frame has been reassembled
// from the socket. Returns io.EOF on a clean close by the peer and
// ErrConnectionClosed once Disconnect has been called.
func (c *Connection) ReceiveFrame() (protocol.RawFrame, error) {
	if c.closed.Load() {
		return protocol.RawFrame{}, ErrConnectionClosed
	}

	frame, err := c.reader.ReadFrame()
	if err != nil && c.closed.Load() {
		// The socket was torn down underneath a blocked read.
		return protocol.RawFrame{}, ErrConnectionClosed
	}
	return frame, err
}

// Peek returns the next n bytes from the stream without consuming them.
func (c *Connection) Peek(n int) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}
	return c.reader.Peek(n)
}

// SendPacket frames the packet and writes it to the socket. Only one writer
// proceeds at a time; concurrent senders wait rather than interleaving
// partial frames.
func (c *Connection) SendPacket(p protocol.Packet) error {
	frame, err := protocol.Frame(p)
	if err != nil {
		return err
	}
	return c.SendRaw(frame)
}

// SendRaw writes pre-framed bytes to the socket under the write lock.
func (c *Connection) SendRaw(data []byte) error {
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()

	if c.closed.Load() {
		return ErrConnectionClosed
	}

	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("failed to send to client %v: %w", c.remoteAddr, err)
	}
	return nil
}

// Disconnect shuts the socket down in both directions. It is idempotent;
// any goroutine blocked on this connection's stream observes the close
// promptly rather than hanging.
func (c *Connection) Disconnect() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// Closed reports whether Disconnect has been called.
func (c *Connection) Closed() bool { return c.closed.Load() }
