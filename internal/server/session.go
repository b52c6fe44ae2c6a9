package server

import (
	"github.com/google/uuid"

	"github.com/mcastelli/minegate/internal/protocol"
)

// Session is the server-side record of one authenticated, connected player.
// The session's connection is owned exclusively by the session; the session
// itself is owned collectively by the Directory.
type Session struct {
	Username string
	PlayerID uuid.UUID

	conn *Connection
}

func NewSession(username string, playerID uuid.UUID, conn *Connection) *Session {
	return &Session{
		Username: username,
		PlayerID: playerID,
		conn:     conn,
	}
}

// Send writes a packet to the session's client through the connection's
// serialized write path.
func (s *Session) Send(p protocol.Packet) error {
	return s.conn.SendPacket(p)
}

// Disconnect closes the session's connection. Idempotent.
func (s *Session) Disconnect() {
	_ = s.conn.Disconnect()
}

func (s *Session) RemoteAddr() string { return s.conn.RemoteAddr() }
