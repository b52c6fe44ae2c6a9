package server

import (
	"context"
	"errors"

	"github.com/mcastelli/minegate/internal/protocol"
)

// ErrCloseConnection is returned by a Backend's Handle to request an orderly
// close of the connection (for example after answering a status ping). It is
// not treated as a failure.
var ErrCloseConnection = errors.New("backend requested connection close")

// Backend implements the game-flow side of client interactions. The frontend
// owns sockets, framing, and dispatch; the Backend decides what the resolved
// packets mean.
type Backend interface {
	// Identifier returns a uniquely identifying string, mostly for logging.
	Identifier() string

	// Init is called before the frontend starts accepting clients, as a hook
	// for the Backend to perform any necessary initialization.
	Init(ctx context.Context) error

	// Handle is the main entry point for processing client packets. It is
	// invoked once per resolved packet, in the order the frames arrived on
	// the connection, and is responsible for sending any responses.
	Handle(ctx context.Context, c *Connection, pkt protocol.Packet) error
}
