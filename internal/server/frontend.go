package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mcastelli/minegate/internal/core"
	minedebug "github.com/mcastelli/minegate/internal/debug"
	"github.com/mcastelli/minegate/internal/protocol"
)

// Frontend implements the concurrent client connection logic.
//
// Frames are read from any connected clients, resolved through the packet
// registry, and passed to a Backend instance, abstracting the lower level
// connection details away from the Backend.
type Frontend struct {
	config    *core.Config
	logger    *logrus.Logger
	registry  *protocol.Registry
	backend   Backend
	directory *Directory

	listenerMutex sync.Mutex
	listener      net.Listener
	handlers      sync.WaitGroup

	connMutex sync.Mutex
	conns     map[*Connection]struct{}
}

func NewFrontend(
	config *core.Config,
	logger *logrus.Logger,
	registry *protocol.Registry,
	backend Backend,
	directory *Directory,
) *Frontend {
	return &Frontend{
		config:    config,
		logger:    logger,
		registry:  registry,
		backend:   backend,
		directory: directory,
		conns:     make(map[*Connection]struct{}),
	}
}

// Directory returns the session directory this frontend inserts into.
func (f *Frontend) Directory() *Directory { return f.directory }

// Addr returns the address the frontend is listening on, or nil if the
// listener hasn't been opened yet. Mostly useful when the configured port
// is 0 and the OS picks one.
func (f *Frontend) Addr() net.Addr {
	f.listenerMutex.Lock()
	defer f.listenerMutex.Unlock()
	if f.listener == nil {
		return nil
	}
	return f.listener.Addr()
}

// StartListening opens the server's TCP socket and enters a blocking loop for
// accepting client connections and dispatching them to the backend. It only
// returns once ctx is cancelled and the listener has been torn down.
func (f *Frontend) StartListening(ctx context.Context) error {
	socket, err := net.Listen("tcp", f.config.ListenAddress())
	if err != nil {
		return fmt.Errorf("error listening on socket: %w", err)
	}
	f.listenerMutex.Lock()
	f.listener = socket
	f.listenerMutex.Unlock()

	f.logger.Infof("waiting for %s connections on %v", f.backend.Identifier(), socket.Addr())

	f.startBlockingLoop(ctx, socket)
	return nil
}

// startBlockingLoop is purely responsible for accepting new connections and
// spinning off goroutines for the backend to handle them.
func (f *Frontend) startBlockingLoop(ctx context.Context, socket net.Listener) {
	defer f.logger.Infof("%s exiting", f.backend.Identifier())

	connections := make(chan net.Conn)
	go func() {
		for {
			// Poll until we can accept more clients.
			for f.atConnectionLimit() {
				time.Sleep(time.Second)
			}

			connection, err := socket.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					close(connections)
					return
				}
				f.logger.Warnf("failed to accept connection: %s", err)
				continue
			}

			connections <- connection
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case connection, ok := <-connections:
			if !ok {
				return
			}
			f.handlers.Add(1)
			go f.acceptClient(ctx, connection)
		}
	}
}

func (f *Frontend) atConnectionLimit() bool {
	if f.config.MaxConnections <= 0 {
		return false
	}
	f.connMutex.Lock()
	defer f.connMutex.Unlock()
	return len(f.conns) >= f.config.MaxConnections
}

func (f *Frontend) trackConnection(c *Connection) {
	f.connMutex.Lock()
	f.conns[c] = struct{}{}
	f.connMutex.Unlock()
}

func (f *Frontend) untrackConnection(c *Connection) {
	f.connMutex.Lock()
	delete(f.conns, c)
	f.connMutex.Unlock()
}

func (f *Frontend) acceptClient(ctx context.Context, connection net.Conn) {
	defer f.handlers.Done()

	c := NewConnection(connection)
	f.trackConnection(c)

	f.logger.Infof("accepted %s connection from %s", f.backend.Identifier(), c.RemoteAddr())

	f.processPackets(ctx, c)
}

// processPackets starts a blocking loop dedicated to reading frames sent by a
// game client and only returns once the connection has closed. Errors here
// only ever take down this one client.
func (f *Frontend) processPackets(ctx context.Context, c *Connection) {
	defer f.closeConnectionAndRecover(c)

	if f.handleLegacyPing(c) {
		return
	}

	for {
		frame, err := c.ReceiveFrame()

		if err == io.EOF || errors.Is(err, ErrConnectionClosed) {
			return
		} else if err != nil {
			f.logger.Warnf("read error from client %s: %s", c.RemoteAddr(), err)
			return
		}

		if f.config.Debugging.PacketLoggingEnabled {
			minedebug.DumpFrame(f.logger, c.RemoteAddr(), c.Phase(), frame)
		}

		packet, err := f.registry.Resolve(c.Phase(), frame.PacketID, frame.Payload)
		if err != nil {
			var unknown *protocol.UnknownPacketIDError
			if errors.As(err, &unknown) {
				// Unrecognized packets are dropped, not fatal.
				f.logger.Debugf("client %s: %s", c.RemoteAddr(), err)
				continue
			}
			f.logger.Warnf("client %s: %s", c.RemoteAddr(), err)
			return
		}

		select {
		case <-ctx.Done():
			return
		default:
			if err = f.backend.Handle(ctx, c, packet); err != nil {
				if errors.Is(err, ErrCloseConnection) {
					return
				}
				f.logger.Warnf("error in client communication with %s: %s", c.RemoteAddr(), err)
				return
			}
		}
	}
}

// handleLegacyPing answers the pre-Netty server list ping. Old clients open
// with a bare 0xFE byte, which can never start a valid frame from a current
// client. Returns true if the connection was consumed by a legacy ping.
func (f *Frontend) handleLegacyPing(c *Connection) bool {
	lead, err := c.Peek(1)
	if err != nil || lead[0] != protocol.LegacyPingByte {
		return false
	}

	response, err := protocol.EncodeLegacyPingResponse(
		f.config.Server.ProtocolVersion,
		f.config.Server.VersionName,
		f.config.Server.MOTD,
		f.directory.Len(),
		f.config.Server.MaxPlayers,
	)
	if err != nil {
		f.logger.Warnf("failed to encode legacy ping response: %s", err)
		return true
	}

	f.logger.Infof("answering legacy ping from %s", c.RemoteAddr())
	if err := c.SendRaw(response); err != nil {
		f.logger.Warnf("failed to answer legacy ping from %s: %s", c.RemoteAddr(), err)
	}
	return true
}

// closeConnectionAndRecover catches any panics, disconnects the client, and
// removes its session from the directory regardless of the state of the
// connection.
func (f *Frontend) closeConnectionAndRecover(c *Connection) {
	if err := recover(); err != nil {
		f.logger.Errorf("error in client communication: %s: %s\n%s\n",
			c.RemoteAddr(), err, debug.Stack())
	}

	if err := c.Disconnect(); err != nil {
		f.logger.Warnf("failed to close client connection: %s", err)
	}

	if session := c.Session(); session != nil {
		// Only remove the directory entry if it still belongs to this
		// connection; a newer login may have replaced it under the evict
		// policy.
		if current := f.directory.FindByID(session.PlayerID); current == session {
			f.directory.Remove(session.PlayerID)
		}
	}

	f.untrackConnection(c)

	f.logger.Infof("disconnected %s client %s", f.backend.Identifier(), c.RemoteAddr())
}

// Shutdown performs the orderly teardown sequence: stop accepting new
// connections, notify logged-in players with a disconnect packet, close every
// connection, and wait for handler goroutines to drain, up to the configured
// timeout before giving up on stragglers.
func (f *Frontend) Shutdown(notice string) {
	f.listenerMutex.Lock()
	if f.listener != nil {
		_ = f.listener.Close()
	}
	f.listenerMutex.Unlock()

	for _, session := range f.directory.Snapshot() {
		if err := session.Send(&protocol.PlayDisconnect{Reason: notice}); err != nil {
			f.logger.Debugf("failed to send shutdown notice to %s: %s", session.Username, err)
		}
		session.Disconnect()
	}

	f.connMutex.Lock()
	remaining := make([]*Connection, 0, len(f.conns))
	for c := range f.conns {
		remaining = append(remaining, c)
	}
	f.connMutex.Unlock()
	for _, c := range remaining {
		_ = c.Disconnect()
	}

	done := make(chan struct{})
	go func() {
		f.handlers.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(f.config.Server.ShutdownTimeout):
		f.logger.Warn("timed out waiting for client handlers to exit")
	}
}
