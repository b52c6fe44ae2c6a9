package internal

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mcastelli/minegate/internal/core"
	"github.com/mcastelli/minegate/internal/core/data"
	"github.com/mcastelli/minegate/internal/debug"
	"github.com/mcastelli/minegate/internal/game"
	"github.com/mcastelli/minegate/internal/protocol"
	"github.com/mcastelli/minegate/internal/server"
)

// Controller is the main entrypoint for the server. It's responsible for
// initializing shared resources (database, logging, the packet registry),
// wiring the game backend to a frontend, and launching everything.
type Controller struct {
	Config *core.Config

	logger   *logrus.Logger
	db       *gorm.DB
	frontend *server.Frontend
	wg       sync.WaitGroup
}

// Start runs the server until ctx is cancelled, then performs the graceful
// shutdown sequence.
func (c *Controller) Start(ctx context.Context) {
	var err error
	// Set up the logger, which will be used by all components.
	c.logger, err = core.NewLogger(c.Config)
	if err != nil {
		logrus.Errorf("error initializing logger: %v", err)
		return
	}

	// Start any debug utilities if we're configured to do so.
	debug.StartUtilities(c.Config, c.logger)

	dataSource := c.Config.Database.Filename
	if c.Config.Database.Engine == "postgres" {
		dataSource = c.Config.DatabaseURL()
	}
	c.db, err = data.Initialize(c.Config.Database.Engine, dataSource, c.Config.Debugging.PacketLoggingEnabled)
	if err != nil {
		c.logger.Errorf("error connecting to database: %v", err)
		return
	}
	defer func() {
		if err := data.Shutdown(c.db); err != nil {
			c.logger.Errorf("error closing database connection: %v", err)
		}
	}()

	// A registration failure here means two packet types claim the same
	// (phase, id) pair, which is a programming error we should refuse to
	// start with.
	registry, err := BuildRegistry()
	if err != nil {
		c.logger.Errorf("error building packet registry: %v", err)
		return
	}

	directory := server.NewDirectory(c.Config.Server.DuplicateLoginPolicy == core.DuplicatePolicyEvict)
	backend := game.NewBackend(c.Config, c.logger, c.db, directory)
	c.frontend = server.NewFrontend(c.Config, c.logger, registry, backend, directory)

	if err := backend.Init(ctx); err != nil {
		c.logger.Errorf("error initializing %s backend: %v", backend.Identifier(), err)
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.frontend.StartListening(ctx); err != nil {
			c.logger.Errorf("error starting %s server: %v", backend.Identifier(), err)
		}
	}()

	<-ctx.Done()
	c.Shutdown()
}

// BuildRegistry constructs the packet registry with every serverbound packet
// type the game backend understands. Clientbound packets are not registered;
// their IDs may collide with serverbound ones and the server never needs to
// resolve them.
func BuildRegistry() (*protocol.Registry, error) {
	registry := protocol.NewRegistry()

	registrations := []struct {
		phase protocol.Phase
		id    byte
		d     protocol.Deserializer
	}{
		{protocol.Handshaking, protocol.HandshakeID, protocol.DeserializeHandshake},
		{protocol.Status, protocol.StatusRequestID, protocol.DeserializeStatusRequest},
		{protocol.Status, protocol.PingRequestID, protocol.DeserializePingRequest},
		{protocol.Login, protocol.LoginStartID, protocol.DeserializeLoginStart},
		{protocol.Play, protocol.ChatMessageID, protocol.DeserializeChatMessage},
		{protocol.Play, protocol.KeepAliveID, protocol.DeserializeKeepAlive},
	}

	for _, r := range registrations {
		if err := registry.Register(r.phase, r.id, r.d); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Shutdown stops accepting connections, notifies connected players, and
// drains the client handlers.
func (c *Controller) Shutdown() {
	c.logger.Info("shutting down")
	c.frontend.Shutdown("Server is shutting down")
	c.wg.Wait()
}
