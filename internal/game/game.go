package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mcastelli/minegate/internal/core"
	"github.com/mcastelli/minegate/internal/core/auth"
	"github.com/mcastelli/minegate/internal/protocol"
	"github.com/mcastelli/minegate/internal/server"
)

const (
	statusCacheKey    = "status_json"
	keepAliveInterval = 15 * time.Second
)

// Backend implements the game flow for the vanilla phases: handshake, the
// server list ping, login, and the subset of play handled here (chat and
// keep-alives).
type Backend struct {
	config    *core.Config
	logger    *logrus.Logger
	db        *gorm.DB
	directory *server.Directory

	// statusCache holds the rendered server list ping document so that a
	// burst of pings does not recompute it per client.
	statusCache *gocache.Cache
}

func NewBackend(config *core.Config, logger *logrus.Logger, db *gorm.DB, directory *server.Directory) *Backend {
	return &Backend{
		config:      config,
		logger:      logger,
		db:          db,
		directory:   directory,
		statusCache: gocache.New(config.Server.StatusCacheTTL, 10*time.Second),
	}
}

func (b *Backend) Identifier() string { return "game" }

// Init starts the keep-alive loop, which periodically probes every logged-in
// session. The loop exits when ctx is cancelled.
func (b *Backend) Init(ctx context.Context) error {
	go b.startKeepAliveLoop(ctx)
	return nil
}

func (b *Backend) startKeepAliveLoop(ctx context.Context) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe := &protocol.ServerKeepAlive{KeepAliveID: time.Now().UnixMilli()}
			for _, session := range b.directory.Snapshot() {
				if err := session.Send(probe); err != nil {
					b.logger.Debugf("keep-alive to %s failed: %s", session.Username, err)
				}
			}
		}
	}
}

// Handle processes one resolved packet for a connection.
func (b *Backend) Handle(ctx context.Context, c *server.Connection, pkt protocol.Packet) error {
	switch p := pkt.(type) {
	case *protocol.Handshake:
		return b.handleHandshake(c, p)
	case *protocol.StatusRequest:
		return b.handleStatusRequest(c)
	case *protocol.PingRequest:
		return b.handlePingRequest(c, p)
	case *protocol.LoginStart:
		return b.handleLoginStart(c, p)
	case *protocol.ChatMessage:
		return b.handleChatMessage(c, p)
	case *protocol.KeepAlive:
		return b.handleKeepAlive(c, p)
	default:
		return fmt.Errorf("no handler for packet id 0x%02X in phase %s", pkt.ID(), c.Phase())
	}
}

func (b *Backend) handleHandshake(c *server.Connection, h *protocol.Handshake) error {
	switch h.NextState {
	case 1:
		c.SetPhase(protocol.Status)
	case 2:
		c.SetPhase(protocol.Login)
	default:
		return fmt.Errorf("handshake requested invalid next state %d", h.NextState)
	}

	b.logger.Debugf("client %s handshake: protocol %d, next state %s",
		c.RemoteAddr(), h.ProtocolVersion, c.Phase())
	return nil
}

// statusDocument mirrors the JSON shape clients expect from the server list
// ping.
type statusDocument struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int    `json:"protocol"`
	} `json:"version"`
	Players struct {
		Max    int `json:"max"`
		Online int `json:"online"`
	} `json:"players"`
	Description struct {
		Text string `json:"text"`
	} `json:"description"`
}

func (b *Backend) handleStatusRequest(c *server.Connection) error {
	statusJSON, err := b.statusJSON()
	if err != nil {
		return err
	}
	return c.SendPacket(&protocol.StatusResponse{JSON: statusJSON})
}

func (b *Backend) statusJSON() (string, error) {
	if cached, found := b.statusCache.Get(statusCacheKey); found {
		return cached.(string), nil
	}

	doc := statusDocument{}
	doc.Version.Name = b.config.Server.VersionName
	doc.Version.Protocol = b.config.Server.ProtocolVersion
	doc.Players.Max = b.config.Server.MaxPlayers
	doc.Players.Online = b.directory.Len()
	doc.Description.Text = b.config.Server.MOTD

	rendered, err := json.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("error rendering status document: %w", err)
	}

	b.statusCache.SetDefault(statusCacheKey, string(rendered))
	return string(rendered), nil
}

// handlePingRequest echoes the client's payload and ends the status exchange;
// the client is expected to close after the pong.
func (b *Backend) handlePingRequest(c *server.Connection, p *protocol.PingRequest) error {
	if err := c.SendPacket(&protocol.PongResponse{Payload: p.Payload}); err != nil {
		return err
	}
	return server.ErrCloseConnection
}

func (b *Backend) handleLoginStart(c *server.Connection, l *protocol.LoginStart) error {
	if b.directory.Len() >= b.config.Server.MaxPlayers {
		return b.rejectLogin(c, "The server is full")
	}

	identity, err := auth.GrantIdentity(b.db, l.Username)
	switch {
	case errors.Is(err, auth.ErrInvalidUsername):
		return b.rejectLogin(c, "Invalid username")
	case errors.Is(err, auth.ErrAccountBanned):
		return b.rejectLogin(c, "You are banned from this server")
	case err != nil:
		b.logger.Errorf("login failed for %q from %s: %s", l.Username, c.RemoteAddr(), err)
		return b.rejectLogin(c, "Internal server error")
	}

	session := server.NewSession(identity.Username, identity.PlayerID, c)
	evicted, err := b.directory.Insert(session)
	if errors.Is(err, server.ErrDuplicateIdentity) {
		return b.rejectLogin(c, "You are already logged in from another location")
	} else if err != nil {
		return err
	}

	if evicted != nil {
		b.logger.Infof("evicting prior session for %s at %s", evicted.Username, evicted.RemoteAddr())
		if err := evicted.Send(&protocol.PlayDisconnect{Reason: chatText("You logged in from another location")}); err != nil {
			b.logger.Debugf("failed to notify evicted session: %s", err)
		}
		evicted.Disconnect()
	}

	c.AttachSession(session)

	if err := c.SendPacket(&protocol.LoginSuccess{PlayerID: identity.PlayerID, Username: identity.Username}); err != nil {
		b.directory.Remove(identity.PlayerID)
		return err
	}
	c.SetPhase(protocol.Play)

	b.logger.Infof("%s logged in from %s as %s", identity.Username, c.RemoteAddr(), identity.PlayerID)
	return nil
}

// rejectLogin notifies the client why its login was refused and requests an
// orderly close.
func (b *Backend) rejectLogin(c *server.Connection, reason string) error {
	if err := c.SendPacket(&protocol.LoginDisconnect{Reason: chatText(reason)}); err != nil {
		b.logger.Debugf("failed to send login rejection to %s: %s", c.RemoteAddr(), err)
	}
	b.logger.Infof("rejected login from %s: %s", c.RemoteAddr(), reason)
	return server.ErrCloseConnection
}

func (b *Backend) handleChatMessage(c *server.Connection, m *protocol.ChatMessage) error {
	session := c.Session()
	if session == nil {
		return errors.New("received chat message before login completed")
	}

	broadcast := &protocol.ServerChat{Sender: session.Username, Message: m.Message}
	for _, recipient := range b.directory.Snapshot() {
		if err := recipient.Send(broadcast); err != nil {
			b.logger.Debugf("failed to deliver chat to %s: %s", recipient.Username, err)
		}
	}
	return nil
}

func (b *Backend) handleKeepAlive(c *server.Connection, k *protocol.KeepAlive) error {
	if c.Session() == nil {
		return errors.New("received keep-alive before login completed")
	}
	b.logger.Debugf("keep-alive %d echoed by %s", k.KeepAliveID, c.RemoteAddr())
	return nil
}

// chatText wraps plain text in the chat component JSON used by disconnect
// reasons.
func chatText(text string) string {
	component, _ := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})
	return string(component)
}
