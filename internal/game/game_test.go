package game

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mcastelli/minegate/internal/core"
	"github.com/mcastelli/minegate/internal/core/auth"
	"github.com/mcastelli/minegate/internal/core/data"
	"github.com/mcastelli/minegate/internal/protocol"
	"github.com/mcastelli/minegate/internal/server"
)

func setUpDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")))
	if err != nil {
		t.Fatalf("error initializing test database: %s", err)
	}
	if err = db.AutoMigrate(&data.Account{}); err != nil {
		t.Fatalf("error auto migrating db: %s", err)
	}
	return db
}

func setUpConfig(policy string, maxPlayers int) *core.Config {
	config := &core.Config{
		Hostname:       "localhost",
		Port:           0,
		MaxConnections: 16,
	}
	config.Server.MOTD = "A Minegate Server"
	config.Server.MaxPlayers = maxPlayers
	config.Server.ProtocolVersion = 764
	config.Server.VersionName = "1.20.2"
	config.Server.DuplicateLoginPolicy = policy
	config.Server.StatusCacheTTL = 100 * time.Millisecond
	config.Server.ShutdownTimeout = time.Second
	return config
}

// setUpServer runs a full frontend with the game backend against a sqlite
// database, returning the address it's listening on and the live directory.
func setUpServer(t *testing.T, policy string, maxPlayers int) (net.Addr, *server.Directory) {
	t.Helper()

	config := setUpConfig(policy, maxPlayers)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	directory := server.NewDirectory(policy == core.DuplicatePolicyEvict)
	backend := NewBackend(config, logger, setUpDatabase(t), directory)

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
			t.Fatalf("Register() returned an unexpected error: %v", err)
		}
	}

	frontend := server.NewFrontend(config, logger, registry, backend, directory)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := frontend.StartListening(ctx); err != nil {
			t.Errorf("StartListening() returned an unexpected error: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		frontend.Shutdown("test over")
	})

	deadline := time.Now().Add(5 * time.Second)
	for frontend.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the frontend to start listening")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return frontend.Addr(), directory
}

type testClient struct {
	conn   net.Conn
	reader *protocol.FrameReader
}

func dial(t *testing.T, addr net.Addr) *testClient {
	t.Helper()
	conn, err := net.Dial(addr.Network(), addr.String())
	if err != nil {
		t.Fatalf("failed to connect to %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	return &testClient{conn: conn, reader: protocol.NewFrameReader(conn)}
}

func (c *testClient) send(t *testing.T, p protocol.Packet) {
	t.Helper()
	frame, err := protocol.Frame(p)
	if err != nil {
		t.Fatalf("Frame() returned an unexpected error: %v", err)
	}
	if _, err := c.conn.Write(frame); err != nil {
		t.Fatalf("failed to write frame: %v", err)
	}
}

func (c *testClient) readFrame(t *testing.T) protocol.RawFrame {
	t.Helper()
	frame, err := c.reader.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() returned an unexpected error: %v", err)
	}
	return frame
}

func (c *testClient) handshake(t *testing.T, nextState byte) {
	t.Helper()
	c.send(t, &protocol.Handshake{
		ProtocolVersion: 764,
		ServerAddress:   "localhost",
		ServerPort:      25565,
		NextState:       nextState,
	})
}

// readStringField decodes a VarInt-prefixed string from the front of payload,
// returning the string and the remaining bytes.
func readStringField(t *testing.T, payload []byte) (string, []byte) {
	t.Helper()
	length, consumed, err := protocol.DecodeVarInt(payload)
	if err != nil {
		t.Fatalf("failed to decode string length: %v", err)
	}
	end := consumed + int(length)
	if end > len(payload) {
		t.Fatalf("string field truncated: need %d bytes, have %d", end, len(payload))
	}
	return string(payload[consumed:end]), payload[end:]
}

func TestStatusFlow(t *testing.T) {
	addr, _ := setUpServer(t, core.DuplicatePolicyReject, 8)

	client := dial(t, addr)
	client.handshake(t, 1)
	client.send(t, &protocol.StatusRequest{})

	frame := client.readFrame(t)
	if frame.PacketID != protocol.StatusResponseID {
		t.Fatalf("response packet ID = 0x%02X, want 0x%02X", frame.PacketID, protocol.StatusResponseID)
	}

	statusJSON, _ := readStringField(t, frame.Payload)
	var doc statusDocument
	if err := json.Unmarshal([]byte(statusJSON), &doc); err != nil {
		t.Fatalf("status response is not valid JSON: %v", err)
	}
	if doc.Description.Text != "A Minegate Server" {
		t.Errorf("status MOTD = %q, want %q", doc.Description.Text, "A Minegate Server")
	}
	if doc.Version.Protocol != 764 {
		t.Errorf("status protocol = %d, want 764", doc.Version.Protocol)
	}
	if doc.Players.Max != 8 {
		t.Errorf("status max players = %d, want 8", doc.Players.Max)
	}
	if doc.Players.Online != 0 {
		t.Errorf("status online players = %d, want 0", doc.Players.Online)
	}

	client.send(t, &protocol.PingRequest{Payload: 987654321})
	pong := client.readFrame(t)
	if pong.PacketID != protocol.PongResponseID {
		t.Fatalf("pong packet ID = 0x%02X, want 0x%02X", pong.PacketID, protocol.PongResponseID)
	}

	// The status exchange is done; the server hangs up after the pong.
	if _, err := client.reader.ReadFrame(); err == nil {
		t.Error("expected the connection to be closed after the ping exchange")
	}
}

func loginAs(t *testing.T, addr net.Addr, username string) (*testClient, protocol.RawFrame) {
	t.Helper()
	client := dial(t, addr)
	client.handshake(t, 2)
	client.send(t, &protocol.LoginStart{Username: username})
	return client, client.readFrame(t)
}

func TestLoginFlow(t *testing.T) {
	addr, directory := setUpServer(t, core.DuplicatePolicyReject, 8)

	client, frame := loginAs(t, addr, "notch")
	if frame.PacketID != protocol.LoginSuccessID {
		t.Fatalf("response packet ID = 0x%02X, want 0x%02X", frame.PacketID, protocol.LoginSuccessID)
	}

	pkt, err := protocol.DeserializeLoginSuccess(frame.Payload)
	if err != nil {
		t.Fatalf("DeserializeLoginSuccess() returned an unexpected error: %v", err)
	}
	success := pkt.(*protocol.LoginSuccess)
	if success.Username != "notch" {
		t.Errorf("login success username = %q, want %q", success.Username, "notch")
	}
	if expected := auth.OfflinePlayerID("notch"); success.PlayerID != expected {
		t.Errorf("login success UUID = %s, want %s", success.PlayerID, expected)
	}

	if directory.FindByName("notch") == nil {
		t.Error("expected a directory entry for the logged-in player")
	}
	if directory.Len() != 1 {
		t.Errorf("directory has %d sessions, want 1", directory.Len())
	}

	// Keep-alives should be accepted silently once logged in.
	client.send(t, &protocol.KeepAlive{KeepAliveID: 7})
}

func TestLoginRejectedWhenFull(t *testing.T) {
	addr, _ := setUpServer(t, core.DuplicatePolicyReject, 1)

	_, frame := loginAs(t, addr, "notch")
	if frame.PacketID != protocol.LoginSuccessID {
		t.Fatalf("first login response = 0x%02X, want 0x%02X", frame.PacketID, protocol.LoginSuccessID)
	}

	second, frame := loginAs(t, addr, "jeb_")
	if frame.PacketID != protocol.LoginDisconnectID {
		t.Fatalf("second login response = 0x%02X, want 0x%02X", frame.PacketID, protocol.LoginDisconnectID)
	}
	if _, err := second.reader.ReadFrame(); err == nil {
		t.Error("expected the rejected connection to be closed")
	}
}

func TestDuplicateLoginRejected(t *testing.T) {
	addr, directory := setUpServer(t, core.DuplicatePolicyReject, 8)

	first, frame := loginAs(t, addr, "notch")
	if frame.PacketID != protocol.LoginSuccessID {
		t.Fatalf("first login response = 0x%02X, want 0x%02X", frame.PacketID, protocol.LoginSuccessID)
	}

	_, frame = loginAs(t, addr, "notch")
	if frame.PacketID != protocol.LoginDisconnectID {
		t.Fatalf("duplicate login response = 0x%02X, want 0x%02X", frame.PacketID, protocol.LoginDisconnectID)
	}

	reason, _ := readStringField(t, frame.Payload)
	var component struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(reason), &component); err != nil {
		t.Fatalf("disconnect reason is not valid JSON: %v", err)
	}

	// The first session must still be live.
	if directory.Len() != 1 {
		t.Errorf("directory has %d sessions, want 1", directory.Len())
	}
	first.send(t, &protocol.KeepAlive{KeepAliveID: 1})
}

func TestDuplicateLoginEvicts(t *testing.T) {
	addr, directory := setUpServer(t, core.DuplicatePolicyEvict, 8)

	first, frame := loginAs(t, addr, "notch")
	if frame.PacketID != protocol.LoginSuccessID {
		t.Fatalf("first login response = 0x%02X, want 0x%02X", frame.PacketID, protocol.LoginSuccessID)
	}

	_, frame = loginAs(t, addr, "notch")
	if frame.PacketID != protocol.LoginSuccessID {
		t.Fatalf("second login response = 0x%02X, want 0x%02X", frame.PacketID, protocol.LoginSuccessID)
	}

	// The first client gets kicked with a disconnect notice before its
	// socket closes.
	kicked := first.readFrame(t)
	if kicked.PacketID != protocol.PlayDisconnectID {
		t.Fatalf("evicted client received 0x%02X, want 0x%02X", kicked.PacketID, protocol.PlayDisconnectID)
	}
	if _, err := first.reader.ReadFrame(); err == nil {
		t.Error("expected the evicted connection to be closed")
	}

	if directory.Len() != 1 {
		t.Errorf("directory has %d sessions, want 1", directory.Len())
	}
}

func TestChatBroadcast(t *testing.T) {
	addr, _ := setUpServer(t, core.DuplicatePolicyReject, 8)

	notch, frame := loginAs(t, addr, "notch")
	if frame.PacketID != protocol.LoginSuccessID {
		t.Fatalf("login response = 0x%02X, want 0x%02X", frame.PacketID, protocol.LoginSuccessID)
	}
	jeb, frame := loginAs(t, addr, "jeb_")
	if frame.PacketID != protocol.LoginSuccessID {
		t.Fatalf("login response = 0x%02X, want 0x%02X", frame.PacketID, protocol.LoginSuccessID)
	}

	notch.send(t, &protocol.ChatMessage{Message: "hello world"})

	for _, client := range []*testClient{notch, jeb} {
		chat := client.readFrame(t)
		if chat.PacketID != protocol.ServerChatID {
			t.Fatalf("broadcast packet ID = 0x%02X, want 0x%02X", chat.PacketID, protocol.ServerChatID)
		}

		sender, rest := readStringField(t, chat.Payload)
		message, _ := readStringField(t, rest)
		if sender != "notch" {
			t.Errorf("chat sender = %q, want %q", sender, "notch")
		}
		if message != "hello world" {
			t.Errorf("chat message = %q, want %q", message, "hello world")
		}
	}
}
