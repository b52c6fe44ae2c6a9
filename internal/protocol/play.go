package protocol

// Play phase packet IDs.
const (
	ChatMessageID     byte = 0x05
	KeepAliveID       byte = 0x12
	ServerChatID      byte = 0x06
	PlayDisconnectID  byte = 0x1A
	ServerKeepAliveID byte = 0x23
)

// ChatMessage is a serverbound chat line from a player.
type ChatMessage struct {
	Message string
}

func (*ChatMessage) ID() byte { return ChatMessageID }

func (c *ChatMessage) Serialize() ([]byte, error) {
	return appendString(nil, c.Message), nil
}

func DeserializeChatMessage(payload []byte) (Packet, error) {
	r := newPayloadReader(payload)
	c := &ChatMessage{}

	var err error
	if c.Message, err = r.readString(); err != nil {
		return nil, &DeserializeError{PacketID: ChatMessageID, Err: err}
	}
	if err = r.expectEmpty(); err != nil {
		return nil, &DeserializeError{PacketID: ChatMessageID, Err: err}
	}
	return c, nil
}

// KeepAlive is the serverbound half of the keep-alive exchange; the client
// echoes the ID the server last sent.
type KeepAlive struct {
	KeepAliveID int64
}

func (*KeepAlive) ID() byte { return KeepAliveID }

func (k *KeepAlive) Serialize() ([]byte, error) {
	return appendInt64(nil, k.KeepAliveID), nil
}

func DeserializeKeepAlive(payload []byte) (Packet, error) {
	r := newPayloadReader(payload)
	k := &KeepAlive{}

	var err error
	if k.KeepAliveID, err = r.readInt64(); err != nil {
		return nil, &DeserializeError{PacketID: KeepAliveID, Err: err}
	}
	if err = r.expectEmpty(); err != nil {
		return nil, &DeserializeError{PacketID: KeepAliveID, Err: err}
	}
	return k, nil
}

// ServerChat is a clientbound chat line attributed to a sender.
type ServerChat struct {
	Sender  string
	Message string
}

func (*ServerChat) ID() byte { return ServerChatID }

func (s *ServerChat) Serialize() ([]byte, error) {
	payload := appendString(nil, s.Sender)
	payload = appendString(payload, s.Message)
	return payload, nil
}

// ServerKeepAlive is the clientbound keep-alive probe.
type ServerKeepAlive struct {
	KeepAliveID int64
}

func (*ServerKeepAlive) ID() byte { return ServerKeepAliveID }

func (k *ServerKeepAlive) Serialize() ([]byte, error) {
	return appendInt64(nil, k.KeepAliveID), nil
}

// PlayDisconnect kicks a player with a JSON chat component reason. Sent to
// every session during server shutdown.
type PlayDisconnect struct {
	Reason string
}

func (*PlayDisconnect) ID() byte { return PlayDisconnectID }

func (p *PlayDisconnect) Serialize() ([]byte, error) {
	return appendString(nil, p.Reason), nil
}
