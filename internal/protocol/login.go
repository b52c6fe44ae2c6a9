package protocol

import "github.com/google/uuid"

// Login phase packet IDs.
const (
	LoginStartID      byte = 0x00
	LoginDisconnectID byte = 0x00
	LoginSuccessID    byte = 0x02
)

// LoginStart begins the login phase; the client announces the username it
// wants to play as.
type LoginStart struct {
	Username string
}

func (*LoginStart) ID() byte { return LoginStartID }

func (l *LoginStart) Serialize() ([]byte, error) {
	return appendString(nil, l.Username), nil
}

func DeserializeLoginStart(payload []byte) (Packet, error) {
	r := newPayloadReader(payload)
	l := &LoginStart{}

	var err error
	if l.Username, err = r.readString(); err != nil {
		return nil, &DeserializeError{PacketID: LoginStartID, Err: err}
	}
	if err = r.expectEmpty(); err != nil {
		return nil, &DeserializeError{PacketID: LoginStartID, Err: err}
	}
	return l, nil
}

// LoginSuccess completes the login phase and moves the connection to Play.
type LoginSuccess struct {
	PlayerID uuid.UUID
	Username string
}

func (*LoginSuccess) ID() byte { return LoginSuccessID }

func (l *LoginSuccess) Serialize() ([]byte, error) {
	payload := append([]byte(nil), l.PlayerID[:]...)
	payload = appendString(payload, l.Username)
	return payload, nil
}

func DeserializeLoginSuccess(payload []byte) (Packet, error) {
	r := newPayloadReader(payload)
	l := &LoginSuccess{}

	idBytes, err := r.readBytes(16)
	if err != nil {
		return nil, &DeserializeError{PacketID: LoginSuccessID, Err: err}
	}
	copy(l.PlayerID[:], idBytes)

	if l.Username, err = r.readString(); err != nil {
		return nil, &DeserializeError{PacketID: LoginSuccessID, Err: err}
	}
	if err = r.expectEmpty(); err != nil {
		return nil, &DeserializeError{PacketID: LoginSuccessID, Err: err}
	}
	return l, nil
}

// LoginDisconnect rejects a login attempt with a JSON chat component reason.
type LoginDisconnect struct {
	Reason string
}

func (*LoginDisconnect) ID() byte { return LoginDisconnectID }

func (l *LoginDisconnect) Serialize() ([]byte, error) {
	return appendString(nil, l.Reason), nil
}
