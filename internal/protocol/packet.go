package protocol

import "fmt"

// Phase identifies the protocol sub-context that scopes the meaning of a
// packet ID. A connection starts in the Handshaking phase and is moved along
// by the handshake packet's next_state field.
type Phase byte

const (
	Handshaking Phase = iota
	Status
	Login
	Play
)

func (p Phase) String() string {
	switch p {
	case Handshaking:
		return "handshaking"
	case Status:
		return "status"
	case Login:
		return "login"
	case Play:
		return "play"
	default:
		return fmt.Sprintf("phase(%d)", byte(p))
	}
}

// Packet is the capability implemented by every typed payload that can be
// sent or received on the wire. ID returns the packet's numeric ID within its
// phase; Serialize produces the raw payload bytes (excluding the length
// prefix and the ID byte, which are added by Frame).
type Packet interface {
	ID() byte
	Serialize() ([]byte, error)
}

// Deserializer reconstructs a typed Packet from raw payload bytes. It returns
// a DeserializeError when the bytes do not match the expected shape.
type Deserializer func(payload []byte) (Packet, error)

// DeserializeError indicates that a payload could not be decoded into the
// packet type registered for its ID. Fatal to the connection, not the server.
type DeserializeError struct {
	PacketID byte
	Err      error
}

func (e *DeserializeError) Error() string {
	return fmt.Sprintf("malformed payload for packet 0x%02x: %v", e.PacketID, e.Err)
}

func (e *DeserializeError) Unwrap() error { return e.Err }

// Frame wraps a packet into its wire format:
//
//	VarInt  length     (bytes in packet_id + payload)
//	byte    packet_id
//	byte[]  payload
func Frame(p Packet) ([]byte, error) {
	payload, err := p.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serializing packet 0x%02x: %w", p.ID(), err)
	}

	length := uint32(len(payload) + 1)
	frame := make([]byte, 0, VarIntSize(length)+int(length))
	frame = EncodeVarInt(frame, length)
	frame = append(frame, p.ID())
	frame = append(frame, payload...)

	return frame, nil
}
