package protocol

// HandshakeID is the ID of the phase-establishing packet, the only packet
// type valid in the Handshaking phase.
const HandshakeID byte = 0x00

// Handshake is the first packet a modern client sends. Its NextState field
// selects the phase (Status or Login) for the rest of the connection.
type Handshake struct {
	ProtocolVersion uint16
	ServerAddress   string
	ServerPort      uint16
	NextState       byte
}

func (h *Handshake) ID() byte { return HandshakeID }

func (h *Handshake) Serialize() ([]byte, error) {
	payload := appendUint16(nil, h.ProtocolVersion)
	payload = appendString(payload, h.ServerAddress)
	payload = appendUint16(payload, h.ServerPort)
	payload = append(payload, h.NextState)
	return payload, nil
}

// DeserializeHandshake reconstructs a Handshake from raw payload bytes.
func DeserializeHandshake(payload []byte) (Packet, error) {
	r := newPayloadReader(payload)
	h := &Handshake{}

	var err error
	if h.ProtocolVersion, err = r.readUint16(); err != nil {
		return nil, &DeserializeError{PacketID: HandshakeID, Err: err}
	}
	if h.ServerAddress, err = r.readString(); err != nil {
		return nil, &DeserializeError{PacketID: HandshakeID, Err: err}
	}
	if h.ServerPort, err = r.readUint16(); err != nil {
		return nil, &DeserializeError{PacketID: HandshakeID, Err: err}
	}
	if h.NextState, err = r.readByte(); err != nil {
		return nil, &DeserializeError{PacketID: HandshakeID, Err: err}
	}
	if err = r.expectEmpty(); err != nil {
		return nil, &DeserializeError{PacketID: HandshakeID, Err: err}
	}

	return h, nil
}
