package protocol

// Status phase packet IDs.
const (
	StatusRequestID  byte = 0x00
	StatusResponseID byte = 0x00
	PingRequestID    byte = 0x01
	PongResponseID   byte = 0x01
)

// StatusRequest asks the server for its list ping metadata. Empty payload.
type StatusRequest struct{}

func (*StatusRequest) ID() byte { return StatusRequestID }

func (*StatusRequest) Serialize() ([]byte, error) { return nil, nil }

func DeserializeStatusRequest(payload []byte) (Packet, error) {
	if err := newPayloadReader(payload).expectEmpty(); err != nil {
		return nil, &DeserializeError{PacketID: StatusRequestID, Err: err}
	}
	return &StatusRequest{}, nil
}

// StatusResponse carries the JSON status document shown in the client's
// server list (version, player counts, MOTD).
type StatusResponse struct {
	JSON string
}

func (*StatusResponse) ID() byte { return StatusResponseID }

func (s *StatusResponse) Serialize() ([]byte, error) {
	return appendString(nil, s.JSON), nil
}

// PingRequest carries an arbitrary client payload that must be echoed back
// verbatim so the client can measure latency.
type PingRequest struct {
	Payload int64
}

func (*PingRequest) ID() byte { return PingRequestID }

func (p *PingRequest) Serialize() ([]byte, error) {
	return appendInt64(nil, p.Payload), nil
}

func DeserializePingRequest(payload []byte) (Packet, error) {
	r := newPayloadReader(payload)
	p := &PingRequest{}

	var err error
	if p.Payload, err = r.readInt64(); err != nil {
		return nil, &DeserializeError{PacketID: PingRequestID, Err: err}
	}
	if err = r.expectEmpty(); err != nil {
		return nil, &DeserializeError{PacketID: PingRequestID, Err: err}
	}
	return p, nil
}

// PongResponse echoes a PingRequest's payload.
type PongResponse struct {
	Payload int64
}

func (*PongResponse) ID() byte { return PongResponseID }

func (p *PongResponse) Serialize() ([]byte, error) {
	return appendInt64(nil, p.Payload), nil
}
