package protocol

import "fmt"

// Registry maps (phase, packet ID) pairs to the deserializers for the packet
// types a server understands. It is populated by explicit Register calls
// during startup, before any connection is accepted; after that it is treated
// as immutable and may be shared freely across goroutines without locking.
//
// Only serverbound packets need registration since those are the only ones
// the server deserializes; clientbound types just implement Packet.
type Registry struct {
	deserializers map[registryKey]Deserializer
}

type registryKey struct {
	phase Phase
	id    byte
}

// UnknownPacketIDError is returned by Resolve for an unregistered (phase, id)
// pair. Recoverable at the connection level: log it, drop the frame, keep
// reading.
type UnknownPacketIDError struct {
	Phase    Phase
	PacketID byte
}

func (e *UnknownPacketIDError) Error() string {
	return fmt.Sprintf("unknown packet ID 0x%02x in %s phase", e.PacketID, e.Phase)
}

// DuplicatePacketIDError is returned by Register when a (phase, id) pair is
// already claimed. Registration conflicts are programming errors and should
// abort startup.
type DuplicatePacketIDError struct {
	Phase    Phase
	PacketID byte
}

func (e *DuplicatePacketIDError) Error() string {
	return fmt.Sprintf("packet ID 0x%02x already registered in %s phase", e.PacketID, e.Phase)
}

func NewRegistry() *Registry {
	return &Registry{deserializers: make(map[registryKey]Deserializer)}
}

// Register associates a deserializer with the (phase, id) pair. Registrations
// are never silently overwritten.
func (r *Registry) Register(phase Phase, id byte, d Deserializer) error {
	key := registryKey{phase: phase, id: id}
	if _, ok := r.deserializers[key]; ok {
		return &DuplicatePacketIDError{Phase: phase, PacketID: id}
	}
	r.deserializers[key] = d
	return nil
}

// Resolve looks up the deserializer for (phase, id) and invokes it on payload,
// producing the typed packet.
func (r *Registry) Resolve(phase Phase, id byte, payload []byte) (Packet, error) {
	d, ok := r.deserializers[registryKey{phase: phase, id: id}]
	if !ok {
		return nil, &UnknownPacketIDError{Phase: phase, PacketID: id}
	}
	return d(payload)
}
