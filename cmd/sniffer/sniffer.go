package main

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/gopacket"

	"github.com/mcastelli/minegate/internal/protocol"
)

// flowDecoder accumulates the TCP payload bytes of one direction of one
// connection and peels complete frames off the front as they fill in.
type flowDecoder struct {
	buffer []byte
}

// feed appends captured bytes and returns any frames that are now complete.
// An invalid length prefix abandons the flow's buffer, since there is no way
// to resynchronize mid-stream.
func (d *flowDecoder) feed(data []byte) []protocol.RawFrame {
	d.buffer = append(d.buffer, data...)

	var frames []protocol.RawFrame
	for {
		length, consumed, err := protocol.DecodeVarInt(d.buffer)
		if err != nil {
			if errors.Is(err, protocol.ErrInvalidVarInt) {
				d.buffer = nil
			}
			return frames
		}
		if length == 0 {
			d.buffer = d.buffer[consumed:]
			continue
		}

		total := consumed + int(length)
		if len(d.buffer) < total {
			return frames
		}

		frames = append(frames, protocol.RawFrame{
			PacketID: d.buffer[consumed],
			Payload:  append([]byte(nil), d.buffer[consumed+1:total]...),
		})
		d.buffer = d.buffer[total:]
	}
}

type sniffer struct {
	writer     *bufio.Writer
	serverPort uint16

	flows map[string]*flowDecoder
}

func (s *sniffer) startReading(packetChan chan gopacket.Packet) {
	s.flows = make(map[string]*flowDecoder)

	for packet := range packetChan {
		transport := packet.TransportLayer()
		application := packet.ApplicationLayer()
		if transport == nil || application == nil {
			continue
		}

		flow := transport.TransportFlow()
		dstPort := binary.BigEndian.Uint16(flow.Dst().Raw())

		// Only the serverbound direction carries frames this tool can
		// resolve; clientbound IDs overlap and aren't registered.
		if dstPort != s.serverPort {
			continue
		}

		key := flow.String()
		decoder, ok := s.flows[key]
		if !ok {
			decoder = &flowDecoder{}
			s.flows[key] = decoder
		}

		for _, frame := range decoder.feed(application.Payload()) {
			s.printFrame(key, frame)
		}
	}
}

func (s *sniffer) printFrame(flow string, frame protocol.RawFrame) {
	fmt.Fprintf(s.writer, "%s: packet 0x%02X (%d byte payload)\n", flow, frame.PacketID, len(frame.Payload))
	if len(frame.Payload) > 0 {
		fmt.Fprint(s.writer, hex.Dump(frame.Payload))
	}
	_ = s.writer.Flush()
}
