package protocol

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// LegacyPingByte is the first byte sent by pre-Netty clients performing a
// server list ping. It can never begin a valid modern frame from a client:
// as a VarInt length prefix it would declare an absurd multi-byte length.
const LegacyPingByte byte = 0xFE

// EncodeLegacyPingResponse builds the legacy 0xFF "kick" packet that answers
// a pre-Netty server list ping:
//
//	byte    0xFF
//	uint16  character count (UTF-16 code units)
//	byte[]  UTF-16BE string "§1\0<protocol>\0<version>\0<motd>\0<online>\0<max>"
func EncodeLegacyPingResponse(protocolVersion int, versionName, motd string, online, max int) ([]byte, error) {
	fields := []string{
		"§1",
		fmt.Sprintf("%d", protocolVersion),
		versionName,
		motd,
		fmt.Sprintf("%d", online),
		fmt.Sprintf("%d", max),
	}
	payload := strings.Join(fields, "\x00")

	encoder := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder()
	encoded, err := encoder.Bytes([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("encoding legacy ping response: %w", err)
	}

	out := make([]byte, 0, 3+len(encoded))
	out = append(out, 0xFF)
	out = appendUint16(out, uint16(len(encoded)/2))
	out = append(out, encoded...)
	return out, nil
}
