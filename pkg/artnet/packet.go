// Package artnet provides Art-Net protocol packet building and parsing.
package artnet

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	// OpCodeDMX is the Art-Net operation code for DMX data.
	OpCodeDMX uint16 = 0x5000
	// ProtocolVersion is the Art-Net protocol version.
	ProtocolVersion uint16 = 14
	// DMXDataLength is the number of DMX channels per universe.
	DMXDataLength uint16 = 512
	// PacketSize is the total size of an Art-Net DMX packet.
	PacketSize = DataOffset + DMXDataLength // Header (18) + Data (512)
	// DefaultPort is the standard Art-Net UDP port.
	DefaultPort = 6454
	// DefaultMaxPacketSize is the receive buffer size for one datagram.
	DefaultMaxPacketSize = 530

	// SequenceOffset is the position of the sequence byte.
	SequenceOffset = 12
	// PhysicalOffset is the position of the physical input port byte.
	PhysicalOffset = 13
	// UniverseOffset is the position of the (low) universe byte.
	UniverseOffset = 14
	// DataOffset is where the DMX channel data begins.
	DataOffset = 18
)

// ArtNetID is the Art-Net packet identifier.
var ArtNetID = []byte{'A', 'r', 't', '-', 'N', 'e', 't', 0x00}

// ParseError describes a malformed Art-Net datagram.
type ParseError struct {
	Message string
	Offset  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("artnet: %s (offset %d)", e.Message, e.Offset)
}

// DMXPacket is a parsed view over a received ArtDmx datagram.
// Data aliases the datagram buffer; copy it before the buffer is reused.
type DMXPacket struct {
	Sequence byte
	Physical byte
	Universe int
	Data     []byte
}

// BuildDMXPacket creates an Art-Net DMX packet for the specified universe.
// Universe should be 1-based, as used by senders configured in the UI.
// Channels should be exactly 512 bytes.
// Sequence should increment for each packet (0-255, wraps around) to enable receivers
// to detect and handle out-of-order UDP packets.
func BuildDMXPacket(universe int, channels []byte, sequence byte) []byte {
	packet := make([]byte, PacketSize)

	// Art-Net header
	copy(packet[0:8], ArtNetID)                                      // ID (8 bytes): "Art-Net\0"
	binary.LittleEndian.PutUint16(packet[8:10], OpCodeDMX)           // OpCode (2 bytes): 0x5000 for DMX
	binary.BigEndian.PutUint16(packet[10:12], ProtocolVersion)       // Protocol version (2 bytes): 14
	packet[SequenceOffset] = sequence                                // Sequence (1 byte): increments for each packet
	packet[PhysicalOffset] = 0                                       // Physical input port (1 byte): 0
	binary.LittleEndian.PutUint16(packet[14:16], uint16(universe-1)) // Universe (2 bytes): 0-based
	binary.BigEndian.PutUint16(packet[16:18], DMXDataLength)         // Data length (2 bytes): 512

	// DMX data (512 channels)
	if len(channels) >= 512 {
		copy(packet[DataOffset:PacketSize], channels[:512])
	} else {
		// Pad with zeros if less than 512 channels provided
		copy(packet[DataOffset:DataOffset+len(channels)], channels)
	}

	return packet
}

// MinPacketLength is the shortest datagram that carries a header and
// dataLength bytes of channel data.
func MinPacketLength(dataLength int) int {
	return DataOffset + dataLength
}

// ParseDMXPacket extracts the universe index and exactly dataLength bytes of
// channel data from b. Only the low universe byte is read, which matches
// senders that address universes 0-255 within net/subnet zero.
func ParseDMXPacket(b []byte, dataLength int) (DMXPacket, error) {
	if len(b) <= UniverseOffset {
		return DMXPacket{}, &ParseError{Message: "packet shorter than header", Offset: len(b)}
	}
	if len(b) < MinPacketLength(dataLength) {
		return DMXPacket{}, &ParseError{Message: "packet shorter than channel data", Offset: len(b)}
	}

	return DMXPacket{
		Sequence: b[SequenceOffset],
		Physical: b[PhysicalOffset],
		Universe: int(b[UniverseOffset]),
		Data:     b[DataOffset : DataOffset+dataLength],
	}, nil
}

// ValidateHeader checks the Art-Net ID and that the OpCode is ArtDmx.
func ValidateHeader(b []byte) error {
	if len(b) < DataOffset {
		return &ParseError{Message: "packet shorter than header", Offset: len(b)}
	}
	if !bytes.Equal(b[0:8], ArtNetID) {
		return &ParseError{Message: "invalid Art-Net ID", Offset: 0}
	}
	if op := binary.LittleEndian.Uint16(b[8:10]); op != OpCodeDMX {
		return &ParseError{Message: fmt.Sprintf("unexpected opcode 0x%04x", op), Offset: 8}
	}
	return nil
}
