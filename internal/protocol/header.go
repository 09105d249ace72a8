package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Header and addressing constants
const (
	// HeaderSize is the fixed size of every LIFX LAN frame header in bytes.
	HeaderSize = 36

	// ProtocolNumber is the only protocol number understood by LIFX devices.
	ProtocolNumber = 1024

	// DefaultPort is the UDP port devices listen on and discovery broadcasts to.
	DefaultPort = 56700

	// MaxSequence is the largest sequence number a client issues before wrapping to 0.
	MaxSequence = 127
)

// Bits of the 16-bit protocol/flags word at offset 2.
const (
	protocolMask    = 0x0FFF
	addressableFlag = 1 << 12
	taggedFlag      = 1 << 13
	originShift     = 14
)

// Bits of the response flags byte at offset 22.
const (
	resRequiredFlag = 0x01
	ackRequiredFlag = 0x02
)

// MAC is a 6-byte device address as carried in the frame target field.
type MAC [6]byte

// BroadcastMAC is the all-zero target used for discovery and tagged frames.
var BroadcastMAC = MAC{}

// ErrInvalidMAC is returned by ParseMAC for malformed addresses.
var ErrInvalidMAC = errors.New("invalid MAC address")

// ParseMAC parses a colon, dash or dot separated hardware address.
func ParseMAC(s string) (MAC, error) {
	hw, err := net.ParseMAC(strings.TrimSpace(s))
	if err != nil || len(hw) != 6 {
		return MAC{}, fmt.Errorf("%w: %q", ErrInvalidMAC, s)
	}
	var m MAC
	copy(m[:], hw)
	return m, nil
}

// MustParseMAC is ParseMAC for constants; it panics on error.
func MustParseMAC(s string) MAC {
	m, err := ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return m
}

// String returns the canonical lower-case colon separated form.
func (m MAC) String() string {
	return net.HardwareAddr(m[:]).String()
}

// IsBroadcast reports whether m is the all-zero sentinel.
func (m MAC) IsBroadcast() bool {
	return m == BroadcastMAC
}

// Header is the decoded form of the 36-byte frame header.
type Header struct {
	Size        uint16 // Total frame size, filled in by Encode and Decode
	Protocol    uint16 // Always ProtocolNumber on frames we build
	Addressable bool
	Tagged      bool // Set for broadcast frames (target is BroadcastMAC)
	Origin      uint8
	Source      uint32 // Client chosen identifier echoed back by the device
	Target      MAC
	AckRequired bool
	ResRequired bool
	Sequence    uint8
	Type        uint16
}

// wireHeader mirrors the on-the-wire byte layout for struc.
type wireHeader struct {
	Size      uint16
	Flags     uint16
	Source    uint32
	Target    [6]byte
	Reserved1 [2]byte `struc:"[2]pad"`
	Reserved2 [6]byte `struc:"[6]pad"`
	Response  uint8
	Sequence  uint8
	Reserved3 uint64 `struc:"[8]pad"`
	Type      uint16
	Reserved4 uint16 `struc:"[2]pad"`
}

func (h *Header) toWire() wireHeader {
	proto := h.Protocol
	if proto == 0 {
		proto = ProtocolNumber
	}
	flags := proto & protocolMask
	if h.Addressable {
		flags |= addressableFlag
	}
	if h.Tagged {
		flags |= taggedFlag
	}
	flags |= uint16(h.Origin&0x03) << originShift

	var resp uint8
	if h.ResRequired {
		resp |= resRequiredFlag
	}
	if h.AckRequired {
		resp |= ackRequiredFlag
	}

	return wireHeader{
		Size:     h.Size,
		Flags:    flags,
		Source:   h.Source,
		Target:   h.Target,
		Response: resp,
		Sequence: h.Sequence,
		Type:     h.Type,
	}
}

func headerFromWire(w *wireHeader) Header {
	return Header{
		Size:        w.Size,
		Protocol:    w.Flags & protocolMask,
		Addressable: w.Flags&addressableFlag != 0,
		Tagged:      w.Flags&taggedFlag != 0,
		Origin:      uint8(w.Flags >> originShift),
		Source:      w.Source,
		Target:      MAC(w.Target),
		AckRequired: w.Response&ackRequiredFlag != 0,
		ResRequired: w.Response&resRequiredFlag != 0,
		Sequence:    w.Sequence,
		Type:        w.Type,
	}
}

// PeekType returns the message type of a raw frame without decoding the payload.
func PeekType(b []byte) (uint16, bool) {
	if len(b) < HeaderSize {
		return 0, false
	}
	return binary.LittleEndian.Uint16(b[32:34]), true
}

// String implements fmt.Stringer for log output.
func (h Header) String() string {
	return fmt.Sprintf("Header{type=%d (%s), size=%d, source=0x%08x, target=%s, seq=%d, ack=%t, res=%t, tagged=%t}",
		h.Type, TypeName(h.Type), h.Size, h.Source, h.Target, h.Sequence, h.AckRequired, h.ResRequired, h.Tagged)
}
