package protocol

import (
	"fmt"
)

// Frame is one message on the wire: a header plus a typed payload.
// Frames are built fresh for every send and not modified afterwards.
type Frame struct {
	Header
	Payload Message
}

// NewFrame builds a frame addressed to target. A BroadcastMAC target produces
// a tagged frame, anything else an untagged one.
func NewFrame(target MAC, source uint32, seq uint8, msg Message) *Frame {
	return &Frame{
		Header: Header{
			Protocol:    ProtocolNumber,
			Addressable: true,
			Tagged:      target.IsBroadcast(),
			Source:      source,
			Target:      target,
			Sequence:    seq,
			Type:        msg.Type(),
		},
		Payload: msg,
	}
}

// WithAck returns f with the acknowledgement flag set.
func (f *Frame) WithAck() *Frame {
	f.AckRequired = true
	return f
}

// WithResponse returns f with the response flag set.
func (f *Frame) WithResponse() *Frame {
	f.ResRequired = true
	return f
}

// String implements fmt.Stringer.
func (f *Frame) String() string {
	payload := "<nil>"
	if f.Payload != nil {
		payload = f.Payload.String()
	}
	return fmt.Sprintf("Frame{%s, payload=%s}", f.Header, payload)
}
