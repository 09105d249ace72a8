// Package protocol implements the LIFX LAN binary wire format.
//
// Every LIFX datagram is a fixed 36-byte header followed by a payload whose
// layout is selected by the header's message type. All integers are
// little-endian. Payload structs carry struc tags and are packed with
// github.com/lunixbochs/struc.
//
// # Header Layout
//
//	offset  size  field
//	0       2     size (header + payload)
//	2       2     protocol (12 bits, 1024) | addressable | tagged | origin
//	4       4     source identifier
//	8       6     target MAC (all zero for broadcast), 2 reserved
//	16      6     reserved
//	22      1     response flags: bit0 res_required, bit1 ack_required
//	23      1     sequence number
//	24      8     reserved
//	32      2     message type
//	34      2     reserved
//
// # Message Types
//
// Each supported message is a struct implementing Message. Type ids that this
// package does not model decode to *Unknown so newer firmware traffic never
// fails to parse.
//
// # Usage Example - Encoding
//
//	frame := protocol.NewFrame(mac, source, seq, &protocol.SetPower{Level: protocol.PowerOn}).WithAck()
//	data, err := protocol.Encode(frame)
//	if err != nil {
//	    return err
//	}
//	conn.Write(data)
//
// # Usage Example - Decoding
//
//	frame, err := protocol.Decode(datagram)
//	if protocol.IsMalformed(err) {
//	    // Truncated or corrupt datagram, drop it
//	}
//	switch msg := frame.Payload.(type) {
//	case *protocol.StatePower:
//	    fmt.Println(msg.Level == protocol.PowerOn)
//	}
//
// # String Fields
//
// Labels are fixed 32-byte NUL padded arrays. Use NewLabel to build one
// (longer strings are truncated) and LabelString to read one back.
//
// # Thread Safety
//
// Encode and Decode keep no shared state and are safe for concurrent use.
package protocol
