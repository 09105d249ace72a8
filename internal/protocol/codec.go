package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"reflect"
	"unicode/utf8"

	"github.com/lunixbochs/struc"
)

// Decode errors. All of them describe a malformed frame which receivers drop.
var (
	ErrShortFrame      = errors.New("frame shorter than header")
	ErrSizeMismatch    = errors.New("declared frame size does not match datagram")
	ErrPayloadTooShort = errors.New("payload shorter than message layout")
)

// ErrUnsupportedValue is returned by Encode when an enum field holds a value the
// protocol does not define.
var ErrUnsupportedValue = errors.New("unsupported field value")

// ErrFrameTooLarge is returned by Encode when header plus payload do not fit
// the 16-bit size field.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// factories maps a wire type id to a constructor for its payload struct.
var factories = map[uint16]func() Message{
	TypeGetService:        func() Message { return &GetService{} },
	TypeStateService:      func() Message { return &StateService{} },
	TypeGetHostInfo:       func() Message { return &GetHostInfo{} },
	TypeStateHostInfo:     func() Message { return &StateHostInfo{} },
	TypeGetHostFirmware:   func() Message { return &GetHostFirmware{} },
	TypeStateHostFirmware: func() Message { return &StateHostFirmware{} },
	TypeGetWifiInfo:       func() Message { return &GetWifiInfo{} },
	TypeStateWifiInfo:     func() Message { return &StateWifiInfo{} },
	TypeGetWifiFirmware:   func() Message { return &GetWifiFirmware{} },
	TypeStateWifiFirmware: func() Message { return &StateWifiFirmware{} },
	TypeGetPower:          func() Message { return &GetPower{} },
	TypeSetPower:          func() Message { return &SetPower{} },
	TypeStatePower:        func() Message { return &StatePower{} },
	TypeGetLabel:          func() Message { return &GetLabel{} },
	TypeSetLabel:          func() Message { return &SetLabel{} },
	TypeStateLabel:        func() Message { return &StateLabel{} },
	TypeGetVersion:        func() Message { return &GetVersion{} },
	TypeStateVersion:      func() Message { return &StateVersion{} },
	TypeGetInfo:           func() Message { return &GetInfo{} },
	TypeStateInfo:         func() Message { return &StateInfo{} },
	TypeAcknowledgement:   func() Message { return &Acknowledgement{} },
	TypeGetLocation:       func() Message { return &GetLocation{} },
	TypeStateLocation:     func() Message { return &StateLocation{} },
	TypeGetGroup:          func() Message { return &GetGroup{} },
	TypeStateGroup:        func() Message { return &StateGroup{} },
	TypeEchoRequest:       func() Message { return &EchoRequest{} },
	TypeEchoResponse:      func() Message { return &EchoResponse{} },

	TypeLightGet:           func() Message { return &LightGet{} },
	TypeLightSetColor:      func() Message { return &LightSetColor{} },
	TypeLightSetWaveform:   func() Message { return &LightSetWaveform{} },
	TypeLightState:         func() Message { return &LightState{} },
	TypeLightGetPower:      func() Message { return &LightGetPower{} },
	TypeLightSetPower:      func() Message { return &LightSetPower{} },
	TypeLightStatePower:    func() Message { return &LightStatePower{} },
	TypeLightGetInfrared:   func() Message { return &LightGetInfrared{} },
	TypeLightStateInfrared: func() Message { return &LightStateInfrared{} },
	TypeLightSetInfrared:   func() Message { return &LightSetInfrared{} },

	TypeMultiZoneSetColorZones:  func() Message { return &MultiZoneSetColorZones{} },
	TypeMultiZoneGetColorZones:  func() Message { return &MultiZoneGetColorZones{} },
	TypeMultiZoneStateZone:      func() Message { return &MultiZoneStateZone{} },
	TypeMultiZoneStateMultiZone: func() Message { return &MultiZoneStateMultiZone{} },
}

// NewMessage returns an empty payload struct for a type id, or nil if unknown.
func NewMessage(typ uint16) Message {
	if f, ok := factories[typ]; ok {
		return f()
	}
	return nil
}

// TypeName returns the name of a message type for logs, e.g. "StatePower".
func TypeName(typ uint16) string {
	m := NewMessage(typ)
	if m == nil {
		return fmt.Sprintf("Unknown(%d)", typ)
	}
	return reflect.TypeOf(m).Elem().Name()
}

// structOptions returns fresh options on every call; struc mutates them in Validate.
func structOptions() *struc.Options {
	return &struc.Options{Order: binary.LittleEndian}
}

func hasFields(m Message) bool {
	return reflect.TypeOf(m).Elem().NumField() > 0
}

// PayloadSize returns the encoded payload length of m.
func PayloadSize(m Message) (int, error) {
	if u, ok := m.(*Unknown); ok {
		return len(u.Data), nil
	}
	if !hasFields(m) {
		return 0, nil
	}
	return struc.SizeofWithOptions(m, structOptions())
}

func validate(m Message) error {
	switch v := m.(type) {
	case *LightSetWaveform:
		if Waveform(v.Waveform) > WaveformPulse {
			return fmt.Errorf("%w: waveform %d", ErrUnsupportedValue, v.Waveform)
		}
	case *MultiZoneSetColorZones:
		if ZoneApply(v.Apply) > ZoneApplyOnly {
			return fmt.Errorf("%w: apply %d", ErrUnsupportedValue, v.Apply)
		}
	}
	return nil
}

// Encode serialises a frame. The size field and the protocol number are
// computed here; every other header field is taken from f as is.
func Encode(f *Frame) ([]byte, error) {
	if f.Payload == nil {
		return nil, fmt.Errorf("failed to encode frame: nil payload")
	}
	if err := validate(f.Payload); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", TypeName(f.Payload.Type()), err)
	}

	size, err := PayloadSize(f.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to size payload: %w", err)
	}

	if HeaderSize+size > math.MaxUint16 {
		return nil, fmt.Errorf("failed to encode %s: %d byte payload: %w", TypeName(f.Payload.Type()), size, ErrFrameTooLarge)
	}

	h := f.Header
	h.Type = f.Payload.Type()
	h.Size = uint16(HeaderSize + size)

	var buf bytes.Buffer
	buf.Grow(HeaderSize + size)

	wire := h.toWire()
	if err := struc.PackWithOptions(&buf, &wire, structOptions()); err != nil {
		return nil, fmt.Errorf("failed to pack header: %w", err)
	}

	switch p := f.Payload.(type) {
	case *Unknown:
		buf.Write(p.Data)
	default:
		if hasFields(p) {
			if err := struc.PackWithOptions(&buf, p, structOptions()); err != nil {
				return nil, fmt.Errorf("failed to pack %s: %w", TypeName(p.Type()), err)
			}
		}
	}

	return buf.Bytes(), nil
}

// Decode parses one datagram. Unknown type ids decode to *Unknown.
func Decode(b []byte) (*Frame, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes (minimum %d)", ErrShortFrame, len(b), HeaderSize)
	}

	var wire wireHeader
	if err := struc.UnpackWithOptions(bytes.NewReader(b[:HeaderSize]), &wire, structOptions()); err != nil {
		return nil, fmt.Errorf("failed to unpack header: %w", err)
	}

	size := int(wire.Size)
	if size < HeaderSize || size > len(b) {
		return nil, fmt.Errorf("%w: declared %d, received %d", ErrSizeMismatch, size, len(b))
	}
	// Trailing bytes past the declared size are ignored.
	payload := b[HeaderSize:size]

	frame := &Frame{Header: headerFromWire(&wire)}

	msg := NewMessage(wire.Type)
	if msg == nil {
		data := make([]byte, len(payload))
		copy(data, payload)
		frame.Payload = &Unknown{ID: wire.Type, Data: data}
		return frame, nil
	}

	if hasFields(msg) {
		want, err := PayloadSize(msg)
		if err != nil {
			return nil, fmt.Errorf("failed to size %s: %w", TypeName(wire.Type), err)
		}
		if len(payload) < want {
			return nil, fmt.Errorf("%w: %s needs %d bytes, got %d",
				ErrPayloadTooShort, TypeName(wire.Type), want, len(payload))
		}
		if err := struc.UnpackWithOptions(bytes.NewReader(payload), msg, structOptions()); err != nil {
			return nil, fmt.Errorf("failed to unpack %s: %w", TypeName(wire.Type), err)
		}
	}

	frame.Payload = msg
	return frame, nil
}

// IsMalformed reports whether err came from decoding a corrupt or truncated frame.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrShortFrame) ||
		errors.Is(err, ErrSizeMismatch) ||
		errors.Is(err, ErrPayloadTooShort)
}

// NewLabel converts s to a fixed-width NUL padded label, truncating to at most
// LabelSize bytes without splitting a UTF-8 sequence.
func NewLabel(s string) [LabelSize]byte {
	if len(s) > LabelSize {
		n := LabelSize
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		s = s[:n]
	}
	var l [LabelSize]byte
	copy(l[:], s)
	return l
}

// LabelString strips the trailing NUL padding of a fixed-width label.
func LabelString(l [LabelSize]byte) string {
	return string(bytes.TrimRight(l[:], "\x00"))
}
