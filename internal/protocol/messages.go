package protocol

import (
	"fmt"
)

// Message type identifiers
const (
	TypeGetService        uint16 = 2
	TypeStateService      uint16 = 3
	TypeGetHostInfo       uint16 = 12
	TypeStateHostInfo     uint16 = 13
	TypeGetHostFirmware   uint16 = 14
	TypeStateHostFirmware uint16 = 15
	TypeGetWifiInfo       uint16 = 16
	TypeStateWifiInfo     uint16 = 17
	TypeGetWifiFirmware   uint16 = 18
	TypeStateWifiFirmware uint16 = 19
	TypeGetPower          uint16 = 20
	TypeSetPower          uint16 = 21
	TypeStatePower        uint16 = 22
	TypeGetLabel          uint16 = 23
	TypeSetLabel          uint16 = 24
	TypeStateLabel        uint16 = 25
	TypeGetVersion        uint16 = 32
	TypeStateVersion      uint16 = 33
	TypeGetInfo           uint16 = 34
	TypeStateInfo         uint16 = 35
	TypeAcknowledgement   uint16 = 45
	TypeGetLocation       uint16 = 48
	TypeStateLocation     uint16 = 50
	TypeGetGroup          uint16 = 51
	TypeStateGroup        uint16 = 53
	TypeEchoRequest       uint16 = 58
	TypeEchoResponse      uint16 = 59

	TypeLightGet           uint16 = 101
	TypeLightSetColor      uint16 = 102
	TypeLightSetWaveform   uint16 = 103
	TypeLightState         uint16 = 107
	TypeLightGetPower      uint16 = 116
	TypeLightSetPower      uint16 = 117
	TypeLightStatePower    uint16 = 118
	TypeLightGetInfrared   uint16 = 120
	TypeLightStateInfrared uint16 = 121
	TypeLightSetInfrared   uint16 = 122

	TypeMultiZoneSetColorZones  uint16 = 501
	TypeMultiZoneGetColorZones  uint16 = 502
	TypeMultiZoneStateZone      uint16 = 503
	TypeMultiZoneStateMultiZone uint16 = 506
)

// Power levels as carried in SetPower/StatePower payloads.
const (
	PowerOff uint16 = 0x0000
	PowerOn  uint16 = 0xFFFF
)

// ServiceUDP is the only StateService.Service value that describes a usable endpoint.
const ServiceUDP = 1

// Fixed widths of string and blob fields.
const (
	LabelSize     = 32
	LocationIDLen = 16
	EchoSize      = 64
	ZonesPerState = 8
)

// Waveform selects the shape used by LightSetWaveform.
type Waveform uint8

const (
	WaveformSaw Waveform = iota
	WaveformSine
	WaveformHalfSine
	WaveformTriangle
	WaveformPulse
)

func (w Waveform) String() string {
	switch w {
	case WaveformSaw:
		return "saw"
	case WaveformSine:
		return "sine"
	case WaveformHalfSine:
		return "half-sine"
	case WaveformTriangle:
		return "triangle"
	case WaveformPulse:
		return "pulse"
	default:
		return fmt.Sprintf("waveform(%d)", uint8(w))
	}
}

// ZoneApply controls when a MultiZoneSetColorZones change becomes visible.
type ZoneApply uint8

const (
	ZoneNoApply   ZoneApply = 0 // Buffer the change until a later APPLY
	ZoneApplyNow  ZoneApply = 1 // Apply this and any buffered changes
	ZoneApplyOnly ZoneApply = 2 // Apply buffered changes, ignoring this payload
)

// Message is implemented by every payload variant.
type Message interface {
	Type() uint16
	String() string
}

// HSBK is the protocol colour tuple, every component scaled to 0-65535
// except Kelvin which is in degrees (2500-9000).
type HSBK struct {
	Hue        uint16
	Saturation uint16
	Brightness uint16
	Kelvin     uint16
}

func (c HSBK) String() string {
	return fmt.Sprintf("HSBK(%d,%d,%d,%dK)", c.Hue, c.Saturation, c.Brightness, c.Kelvin)
}

// Device messages

type GetService struct{}

func (*GetService) Type() uint16     { return TypeGetService }
func (m *GetService) String() string { return "GetService{}" }

type StateService struct {
	Service uint8
	Port    uint32
}

func (*StateService) Type() uint16 { return TypeStateService }
func (m *StateService) String() string {
	return fmt.Sprintf("StateService{service=%d, port=%d}", m.Service, m.Port)
}

type GetHostInfo struct{}

func (*GetHostInfo) Type() uint16     { return TypeGetHostInfo }
func (m *GetHostInfo) String() string { return "GetHostInfo{}" }

// StateHostInfo reports radio statistics of the host MCU.
type StateHostInfo struct {
	Signal   float32
	Tx       uint32
	Rx       uint32
	Reserved int16 `struc:"[2]pad"`
}

func (*StateHostInfo) Type() uint16 { return TypeStateHostInfo }
func (m *StateHostInfo) String() string {
	return fmt.Sprintf("StateHostInfo{signal=%g, tx=%d, rx=%d}", m.Signal, m.Tx, m.Rx)
}

type GetHostFirmware struct{}

func (*GetHostFirmware) Type() uint16     { return TypeGetHostFirmware }
func (m *GetHostFirmware) String() string { return "GetHostFirmware{}" }

// StateHostFirmware carries the build timestamp (ns since epoch) and packed version.
type StateHostFirmware struct {
	Build    uint64
	Reserved uint64 `struc:"[8]pad"`
	Version  uint32
}

func (*StateHostFirmware) Type() uint16 { return TypeStateHostFirmware }
func (m *StateHostFirmware) String() string {
	return fmt.Sprintf("StateHostFirmware{build=%d, version=%s}", m.Build, FirmwareVersion(m.Version))
}

type GetWifiInfo struct{}

func (*GetWifiInfo) Type() uint16     { return TypeGetWifiInfo }
func (m *GetWifiInfo) String() string { return "GetWifiInfo{}" }

type StateWifiInfo struct {
	Signal   float32
	Tx       uint32
	Rx       uint32
	Reserved int16 `struc:"[2]pad"`
}

func (*StateWifiInfo) Type() uint16 { return TypeStateWifiInfo }
func (m *StateWifiInfo) String() string {
	return fmt.Sprintf("StateWifiInfo{signal=%g, tx=%d, rx=%d}", m.Signal, m.Tx, m.Rx)
}

type GetWifiFirmware struct{}

func (*GetWifiFirmware) Type() uint16     { return TypeGetWifiFirmware }
func (m *GetWifiFirmware) String() string { return "GetWifiFirmware{}" }

type StateWifiFirmware struct {
	Build    uint64
	Reserved uint64 `struc:"[8]pad"`
	Version  uint32
}

func (*StateWifiFirmware) Type() uint16 { return TypeStateWifiFirmware }
func (m *StateWifiFirmware) String() string {
	return fmt.Sprintf("StateWifiFirmware{build=%d, version=%s}", m.Build, FirmwareVersion(m.Version))
}

type GetPower struct{}

func (*GetPower) Type() uint16     { return TypeGetPower }
func (m *GetPower) String() string { return "GetPower{}" }

type SetPower struct {
	Level uint16
}

func (*SetPower) Type() uint16     { return TypeSetPower }
func (m *SetPower) String() string { return fmt.Sprintf("SetPower{level=%d}", m.Level) }

type StatePower struct {
	Level uint16
}

func (*StatePower) Type() uint16     { return TypeStatePower }
func (m *StatePower) String() string { return fmt.Sprintf("StatePower{level=%d}", m.Level) }

type GetLabel struct{}

func (*GetLabel) Type() uint16     { return TypeGetLabel }
func (m *GetLabel) String() string { return "GetLabel{}" }

type SetLabel struct {
	Label [LabelSize]byte
}

func (*SetLabel) Type() uint16 { return TypeSetLabel }
func (m *SetLabel) String() string {
	return fmt.Sprintf("SetLabel{label=%q}", LabelString(m.Label))
}

type StateLabel struct {
	Label [LabelSize]byte
}

func (*StateLabel) Type() uint16 { return TypeStateLabel }
func (m *StateLabel) String() string {
	return fmt.Sprintf("StateLabel{label=%q}", LabelString(m.Label))
}

type GetVersion struct{}

func (*GetVersion) Type() uint16     { return TypeGetVersion }
func (m *GetVersion) String() string { return "GetVersion{}" }

type StateVersion struct {
	Vendor  uint32
	Product uint32
	Version uint32
}

func (*StateVersion) Type() uint16 { return TypeStateVersion }
func (m *StateVersion) String() string {
	return fmt.Sprintf("StateVersion{vendor=%d, product=%d, version=%d}", m.Vendor, m.Product, m.Version)
}

type GetInfo struct{}

func (*GetInfo) Type() uint16     { return TypeGetInfo }
func (m *GetInfo) String() string { return "GetInfo{}" }

// StateInfo times are nanoseconds: Time since the epoch, the others durations.
type StateInfo struct {
	Time     uint64
	Uptime   uint64
	Downtime uint64
}

func (*StateInfo) Type() uint16 { return TypeStateInfo }
func (m *StateInfo) String() string {
	return fmt.Sprintf("StateInfo{time=%d, uptime=%d, downtime=%d}", m.Time, m.Uptime, m.Downtime)
}

type Acknowledgement struct{}

func (*Acknowledgement) Type() uint16     { return TypeAcknowledgement }
func (m *Acknowledgement) String() string { return "Acknowledgement{}" }

type GetLocation struct{}

func (*GetLocation) Type() uint16     { return TypeGetLocation }
func (m *GetLocation) String() string { return "GetLocation{}" }

type StateLocation struct {
	Location  [LocationIDLen]byte
	Label     [LabelSize]byte
	UpdatedAt uint64
}

func (*StateLocation) Type() uint16 { return TypeStateLocation }
func (m *StateLocation) String() string {
	return fmt.Sprintf("StateLocation{label=%q, updated_at=%d}", LabelString(m.Label), m.UpdatedAt)
}

type GetGroup struct{}

func (*GetGroup) Type() uint16     { return TypeGetGroup }
func (m *GetGroup) String() string { return "GetGroup{}" }

type StateGroup struct {
	Group     [LocationIDLen]byte
	Label     [LabelSize]byte
	UpdatedAt uint64
}

func (*StateGroup) Type() uint16 { return TypeStateGroup }
func (m *StateGroup) String() string {
	return fmt.Sprintf("StateGroup{label=%q, updated_at=%d}", LabelString(m.Label), m.UpdatedAt)
}

type EchoRequest struct {
	Payload [EchoSize]byte
}

func (*EchoRequest) Type() uint16     { return TypeEchoRequest }
func (m *EchoRequest) String() string { return "EchoRequest{}" }

type EchoResponse struct {
	Payload [EchoSize]byte
}

func (*EchoResponse) Type() uint16     { return TypeEchoResponse }
func (m *EchoResponse) String() string { return "EchoResponse{}" }

// Light messages

type LightGet struct{}

func (*LightGet) Type() uint16     { return TypeLightGet }
func (m *LightGet) String() string { return "LightGet{}" }

type LightSetColor struct {
	Reserved uint8 `struc:"pad"`
	Color    HSBK
	Duration uint32 // Transition time in milliseconds
}

func (*LightSetColor) Type() uint16 { return TypeLightSetColor }
func (m *LightSetColor) String() string {
	return fmt.Sprintf("LightSetColor{color=%s, duration=%d}", m.Color, m.Duration)
}

type LightSetWaveform struct {
	Reserved  uint8 `struc:"pad"`
	Transient uint8
	Color     HSBK
	Period    uint32
	Cycles    float32
	DutyCycle int16
	Waveform  uint8
}

func (*LightSetWaveform) Type() uint16 { return TypeLightSetWaveform }
func (m *LightSetWaveform) String() string {
	return fmt.Sprintf("LightSetWaveform{waveform=%s, color=%s, period=%d, cycles=%g, duty=%d, transient=%d}",
		Waveform(m.Waveform), m.Color, m.Period, m.Cycles, m.DutyCycle, m.Transient)
}

type LightState struct {
	Color     HSBK
	Reserved1 int16 `struc:"[2]pad"`
	Power     uint16
	Label     [LabelSize]byte
	Reserved2 uint64 `struc:"[8]pad"`
}

func (*LightState) Type() uint16 { return TypeLightState }
func (m *LightState) String() string {
	return fmt.Sprintf("LightState{color=%s, power=%d, label=%q}", m.Color, m.Power, LabelString(m.Label))
}

type LightGetPower struct{}

func (*LightGetPower) Type() uint16     { return TypeLightGetPower }
func (m *LightGetPower) String() string { return "LightGetPower{}" }

type LightSetPower struct {
	Level    uint16
	Duration uint32
}

func (*LightSetPower) Type() uint16 { return TypeLightSetPower }
func (m *LightSetPower) String() string {
	return fmt.Sprintf("LightSetPower{level=%d, duration=%d}", m.Level, m.Duration)
}

type LightStatePower struct {
	Level uint16
}

func (*LightStatePower) Type() uint16     { return TypeLightStatePower }
func (m *LightStatePower) String() string { return fmt.Sprintf("LightStatePower{level=%d}", m.Level) }

type LightGetInfrared struct{}

func (*LightGetInfrared) Type() uint16     { return TypeLightGetInfrared }
func (m *LightGetInfrared) String() string { return "LightGetInfrared{}" }

type LightStateInfrared struct {
	Brightness uint16
}

func (*LightStateInfrared) Type() uint16 { return TypeLightStateInfrared }
func (m *LightStateInfrared) String() string {
	return fmt.Sprintf("LightStateInfrared{brightness=%d}", m.Brightness)
}

type LightSetInfrared struct {
	Brightness uint16
}

func (*LightSetInfrared) Type() uint16 { return TypeLightSetInfrared }
func (m *LightSetInfrared) String() string {
	return fmt.Sprintf("LightSetInfrared{brightness=%d}", m.Brightness)
}

// Multi-zone messages

type MultiZoneSetColorZones struct {
	Start    uint8
	End      uint8
	Color    HSBK
	Duration uint32
	Apply    uint8
}

func (*MultiZoneSetColorZones) Type() uint16 { return TypeMultiZoneSetColorZones }
func (m *MultiZoneSetColorZones) String() string {
	return fmt.Sprintf("MultiZoneSetColorZones{start=%d, end=%d, color=%s, duration=%d, apply=%d}",
		m.Start, m.End, m.Color, m.Duration, m.Apply)
}

type MultiZoneGetColorZones struct {
	Start uint8
	End   uint8
}

func (*MultiZoneGetColorZones) Type() uint16 { return TypeMultiZoneGetColorZones }
func (m *MultiZoneGetColorZones) String() string {
	return fmt.Sprintf("MultiZoneGetColorZones{start=%d, end=%d}", m.Start, m.End)
}

type MultiZoneStateZone struct {
	Count uint8
	Index uint8
	Color HSBK
}

func (*MultiZoneStateZone) Type() uint16 { return TypeMultiZoneStateZone }
func (m *MultiZoneStateZone) String() string {
	return fmt.Sprintf("MultiZoneStateZone{count=%d, index=%d, color=%s}", m.Count, m.Index, m.Color)
}

type MultiZoneStateMultiZone struct {
	Count  uint8
	Index  uint8
	Colors [ZonesPerState]HSBK
}

func (*MultiZoneStateMultiZone) Type() uint16 { return TypeMultiZoneStateMultiZone }
func (m *MultiZoneStateMultiZone) String() string {
	return fmt.Sprintf("MultiZoneStateMultiZone{count=%d, index=%d}", m.Count, m.Index)
}

// Unknown holds a frame whose type id this package does not model.
type Unknown struct {
	ID   uint16
	Data []byte
}

func (m *Unknown) Type() uint16 { return m.ID }
func (m *Unknown) String() string {
	return fmt.Sprintf("Unknown{type=%d, len=%d}", m.ID, len(m.Data))
}

// FirmwareVersion renders a packed firmware version as "major.minor".
func FirmwareVersion(v uint32) string {
	return fmt.Sprintf("%d.%d", v>>16, v&0xff)
}
