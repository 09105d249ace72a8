package protocol

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func sampleMessages() []Message {
	color := HSBK{Hue: 21845, Saturation: 65535, Brightness: 32768, Kelvin: 3500}
	var zones [ZonesPerState]HSBK
	for i := range zones {
		zones[i] = HSBK{Hue: uint16(i * 1000), Saturation: 65535, Brightness: 65535, Kelvin: 2500 + uint16(i)}
	}
	var locID [LocationIDLen]byte
	copy(locID[:], "0123456789abcdef")
	var echo [EchoSize]byte
	copy(echo[:], "ping")

	return []Message{
		&GetService{},
		&StateService{Service: ServiceUDP, Port: DefaultPort},
		&GetHostInfo{},
		&StateHostInfo{Signal: 1.5e-6, Tx: 1234, Rx: 5678},
		&GetHostFirmware{},
		&StateHostFirmware{Build: 1502237570000000000, Version: 2<<16 | 21},
		&GetWifiInfo{},
		&StateWifiInfo{Signal: 3.25e-5, Tx: 1, Rx: 2},
		&GetWifiFirmware{},
		&StateWifiFirmware{Build: 1456093684000000000, Version: 1<<16 | 22},
		&GetPower{},
		&SetPower{Level: PowerOn},
		&StatePower{Level: PowerOff},
		&GetLabel{},
		&SetLabel{Label: NewLabel("Kitchen")},
		&StateLabel{Label: NewLabel("Bedroom")},
		&GetVersion{},
		&StateVersion{Vendor: 1, Product: 27, Version: 0},
		&GetInfo{},
		&StateInfo{Time: 1600000000000000000, Uptime: 3600000000000, Downtime: 5000000000},
		&Acknowledgement{},
		&GetLocation{},
		&StateLocation{Location: locID, Label: NewLabel("Home"), UpdatedAt: 1},
		&GetGroup{},
		&StateGroup{Group: locID, Label: NewLabel("Living Room"), UpdatedAt: 2},
		&EchoRequest{Payload: echo},
		&EchoResponse{Payload: echo},
		&LightGet{},
		&LightSetColor{Color: color, Duration: 1000},
		&LightSetWaveform{Transient: 1, Color: color, Period: 500, Cycles: 3.5, DutyCycle: -16384, Waveform: uint8(WaveformPulse)},
		&LightState{Color: color, Power: PowerOn, Label: NewLabel("Desk")},
		&LightGetPower{},
		&LightSetPower{Level: PowerOn, Duration: 250},
		&LightStatePower{Level: PowerOn},
		&LightGetInfrared{},
		&LightStateInfrared{Brightness: 32767},
		&LightSetInfrared{Brightness: 65535},
		&MultiZoneSetColorZones{Start: 0, End: 7, Color: color, Duration: 10, Apply: uint8(ZoneApplyNow)},
		&MultiZoneGetColorZones{Start: 8, End: 16},
		&MultiZoneStateZone{Count: 16, Index: 3, Color: color},
		&MultiZoneStateMultiZone{Count: 16, Index: 8, Colors: zones},
	}
}

func TestRoundTrip_AllMessages(t *testing.T) {
	mac := MustParseMAC("d0:73:d5:01:02:03")

	for _, msg := range sampleMessages() {
		for _, seq := range []uint8{0, MaxSequence} {
			name := TypeName(msg.Type())
			t.Run(name, func(t *testing.T) {
				in := NewFrame(mac, 0x12345678, seq, msg).WithAck().WithResponse()

				b, err := Encode(in)
				if err != nil {
					t.Fatalf("Encode() error = %v", err)
				}

				out, err := Decode(b)
				if err != nil {
					t.Fatalf("Decode() error = %v", err)
				}

				if int(out.Size) != len(b) {
					t.Errorf("Size = %d, want %d", out.Size, len(b))
				}
				want := in.Header
				want.Size = out.Size
				if out.Header != want {
					t.Errorf("Header = %s, want %s", out.Header, want)
				}
				if !reflect.DeepEqual(out.Payload, msg) {
					t.Errorf("Payload = %s, want %s", out.Payload, msg)
				}
			})
		}
	}
}

func TestRoundTrip_PayloadSizes(t *testing.T) {
	tests := []struct {
		msg  Message
		want int
	}{
		{msg: &GetService{}, want: 0},
		{msg: &StateService{}, want: 5},
		{msg: &StateHostInfo{}, want: 14},
		{msg: &StateHostFirmware{}, want: 20},
		{msg: &SetLabel{}, want: 32},
		{msg: &StateVersion{}, want: 12},
		{msg: &StateInfo{}, want: 24},
		{msg: &StateGroup{}, want: 56},
		{msg: &EchoRequest{}, want: 64},
		{msg: &LightSetColor{}, want: 13},
		{msg: &LightSetWaveform{}, want: 21},
		{msg: &LightState{}, want: 52},
		{msg: &LightSetPower{}, want: 6},
		{msg: &MultiZoneSetColorZones{}, want: 15},
		{msg: &MultiZoneStateZone{}, want: 10},
		{msg: &MultiZoneStateMultiZone{}, want: 66},
	}
	for _, tt := range tests {
		t.Run(TypeName(tt.msg.Type()), func(t *testing.T) {
			got, err := PayloadSize(tt.msg)
			if err != nil {
				t.Fatalf("PayloadSize() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("PayloadSize() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLabels(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "short", in: "Kitchen", want: "Kitchen"},
		{name: "exactly 32 bytes", in: strings.Repeat("x", LabelSize), want: strings.Repeat("x", LabelSize)},
		{name: "longer than 32 bytes is truncated", in: strings.Repeat("y", LabelSize+5), want: strings.Repeat("y", LabelSize)},
		{name: "two byte rune across the limit is dropped", in: strings.Repeat("x", LabelSize-1) + "é", want: strings.Repeat("x", LabelSize-1)},
		{name: "three byte rune across the limit is dropped", in: strings.Repeat("x", LabelSize-2) + "€", want: strings.Repeat("x", LabelSize-2)},
		{name: "multi-byte runes ending on the limit are kept", in: strings.Repeat("é", LabelSize/2) + "z", want: strings.Repeat("é", LabelSize/2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label := NewLabel(tt.in)
			got := LabelString(label)
			if got != tt.want {
				t.Errorf("LabelString(NewLabel(%q)) = %q, want %q", tt.in, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("LabelString(NewLabel(%q)) = %q is not valid UTF-8", tt.in, got)
			}

			b, err := Encode(NewFrame(BroadcastMAC, 1, 0, &StateLabel{Label: label}))
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if len(b) != HeaderSize+LabelSize {
				t.Errorf("encoded len = %d, want %d", len(b), HeaderSize+LabelSize)
			}
			f, err := Decode(b)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got := LabelString(f.Payload.(*StateLabel).Label); got != tt.want {
				t.Errorf("decoded label = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFirmwareVersion(t *testing.T) {
	if got := FirmwareVersion(2<<16 | 77); got != "2.77" {
		t.Errorf("FirmwareVersion() = %q, want %q", got, "2.77")
	}
}

func TestTypeName(t *testing.T) {
	if got := TypeName(TypeStatePower); got != "StatePower" {
		t.Errorf("TypeName(22) = %q, want StatePower", got)
	}
	if got := TypeName(4242); got != "Unknown(4242)" {
		t.Errorf("TypeName(4242) = %q, want Unknown(4242)", got)
	}
}
