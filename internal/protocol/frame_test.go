package protocol

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestEncode_HeaderLayout(t *testing.T) {
	mac := MustParseMAC("d0:73:d5:01:02:03")

	tests := []struct {
		name   string
		frame  *Frame
		verify func(t *testing.T, b []byte)
	}{
		{
			name:  "broadcast GetService is tagged",
			frame: NewFrame(BroadcastMAC, 0xdeadbeef, 0, &GetService{}).WithResponse(),
			verify: func(t *testing.T, b []byte) {
				if len(b) != HeaderSize {
					t.Fatalf("len = %d, want %d", len(b), HeaderSize)
				}
				if got := binary.LittleEndian.Uint16(b[0:2]); got != HeaderSize {
					t.Errorf("size = %d, want %d", got, HeaderSize)
				}
				if got := binary.LittleEndian.Uint16(b[2:4]); got != 0x3400 {
					t.Errorf("protocol flags = 0x%04x, want 0x3400", got)
				}
				if got := binary.LittleEndian.Uint32(b[4:8]); got != 0xdeadbeef {
					t.Errorf("source = 0x%08x, want 0xdeadbeef", got)
				}
				for i := 8; i < 16; i++ {
					if b[i] != 0 {
						t.Errorf("target byte %d = 0x%02x, want 0", i, b[i])
					}
				}
				if b[22] != resRequiredFlag {
					t.Errorf("response flags = 0x%02x, want 0x%02x", b[22], resRequiredFlag)
				}
				if got := binary.LittleEndian.Uint16(b[32:34]); got != TypeGetService {
					t.Errorf("type = %d, want %d", got, TypeGetService)
				}
			},
		},
		{
			name:  "addressed SetPower with ack",
			frame: NewFrame(mac, 42, 127, &SetPower{Level: PowerOn}).WithAck(),
			verify: func(t *testing.T, b []byte) {
				if len(b) != HeaderSize+2 {
					t.Fatalf("len = %d, want %d", len(b), HeaderSize+2)
				}
				if got := binary.LittleEndian.Uint16(b[0:2]); got != HeaderSize+2 {
					t.Errorf("size = %d, want %d", got, HeaderSize+2)
				}
				if got := binary.LittleEndian.Uint16(b[2:4]); got != 0x1400 {
					t.Errorf("protocol flags = 0x%04x, want 0x1400", got)
				}
				want := []byte{0xd0, 0x73, 0xd5, 0x01, 0x02, 0x03}
				for i, w := range want {
					if b[8+i] != w {
						t.Errorf("target byte %d = 0x%02x, want 0x%02x", i, b[8+i], w)
					}
				}
				if b[22] != ackRequiredFlag {
					t.Errorf("response flags = 0x%02x, want 0x%02x", b[22], ackRequiredFlag)
				}
				if b[23] != 127 {
					t.Errorf("sequence = %d, want 127", b[23])
				}
				if got := binary.LittleEndian.Uint16(b[36:38]); got != PowerOn {
					t.Errorf("level = 0x%04x, want 0x%04x", got, PowerOn)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Encode(tt.frame)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			tt.verify(t, b)
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	valid, err := Encode(NewFrame(BroadcastMAC, 1, 1, &StatePower{Level: PowerOn}))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	declaredTooBig := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint16(declaredTooBig[0:2], uint16(len(valid)+10))

	truncatedPayload := append([]byte(nil), valid[:HeaderSize+1]...)
	binary.LittleEndian.PutUint16(truncatedPayload[0:2], uint16(len(truncatedPayload)))

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{name: "empty", data: nil, wantErr: ErrShortFrame},
		{name: "shorter than header", data: valid[:HeaderSize-1], wantErr: ErrShortFrame},
		{name: "declared size beyond datagram", data: declaredTooBig, wantErr: ErrSizeMismatch},
		{name: "payload shorter than layout", data: truncatedPayload, wantErr: ErrPayloadTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
			}
			if !IsMalformed(err) {
				t.Errorf("IsMalformed(%v) = false, want true", err)
			}
		})
	}
}

func TestDecode_TrailingBytesIgnored(t *testing.T) {
	b, err := Encode(NewFrame(BroadcastMAC, 1, 3, &StatePower{Level: PowerOn}))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	b = append(b, 0xAA, 0xBB)

	f, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if f.Size != HeaderSize+2 {
		t.Errorf("Size = %d, want %d", f.Size, HeaderSize+2)
	}
	if p, ok := f.Payload.(*StatePower); !ok || p.Level != PowerOn {
		t.Errorf("Payload = %v, want StatePower{level=%d}", f.Payload, PowerOn)
	}
}

func TestDecode_UnknownType(t *testing.T) {
	b, err := Encode(NewFrame(BroadcastMAC, 7, 9, &Unknown{ID: 9999, Data: []byte{1, 2, 3}}))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	f, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	u, ok := f.Payload.(*Unknown)
	if !ok {
		t.Fatalf("Payload type = %T, want *Unknown", f.Payload)
	}
	if u.ID != 9999 || len(u.Data) != 3 || u.Data[2] != 3 {
		t.Errorf("Unknown = %+v, want ID 9999 with 3 data bytes", u)
	}
	if f.Type != 9999 {
		t.Errorf("Type = %d, want 9999", f.Type)
	}
}

func TestEncode_UnsupportedEnum(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{name: "waveform beyond pulse", msg: &LightSetWaveform{Waveform: 9}},
		{name: "apply beyond apply-only", msg: &MultiZoneSetColorZones{Apply: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(NewFrame(BroadcastMAC, 1, 1, tt.msg))
			if !errors.Is(err, ErrUnsupportedValue) {
				t.Errorf("Encode() error = %v, want %v", err, ErrUnsupportedValue)
			}
		})
	}
}

func TestEncode_FrameTooLarge(t *testing.T) {
	tests := []struct {
		name    string
		data    int
		wantErr bool
	}{
		{name: "largest payload that fits", data: 65535 - HeaderSize, wantErr: false},
		{name: "one byte over", data: 65535 - HeaderSize + 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Encode(NewFrame(BroadcastMAC, 1, 1, &Unknown{ID: 9999, Data: make([]byte, tt.data)}))
			if tt.wantErr {
				if !errors.Is(err, ErrFrameTooLarge) {
					t.Errorf("Encode() error = %v, want %v", err, ErrFrameTooLarge)
				}
				return
			}
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if got := binary.LittleEndian.Uint16(b[0:2]); int(got) != len(b) {
				t.Errorf("size field = %d, want %d", got, len(b))
			}
		})
	}
}

func TestParseMAC(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "d0:73:d5:01:02:03", want: "d0:73:d5:01:02:03"},
		{in: "D0:73:D5:01:02:03", want: "d0:73:d5:01:02:03"},
		{in: "d0-73-d5-01-02-03", want: "d0:73:d5:01:02:03"},
		{in: "00:00:00:00:00:00", want: "00:00:00:00:00:00"},
		{in: "not-a-mac", wantErr: true},
		{in: "00:00:5e:00:53:00:00:01", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMAC(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMAC(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got.String() != tt.want {
				t.Errorf("ParseMAC(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestPeekType(t *testing.T) {
	b, err := Encode(NewFrame(BroadcastMAC, 1, 0, &LightGet{}))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if typ, ok := PeekType(b); !ok || typ != TypeLightGet {
		t.Errorf("PeekType() = %d, %t, want %d, true", typ, ok, TypeLightGet)
	}
	if _, ok := PeekType(b[:10]); ok {
		t.Error("PeekType() on short buffer ok = true, want false")
	}
}
