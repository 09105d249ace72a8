package color

import (
	"errors"
	"math"
	"testing"

	"github.com/muurk/lifxlan/internal/protocol"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    protocol.HSBK
		wantErr bool
	}{
		{in: "#ff0000", want: protocol.HSBK{Hue: 0, Saturation: 65535, Brightness: 65535, Kelvin: DefaultKelvin}},
		{in: "#0000FF", want: protocol.HSBK{Hue: 43690, Saturation: 65535, Brightness: 65535, Kelvin: DefaultKelvin}},
		{in: "hsbk:120,100,50,4000", want: protocol.HSBK{Hue: 21845, Saturation: 65535, Brightness: 32768, Kelvin: 4000}},
		{in: "kelvin:9500", want: protocol.HSBK{Brightness: 65535, Kelvin: MaxKelvin}},
		{in: "kelvin:1000", want: protocol.HSBK{Brightness: 65535, Kelvin: MinKelvin}},
		{in: " Warm ", want: protocol.HSBK{Brightness: 65535, Kelvin: 2700}},
		{in: "#zzzzzz", wantErr: true},
		{in: "hsbk:1,2,3", wantErr: true},
		{in: "kelvin:hot", wantErr: true},
		{in: "ultraviolet", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidColor) {
					t.Errorf("Parse(%q) error = %v, want ErrInvalidColor", tt.in, err)
				}
				return
			}
			if got := c.Values(); got != tt.want {
				t.Errorf("Parse(%q).Values() = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestValues_HueWraps(t *testing.T) {
	if got := (Color{Hue: 360 + 90, Kelvin: 3500}).Values().Hue; got != 16384 {
		t.Errorf("Hue(450) = %d, want 16384", got)
	}
	if got := (Color{Hue: -90, Kelvin: 3500}).Values().Hue; got != 49151 {
		t.Errorf("Hue(-90) = %d, want 49151", got)
	}
}

func TestFromValues(t *testing.T) {
	in := protocol.HSBK{Hue: 21845, Saturation: 65535, Brightness: 0, Kelvin: 5000}
	c := FromValues(in)
	if math.Abs(c.Hue-120) > 0.01 || c.Saturation != 1 || c.Brightness != 0 || c.Kelvin != 5000 {
		t.Errorf("FromValues() = %+v", c)
	}
	if got := c.Values(); got != in {
		t.Errorf("FromValues().Values() = %+v, want %+v", got, in)
	}
}

func TestHex(t *testing.T) {
	c := Color{Hue: 0, Saturation: 1, Brightness: 1}
	if got := c.Hex(); got != "#ff0000" {
		t.Errorf("Hex() = %q, want #ff0000", got)
	}
}
