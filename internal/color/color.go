// Package color converts between human colour notations and the protocol's
// HSBK tuple.
package color

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/muurk/lifxlan/internal/protocol"
)

// Kelvin limits accepted by LIFX bulbs.
const (
	MinKelvin     = 2500
	MaxKelvin     = 9000
	DefaultKelvin = 3500
)

// ErrInvalidColor is returned by Parse for strings it cannot interpret.
var ErrInvalidColor = errors.New("invalid colour")

// Color is a light colour with hue in degrees [0,360), saturation and
// brightness in [0,1] and a white point in Kelvin.
type Color struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Brightness float64 `json:"brightness"`
	Kelvin     uint16  `json:"kelvin"`
}

// Values scales the colour to the 16-bit protocol tuple.
func (c Color) Values() protocol.HSBK {
	hue := math.Mod(c.Hue, 360)
	if hue < 0 {
		hue += 360
	}
	return protocol.HSBK{
		Hue:        uint16(math.Round(hue / 360 * 65535)),
		Saturation: scale(c.Saturation),
		Brightness: scale(c.Brightness),
		Kelvin:     clampKelvin(c.Kelvin),
	}
}

// FromValues builds a Color from a protocol tuple.
func FromValues(v protocol.HSBK) Color {
	return Color{
		Hue:        float64(v.Hue) / 65535 * 360,
		Saturation: float64(v.Saturation) / 65535,
		Brightness: float64(v.Brightness) / 65535,
		Kelvin:     v.Kelvin,
	}
}

// Hex renders the colour as #rrggbb, ignoring Kelvin.
func (c Color) Hex() string {
	return colorful.Hsv(c.Hue, c.Saturation, c.Brightness).Clamped().Hex()
}

func (c Color) String() string {
	return fmt.Sprintf("hue=%.0f sat=%.0f%% bri=%.0f%% %dK",
		c.Hue, c.Saturation*100, c.Brightness*100, c.Kelvin)
}

var named = map[string]Color{
	"red":    {Hue: 0, Saturation: 1, Brightness: 1, Kelvin: DefaultKelvin},
	"orange": {Hue: 36, Saturation: 1, Brightness: 1, Kelvin: DefaultKelvin},
	"yellow": {Hue: 60, Saturation: 1, Brightness: 1, Kelvin: DefaultKelvin},
	"green":  {Hue: 120, Saturation: 1, Brightness: 1, Kelvin: DefaultKelvin},
	"cyan":   {Hue: 180, Saturation: 1, Brightness: 1, Kelvin: DefaultKelvin},
	"blue":   {Hue: 240, Saturation: 1, Brightness: 1, Kelvin: DefaultKelvin},
	"purple": {Hue: 280, Saturation: 1, Brightness: 1, Kelvin: DefaultKelvin},
	"pink":   {Hue: 325, Saturation: 1, Brightness: 1, Kelvin: DefaultKelvin},
	"white":  {Brightness: 1, Kelvin: DefaultKelvin},
	"warm":   {Brightness: 1, Kelvin: 2700},
	"cool":   {Brightness: 1, Kelvin: 6500},
}

// Parse accepts:
//
//	#rrggbb              hex RGB
//	hsbk:H,S,B,K         hue degrees, saturation and brightness 0-100, kelvin
//	kelvin:N             white at full brightness
//	red, warm, ...       a small set of names
func Parse(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	switch {
	case strings.HasPrefix(s, "#"):
		c, err := colorful.Hex(s)
		if err != nil {
			return Color{}, fmt.Errorf("%w: %q: %v", ErrInvalidColor, s, err)
		}
		h, sat, v := c.Hsv()
		return Color{Hue: h, Saturation: sat, Brightness: v, Kelvin: DefaultKelvin}, nil

	case strings.HasPrefix(s, "hsbk:"):
		parts := strings.Split(strings.TrimPrefix(s, "hsbk:"), ",")
		if len(parts) != 4 {
			return Color{}, fmt.Errorf("%w: %q: expected 4 components", ErrInvalidColor, s)
		}
		var f [4]float64
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return Color{}, fmt.Errorf("%w: %q: %v", ErrInvalidColor, s, err)
			}
			f[i] = v
		}
		return Color{Hue: f[0], Saturation: f[1] / 100, Brightness: f[2] / 100, Kelvin: clampKelvin(uint16(f[3]))}, nil

	case strings.HasPrefix(s, "kelvin:"):
		k, err := strconv.Atoi(strings.TrimPrefix(s, "kelvin:"))
		if err != nil {
			return Color{}, fmt.Errorf("%w: %q: %v", ErrInvalidColor, s, err)
		}
		return Color{Brightness: 1, Kelvin: clampKelvin(uint16(k))}, nil
	}

	if c, ok := named[s]; ok {
		return c, nil
	}
	return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
}

func scale(v float64) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 65535
	}
	return uint16(math.Round(v * 65535))
}

func clampKelvin(k uint16) uint16 {
	if k < MinKelvin {
		return MinKelvin
	}
	if k > MaxKelvin {
		return MaxKelvin
	}
	return k
}
