package device

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/muurk/lifxlan/internal/protocol"
)

// DefaultZoneSpan is how many zones ColorZones asks for when end is omitted.
const DefaultZoneSpan = 8

// Light is a Device that also speaks the light and multi-zone messages.
type Light struct {
	*Device

	lightMu     sync.RWMutex
	color       protocol.HSBK
	hasColor    bool
	zones       []protocol.HSBK
	infrared    int
	hasInfrared bool
}

// NewLight creates a light at ip:port.
func NewLight(mac protocol.MAC, ip net.IP, port int, opts Options) *Light {
	l := &Light{Device: New(mac, ip, port, opts)}
	l.Device.self = l
	return l
}

// WaveformParams configures SetWaveform.
type WaveformParams struct {
	Color     protocol.HSBK
	Transient bool
	// Period is one cycle in milliseconds.
	Period uint32
	Cycles float32
	// SkewRatio shifts the duty cycle, -32768..32767.
	SkewRatio int16
	Waveform  protocol.Waveform
}

// LightPower always asks the bulb.
func (l *Light) LightPower(ctx context.Context) (bool, error) {
	resp, err := l.RequestResponse(ctx, &protocol.LightGetPower{}, protocol.TypeLightStatePower)
	if err != nil {
		return false, fmt.Errorf("failed to get light power: %w", err)
	}
	state, err := payload[*protocol.LightStatePower](l.Device, resp)
	if err != nil {
		return false, err
	}
	l.setPowerCache(state.Level)
	return state.Level != protocol.PowerOff, nil
}

// SetLightPower switches the light with a transition of duration ms.
func (l *Light) SetLightPower(ctx context.Context, on bool, duration uint32, rapid bool) error {
	msg := &protocol.LightSetPower{Level: PowerLevel(on), Duration: duration}
	if err := l.send(ctx, msg, rapid); err != nil {
		return fmt.Errorf("failed to set light power: %w", err)
	}
	l.setPowerCache(msg.Level)
	return nil
}

// Color always asks the bulb. The reply also refreshes the cached power and
// label.
func (l *Light) Color(ctx context.Context) (protocol.HSBK, error) {
	resp, err := l.RequestResponse(ctx, &protocol.LightGet{}, protocol.TypeLightState)
	if err != nil {
		return protocol.HSBK{}, fmt.Errorf("failed to get color: %w", err)
	}
	state, err := payload[*protocol.LightState](l.Device, resp)
	if err != nil {
		return protocol.HSBK{}, err
	}
	l.setPowerCache(state.Power)
	l.setLabelCache(protocol.LabelString(state.Label))
	l.lightMu.Lock()
	l.color, l.hasColor = state.Color, true
	l.lightMu.Unlock()
	return state.Color, nil
}

// SetColor changes the colour over duration ms.
func (l *Light) SetColor(ctx context.Context, c protocol.HSBK, duration uint32, rapid bool) error {
	if err := l.send(ctx, &protocol.LightSetColor{Color: c, Duration: duration}, rapid); err != nil {
		return fmt.Errorf("failed to set color: %w", err)
	}
	l.lightMu.Lock()
	l.color, l.hasColor = c, true
	l.lightMu.Unlock()
	return nil
}

// ColorZones reads zones start..end. A negative end asks for
// DefaultZoneSpan zones from start. The first StateMultiZone reply is
// returned and cached.
func (l *Light) ColorZones(ctx context.Context, start, end int) ([]protocol.HSBK, error) {
	if end < 0 {
		end = start + DefaultZoneSpan
	}
	if start < 0 || start > 255 || end > 255 || end < start {
		return nil, NewProtocolError(l.MAC(), fmt.Sprintf("invalid zone range %d..%d", start, end))
	}

	resp, err := l.RequestResponse(ctx,
		&protocol.MultiZoneGetColorZones{Start: uint8(start), End: uint8(end)},
		protocol.TypeMultiZoneStateMultiZone)
	if err != nil {
		return nil, fmt.Errorf("failed to get color zones: %w", err)
	}
	state, err := payload[*protocol.MultiZoneStateMultiZone](l.Device, resp)
	if err != nil {
		return nil, err
	}

	zones := make([]protocol.HSBK, len(state.Colors))
	copy(zones, state.Colors[:])
	l.lightMu.Lock()
	l.zones = zones
	l.lightMu.Unlock()
	return append([]protocol.HSBK(nil), zones...), nil
}

// SetColorZones paints zones start..end with one colour.
func (l *Light) SetColorZones(ctx context.Context, start, end uint8, c protocol.HSBK, duration uint32, apply protocol.ZoneApply, rapid bool) error {
	msg := &protocol.MultiZoneSetColorZones{
		Start:    start,
		End:      end,
		Color:    c,
		Duration: duration,
		Apply:    uint8(apply),
	}
	if err := l.send(ctx, msg, rapid); err != nil {
		return fmt.Errorf("failed to set color zones: %w", err)
	}
	return nil
}

// SetWaveform starts a waveform effect.
func (l *Light) SetWaveform(ctx context.Context, p WaveformParams, rapid bool) error {
	msg := &protocol.LightSetWaveform{
		Color:     p.Color,
		Period:    p.Period,
		Cycles:    p.Cycles,
		DutyCycle: p.SkewRatio,
		Waveform:  uint8(p.Waveform),
	}
	if p.Transient {
		msg.Transient = 1
	}
	if err := l.send(ctx, msg, rapid); err != nil {
		return fmt.Errorf("failed to set waveform: %w", err)
	}
	return nil
}

// Infrared returns the infrared brightness as a percentage.
func (l *Light) Infrared(ctx context.Context) (int, error) {
	resp, err := l.RequestResponse(ctx, &protocol.LightGetInfrared{}, protocol.TypeLightStateInfrared)
	if err != nil {
		return 0, fmt.Errorf("failed to get infrared: %w", err)
	}
	state, err := payload[*protocol.LightStateInfrared](l.Device, resp)
	if err != nil {
		return 0, err
	}
	percent := int(state.Brightness) * 100 / 65535
	l.lightMu.Lock()
	l.infrared, l.hasInfrared = percent, true
	l.lightMu.Unlock()
	return percent, nil
}

// SetInfrared sets the infrared brightness from a percentage.
func (l *Light) SetInfrared(ctx context.Context, percent int, rapid bool) error {
	if percent < 0 || percent > 100 {
		return NewProtocolError(l.MAC(), fmt.Sprintf("infrared %d%% out of range", percent))
	}
	msg := &protocol.LightSetInfrared{Brightness: uint16(percent * 65535 / 100)}
	if err := l.send(ctx, msg, rapid); err != nil {
		return fmt.Errorf("failed to set infrared: %w", err)
	}
	l.lightMu.Lock()
	l.infrared, l.hasInfrared = percent, true
	l.lightMu.Unlock()
	return nil
}

// CachedColor returns the last known colour.
func (l *Light) CachedColor() (protocol.HSBK, bool) {
	l.lightMu.RLock()
	defer l.lightMu.RUnlock()
	return l.color, l.hasColor
}

// CachedZones returns the zones from the last ColorZones call.
func (l *Light) CachedZones() []protocol.HSBK {
	l.lightMu.RLock()
	defer l.lightMu.RUnlock()
	return append([]protocol.HSBK(nil), l.zones...)
}

// CachedInfrared returns the last known infrared percentage.
func (l *Light) CachedInfrared() (int, bool) {
	l.lightMu.RLock()
	defer l.lightMu.RUnlock()
	return l.infrared, l.hasInfrared
}

// send is the rapid/acknowledged switch shared by the setters.
func (l *Light) send(ctx context.Context, msg protocol.Message, rapid bool) error {
	if rapid {
		return l.FireAndForget(ctx, msg, l.opts.Repeats)
	}
	_, err := l.RequestAck(ctx, msg)
	return err
}
