package devicetest

import (
	"sync"

	"github.com/muurk/lifxlan/internal/protocol"
)

// Bulb simulates a LIFX bulb well enough for metadata fetches and setters.
type Bulb struct {
	mu sync.Mutex

	MAC         protocol.MAC
	Label       string
	Location    string
	Group       string
	Power       uint16
	Color       protocol.HSBK
	Vendor      uint32
	Product     uint32
	HostVersion uint32
	WifiVersion uint32
	Infrared    uint16
	Zones       [protocol.ZonesPerState]protocol.HSBK

	// Silent drops every frame, simulating an offline bulb.
	Silent bool
}

// SetSilent toggles whether the bulb answers.
func (b *Bulb) SetSilent(silent bool) {
	b.mu.Lock()
	b.Silent = silent
	b.mu.Unlock()
}

// State returns a copy of the mutable fields under the lock.
func (b *Bulb) State() (label string, power uint16, color protocol.HSBK) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Label, b.Power, b.Color
}

// Respond is a Responder.
func (b *Bulb) Respond(c *Conn, f *protocol.Frame) {
	b.mu.Lock()
	if b.Silent {
		b.mu.Unlock()
		return
	}
	reply := b.handle(f)
	b.mu.Unlock()

	if f.AckRequired {
		c.Reply(f, &protocol.Acknowledgement{})
	}
	if reply != nil && f.ResRequired {
		c.Reply(f, reply)
	}
}

// handle applies f and returns the state reply. Caller holds b.mu.
func (b *Bulb) handle(f *protocol.Frame) protocol.Message {
	switch m := f.Payload.(type) {
	case *protocol.GetService:
		return &protocol.StateService{Service: protocol.ServiceUDP, Port: protocol.DefaultPort}
	case *protocol.GetLabel:
		return &protocol.StateLabel{Label: protocol.NewLabel(b.Label)}
	case *protocol.SetLabel:
		b.Label = protocol.LabelString(m.Label)
		return &protocol.StateLabel{Label: m.Label}
	case *protocol.GetLocation:
		return &protocol.StateLocation{Label: protocol.NewLabel(b.Location)}
	case *protocol.GetGroup:
		return &protocol.StateGroup{Label: protocol.NewLabel(b.Group)}
	case *protocol.GetPower:
		return &protocol.StatePower{Level: b.Power}
	case *protocol.SetPower:
		b.Power = m.Level
		return &protocol.StatePower{Level: b.Power}
	case *protocol.GetVersion:
		return &protocol.StateVersion{Vendor: b.Vendor, Product: b.Product}
	case *protocol.GetHostFirmware:
		return &protocol.StateHostFirmware{Build: 1500000000000000000, Version: b.HostVersion}
	case *protocol.GetWifiFirmware:
		return &protocol.StateWifiFirmware{Build: 1400000000000000000, Version: b.WifiVersion}
	case *protocol.GetHostInfo:
		return &protocol.StateHostInfo{Signal: 1e-5, Tx: 10, Rx: 20}
	case *protocol.GetWifiInfo:
		return &protocol.StateWifiInfo{Signal: 2e-5, Tx: 30, Rx: 40}
	case *protocol.GetInfo:
		return &protocol.StateInfo{Time: 1600000000000000000, Uptime: 7200000000000}
	case *protocol.EchoRequest:
		return &protocol.EchoResponse{Payload: m.Payload}
	case *protocol.LightGet:
		return &protocol.LightState{Color: b.Color, Power: b.Power, Label: protocol.NewLabel(b.Label)}
	case *protocol.LightSetColor:
		b.Color = m.Color
		return &protocol.LightState{Color: b.Color, Power: b.Power, Label: protocol.NewLabel(b.Label)}
	case *protocol.LightGetPower:
		return &protocol.LightStatePower{Level: b.Power}
	case *protocol.LightSetPower:
		b.Power = m.Level
		return &protocol.LightStatePower{Level: b.Power}
	case *protocol.LightGetInfrared:
		return &protocol.LightStateInfrared{Brightness: b.Infrared}
	case *protocol.LightSetInfrared:
		b.Infrared = m.Brightness
		return &protocol.LightStateInfrared{Brightness: b.Infrared}
	case *protocol.MultiZoneGetColorZones:
		return &protocol.MultiZoneStateMultiZone{Count: protocol.ZonesPerState, Index: m.Start, Colors: b.Zones}
	case *protocol.MultiZoneSetColorZones:
		for i := int(m.Start); i <= int(m.End) && i < len(b.Zones); i++ {
			b.Zones[i] = m.Color
		}
		return nil
	}
	return nil
}
