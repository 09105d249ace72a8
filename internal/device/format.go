package device

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/muurk/lifxlan/internal/color"
	"github.com/muurk/lifxlan/internal/products"
	"github.com/muurk/lifxlan/internal/protocol"
)

// Snapshot is a JSON-friendly copy of a device's cached state.
type Snapshot struct {
	MAC          string       `json:"mac"`
	Label        string       `json:"label"`
	Location     string       `json:"location,omitempty"`
	Group        string       `json:"group,omitempty"`
	IP           string       `json:"ip"`
	Port         int          `json:"port"`
	Power        *bool        `json:"power,omitempty"`
	Product      string       `json:"product,omitempty"`
	Version      *Version     `json:"version,omitempty"`
	HostFirmware string       `json:"host_firmware,omitempty"`
	WifiFirmware string       `json:"wifi_firmware,omitempty"`
	Color        *color.Color `json:"color,omitempty"`
	Hex          string       `json:"hex,omitempty"`
	Infrared     *int         `json:"infrared,omitempty"`
	Registered   bool         `json:"registered"`
	LastSeen     *time.Time   `json:"last_seen,omitempty"`
}

// Snapshot copies the cached state. It never touches the network.
func (d *Device) Snapshot() Snapshot {
	addr := d.Addr()
	s := Snapshot{
		MAC:        d.MAC(),
		IP:         addr.IP.String(),
		Port:       addr.Port,
		Registered: d.Registered(),
	}
	if seen := d.LastReceived(); !seen.IsZero() {
		s.LastSeen = &seen
	}

	d.cacheMu.RLock()
	defer d.cacheMu.RUnlock()

	s.Label = d.cache.label
	s.Location = d.cache.location
	s.Group = d.cache.group
	if d.cache.hasPower {
		on := d.cache.powerLevel != protocol.PowerOff
		s.Power = &on
	}
	if d.cache.hasVersion {
		v := d.cache.version
		s.Version = &v
		s.Product = products.Name(v.Product)
	}
	s.HostFirmware = d.cache.hostFirmware.Version
	s.WifiFirmware = d.cache.wifiFirmware.Version
	return s
}

// Snapshot adds the cached colour and infrared level.
func (l *Light) Snapshot() Snapshot {
	s := l.Device.Snapshot()
	if c, ok := l.CachedColor(); ok {
		cc := color.FromValues(c)
		s.Color = &cc
		s.Hex = cc.Hex()
	}
	if ir, ok := l.CachedInfrared(); ok {
		s.Infrared = &ir
	}
	return s
}

func powerString(level uint16, known bool) string {
	switch {
	case !known:
		return "Unknown"
	case level == protocol.PowerOn:
		return "On"
	case level == protocol.PowerOff:
		return "Off"
	default:
		return fmt.Sprintf("Unknown (%d)", level)
	}
}

// CharacteristicsString describes identity, address and power. indent
// prefixes every line after the first.
func (d *Device) CharacteristicsString(indent string) string {
	addr := d.Addr()
	level, known := d.CachedPower()

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", d.CachedLabel())
	fmt.Fprintf(&b, "%sMAC Address: %s\n", indent, d.MAC())
	fmt.Fprintf(&b, "%sIP Address: %s\n", indent, addr.IP)
	fmt.Fprintf(&b, "%sPort: %d\n", indent, addr.Port)
	fmt.Fprintf(&b, "%sPower: %s\n", indent, powerString(level, known))
	fmt.Fprintf(&b, "%sLocation: %s\n", indent, d.CachedLocation())
	fmt.Fprintf(&b, "%sGroup: %s\n", indent, d.CachedGroup())
	return b.String()
}

func buildString(fw Firmware, known bool) (string, string) {
	if !known {
		return "None", "None"
	}
	return fmt.Sprint(fw.Build), nsToUTC(fw.Build)
}

// FirmwareString describes the cached host and wifi firmware.
func (d *Device) FirmwareString(indent string) string {
	d.cacheMu.RLock()
	host, hasHost := d.cache.hostFirmware, d.cache.hasHostFirmware
	wifi, hasWifi := d.cache.wifiFirmware, d.cache.hasWifiFirmware
	d.cacheMu.RUnlock()

	hostNS, hostDate := buildString(host, hasHost)
	wifiNS, wifiDate := buildString(wifi, hasWifi)

	var b strings.Builder
	fmt.Fprintf(&b, "Host Firmware Build Timestamp: %s (%s UTC)\n", hostNS, hostDate)
	fmt.Fprintf(&b, "%sHost Firmware Build Version: %s\n", indent, orNone(host.Version))
	fmt.Fprintf(&b, "%sWifi Firmware Build Timestamp: %s (%s UTC)\n", indent, wifiNS, wifiDate)
	fmt.Fprintf(&b, "%sWifi Firmware Build Version: %s\n", indent, orNone(wifi.Version))
	return b.String()
}

// ProductString describes the cached vendor, product and version.
func (d *Device) ProductString(indent string) string {
	v, ok := d.CachedVersion()

	var b strings.Builder
	if !ok {
		fmt.Fprintf(&b, "Vendor: None\n")
		fmt.Fprintf(&b, "%sProduct: Unknown\n", indent)
		fmt.Fprintf(&b, "%sVersion: None\n", indent)
		return b.String()
	}
	fmt.Fprintf(&b, "Vendor: %d\n", v.Vendor)
	fmt.Fprintf(&b, "%sProduct: %s\n", indent, products.Name(v.Product))
	fmt.Fprintf(&b, "%sVersion: %d\n", indent, v.Version)
	return b.String()
}

// FormatInfo describes a StateInfo reply.
func FormatInfo(info Info, indent string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current Time: %d (%s UTC)\n", info.Time, nsToUTC(info.Time))
	fmt.Fprintf(&b, "%sUptime (ns): %d (%s hours)\n", indent, info.Uptime, nsToHours(info.Uptime))
	fmt.Fprintf(&b, "%sLast Downtime Duration +/-5s (ns): %d (%s hours)\n", indent, info.Downtime, nsToHours(info.Downtime))
	return b.String()
}

// FormatRadio describes a host or wifi info reply.
func FormatRadio(r Radio, indent string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Wifi Signal Strength (mW): %g\n", r.Signal)
	fmt.Fprintf(&b, "%sWifi TX (bytes): %d\n", indent, r.Tx)
	fmt.Fprintf(&b, "%sWifi RX (bytes): %d\n", indent, r.Rx)
	return b.String()
}

func nsToUTC(ns uint64) string {
	return time.Unix(0, int64(ns)).UTC().Format("2006-01-02 15:04:05")
}

func nsToHours(ns uint64) string {
	hours := float64(ns) / float64(time.Hour)
	return fmt.Sprint(math.Round(hours*100) / 100)
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
