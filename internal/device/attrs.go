package device

import (
	"context"
	"fmt"

	"github.com/muurk/lifxlan/internal/protocol"
	"golang.org/x/sync/errgroup"
)

// Version is the hardware identity reported by StateVersion.
type Version struct {
	Vendor  uint32 `json:"vendor"`
	Product uint32 `json:"product"`
	Version uint32 `json:"version"`
}

// Firmware is a decoded firmware version and its build time in nanoseconds.
type Firmware struct {
	Version string `json:"version"`
	Build   uint64 `json:"build"`
}

// Radio is a host or wifi signal report.
type Radio struct {
	Signal float32 `json:"signal"`
	Tx     uint32  `json:"tx"`
	Rx     uint32  `json:"rx"`
}

// Info is the bulb clock and its up and down times, all in nanoseconds.
type Info struct {
	Time     uint64 `json:"time"`
	Uptime   uint64 `json:"uptime"`
	Downtime uint64 `json:"downtime"`
}

// attributes is the metadata cache. Each has* flag records whether the
// value was ever fetched or set.
type attributes struct {
	label    string
	hasLabel bool

	location    string
	hasLocation bool

	group    string
	hasGroup bool

	powerLevel uint16
	hasPower   bool

	version    Version
	hasVersion bool

	hostFirmware    Firmware
	hasHostFirmware bool

	wifiFirmware    Firmware
	hasWifiFirmware bool
}

// PowerLevel maps a boolean to the wire level.
func PowerLevel(on bool) uint16 {
	if on {
		return protocol.PowerOn
	}
	return protocol.PowerOff
}

// payload type-asserts a reply or reports a protocol fault.
func payload[T protocol.Message](d *Device, f *protocol.Frame) (T, error) {
	p, ok := f.Payload.(T)
	if !ok {
		var zero T
		return zero, NewProtocolError(d.MAC(), fmt.Sprintf("unexpected reply %T", f.Payload))
	}
	return p, nil
}

// Label returns the label, fetching it on first use.
func (d *Device) Label(ctx context.Context) (string, error) {
	d.cacheMu.RLock()
	label, ok := d.cache.label, d.cache.hasLabel
	d.cacheMu.RUnlock()
	if ok {
		return label, nil
	}

	resp, err := d.RequestResponse(ctx, &protocol.GetLabel{}, protocol.TypeStateLabel)
	if err != nil {
		return "", fmt.Errorf("failed to get label: %w", err)
	}
	state, err := payload[*protocol.StateLabel](d, resp)
	if err != nil {
		return "", err
	}
	label = protocol.LabelString(state.Label)
	d.setLabelCache(label)
	return label, nil
}

func (d *Device) setLabelCache(label string) {
	d.cacheMu.Lock()
	d.cache.label, d.cache.hasLabel = label, true
	d.cacheMu.Unlock()
}

// SetLabel renames the bulb. Labels longer than 32 bytes are truncated.
func (d *Device) SetLabel(ctx context.Context, label string) error {
	wire := protocol.NewLabel(label)
	if _, err := d.RequestAck(ctx, &protocol.SetLabel{Label: wire}); err != nil {
		return fmt.Errorf("failed to set label: %w", err)
	}
	d.setLabelCache(protocol.LabelString(wire))
	return nil
}

// Location returns the location label, fetching it on first use.
func (d *Device) Location(ctx context.Context) (string, error) {
	d.cacheMu.RLock()
	loc, ok := d.cache.location, d.cache.hasLocation
	d.cacheMu.RUnlock()
	if ok {
		return loc, nil
	}

	resp, err := d.RequestResponse(ctx, &protocol.GetLocation{}, protocol.TypeStateLocation)
	if err != nil {
		return "", fmt.Errorf("failed to get location: %w", err)
	}
	state, err := payload[*protocol.StateLocation](d, resp)
	if err != nil {
		return "", err
	}
	loc = protocol.LabelString(state.Label)
	d.cacheMu.Lock()
	d.cache.location, d.cache.hasLocation = loc, true
	d.cacheMu.Unlock()
	return loc, nil
}

// Group returns the group label, fetching it on first use.
func (d *Device) Group(ctx context.Context) (string, error) {
	d.cacheMu.RLock()
	group, ok := d.cache.group, d.cache.hasGroup
	d.cacheMu.RUnlock()
	if ok {
		return group, nil
	}

	resp, err := d.RequestResponse(ctx, &protocol.GetGroup{}, protocol.TypeStateGroup)
	if err != nil {
		return "", fmt.Errorf("failed to get group: %w", err)
	}
	state, err := payload[*protocol.StateGroup](d, resp)
	if err != nil {
		return "", err
	}
	group = protocol.LabelString(state.Label)
	d.cacheMu.Lock()
	d.cache.group, d.cache.hasGroup = group, true
	d.cacheMu.Unlock()
	return group, nil
}

func (d *Device) setPowerCache(level uint16) {
	d.cacheMu.Lock()
	d.cache.powerLevel, d.cache.hasPower = level, true
	d.cacheMu.Unlock()
}

// Power always asks the bulb. Any non-zero level counts as on; the raw level
// is kept in the cache.
func (d *Device) Power(ctx context.Context) (bool, error) {
	resp, err := d.RequestResponse(ctx, &protocol.GetPower{}, protocol.TypeStatePower)
	if err != nil {
		return false, fmt.Errorf("failed to get power: %w", err)
	}
	state, err := payload[*protocol.StatePower](d, resp)
	if err != nil {
		return false, err
	}
	d.setPowerCache(state.Level)
	return state.Level != protocol.PowerOff, nil
}

// SetPower switches the bulb. With rapid set the frame is fired Repeats times
// without waiting for an acknowledgement.
func (d *Device) SetPower(ctx context.Context, on, rapid bool) error {
	msg := &protocol.SetPower{Level: PowerLevel(on)}
	var err error
	if rapid {
		err = d.FireAndForget(ctx, msg, d.opts.Repeats)
	} else {
		_, err = d.RequestAck(ctx, msg)
	}
	if err != nil {
		return fmt.Errorf("failed to set power: %w", err)
	}
	d.setPowerCache(msg.Level)
	return nil
}

// Version returns the vendor, product and hardware version, fetching them on
// first use.
func (d *Device) Version(ctx context.Context) (Version, error) {
	d.cacheMu.RLock()
	v, ok := d.cache.version, d.cache.hasVersion
	d.cacheMu.RUnlock()
	if ok {
		return v, nil
	}

	resp, err := d.RequestResponse(ctx, &protocol.GetVersion{}, protocol.TypeStateVersion)
	if err != nil {
		return Version{}, fmt.Errorf("failed to get version: %w", err)
	}
	state, err := payload[*protocol.StateVersion](d, resp)
	if err != nil {
		return Version{}, err
	}
	v = Version{Vendor: state.Vendor, Product: state.Product, Version: state.Version}
	d.cacheMu.Lock()
	d.cache.version, d.cache.hasVersion = v, true
	d.cacheMu.Unlock()
	return v, nil
}

// HostFirmware returns the host firmware, fetching it on first use.
func (d *Device) HostFirmware(ctx context.Context) (Firmware, error) {
	d.cacheMu.RLock()
	fw, ok := d.cache.hostFirmware, d.cache.hasHostFirmware
	d.cacheMu.RUnlock()
	if ok {
		return fw, nil
	}

	resp, err := d.RequestResponse(ctx, &protocol.GetHostFirmware{}, protocol.TypeStateHostFirmware)
	if err != nil {
		return Firmware{}, fmt.Errorf("failed to get host firmware: %w", err)
	}
	state, err := payload[*protocol.StateHostFirmware](d, resp)
	if err != nil {
		return Firmware{}, err
	}
	fw = Firmware{Version: protocol.FirmwareVersion(state.Version), Build: state.Build}
	d.cacheMu.Lock()
	d.cache.hostFirmware, d.cache.hasHostFirmware = fw, true
	d.cacheMu.Unlock()
	return fw, nil
}

// WifiFirmware returns the wifi firmware, fetching it on first use.
func (d *Device) WifiFirmware(ctx context.Context) (Firmware, error) {
	d.cacheMu.RLock()
	fw, ok := d.cache.wifiFirmware, d.cache.hasWifiFirmware
	d.cacheMu.RUnlock()
	if ok {
		return fw, nil
	}

	resp, err := d.RequestResponse(ctx, &protocol.GetWifiFirmware{}, protocol.TypeStateWifiFirmware)
	if err != nil {
		return Firmware{}, fmt.Errorf("failed to get wifi firmware: %w", err)
	}
	state, err := payload[*protocol.StateWifiFirmware](d, resp)
	if err != nil {
		return Firmware{}, err
	}
	fw = Firmware{Version: protocol.FirmwareVersion(state.Version), Build: state.Build}
	d.cacheMu.Lock()
	d.cache.wifiFirmware, d.cache.hasWifiFirmware = fw, true
	d.cacheMu.Unlock()
	return fw, nil
}

// HostInfo returns the host radio counters. Never cached.
func (d *Device) HostInfo(ctx context.Context) (Radio, error) {
	resp, err := d.RequestResponse(ctx, &protocol.GetHostInfo{}, protocol.TypeStateHostInfo)
	if err != nil {
		return Radio{}, fmt.Errorf("failed to get host info: %w", err)
	}
	state, err := payload[*protocol.StateHostInfo](d, resp)
	if err != nil {
		return Radio{}, err
	}
	return Radio{Signal: state.Signal, Tx: state.Tx, Rx: state.Rx}, nil
}

// WifiInfo returns the wifi radio counters. Never cached.
func (d *Device) WifiInfo(ctx context.Context) (Radio, error) {
	resp, err := d.RequestResponse(ctx, &protocol.GetWifiInfo{}, protocol.TypeStateWifiInfo)
	if err != nil {
		return Radio{}, fmt.Errorf("failed to get wifi info: %w", err)
	}
	state, err := payload[*protocol.StateWifiInfo](d, resp)
	if err != nil {
		return Radio{}, err
	}
	return Radio{Signal: state.Signal, Tx: state.Tx, Rx: state.Rx}, nil
}

// Info returns the bulb clock and up/down times. Never cached.
func (d *Device) Info(ctx context.Context) (Info, error) {
	resp, err := d.RequestResponse(ctx, &protocol.GetInfo{}, protocol.TypeStateInfo)
	if err != nil {
		return Info{}, fmt.Errorf("failed to get info: %w", err)
	}
	state, err := payload[*protocol.StateInfo](d, resp)
	if err != nil {
		return Info{}, err
	}
	return Info{Time: state.Time, Uptime: state.Uptime, Downtime: state.Downtime}, nil
}

// Echo sends up to 64 bytes and returns what the bulb echoed back.
func (d *Device) Echo(ctx context.Context, data []byte) ([]byte, error) {
	req := &protocol.EchoRequest{}
	n := copy(req.Payload[:], data)

	resp, err := d.RequestResponse(ctx, req, protocol.TypeEchoResponse)
	if err != nil {
		return nil, fmt.Errorf("failed to echo: %w", err)
	}
	state, err := payload[*protocol.EchoResponse](d, resp)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, state.Payload[:n])
	return out, nil
}

// FetchMetadata loads label, location, version, group and both firmware
// versions concurrently and returns the first error.
func (d *Device) FetchMetadata(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { _, err := d.Label(ctx); return err })
	g.Go(func() error { _, err := d.Location(ctx); return err })
	g.Go(func() error { _, err := d.Version(ctx); return err })
	g.Go(func() error { _, err := d.Group(ctx); return err })
	g.Go(func() error { _, err := d.WifiFirmware(ctx); return err })
	g.Go(func() error { _, err := d.HostFirmware(ctx); return err })
	return g.Wait()
}

// CachedLabel returns the cached label without touching the network.
func (d *Device) CachedLabel() string {
	d.cacheMu.RLock()
	defer d.cacheMu.RUnlock()
	return d.cache.label
}

// CachedLocation returns the cached location label.
func (d *Device) CachedLocation() string {
	d.cacheMu.RLock()
	defer d.cacheMu.RUnlock()
	return d.cache.location
}

// CachedGroup returns the cached group label.
func (d *Device) CachedGroup() string {
	d.cacheMu.RLock()
	defer d.cacheMu.RUnlock()
	return d.cache.group
}

// CachedPower returns the last known power level and whether one is known.
func (d *Device) CachedPower() (level uint16, known bool) {
	d.cacheMu.RLock()
	defer d.cacheMu.RUnlock()
	return d.cache.powerLevel, d.cache.hasPower
}

// CachedVersion returns the cached version and whether it was fetched.
func (d *Device) CachedVersion() (Version, bool) {
	d.cacheMu.RLock()
	defer d.cacheMu.RUnlock()
	return d.cache.version, d.cache.hasVersion
}

// CachedFirmware returns the cached host and wifi firmware.
func (d *Device) CachedFirmware() (host, wifi Firmware) {
	d.cacheMu.RLock()
	defer d.cacheMu.RUnlock()
	return d.cache.hostFirmware, d.cache.wifiFirmware
}
