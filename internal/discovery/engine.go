package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/muurk/lifxlan/internal/device"
	"github.com/muurk/lifxlan/internal/logging"
	"github.com/muurk/lifxlan/internal/protocol"
	"go.uber.org/zap"
)

// Discovery defaults.
const (
	DefaultInterval      = 180 * time.Second
	DefaultStep          = 5 * time.Second
	DefaultBroadcastAddr = "255.255.255.255"
	DefaultListenAddr    = ":56700"
)

// maxDatagram bounds a single read. The largest LIFX frame is well below it.
const maxDatagram = 1500

// State is the engine's position in the broadcast cycle. Replies are read
// continuously while the socket is bound, so the engine stays listening
// across the steps between broadcasts; the countdown alone decides when the
// next GetService goes out.
type State int32

const (
	// StateIdle means no socket is bound or no broadcast has gone out yet
	StateIdle State = iota
	// StateListening means the socket is bound and a broadcast has gone out.
	// It holds until Run returns.
	StateListening
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	default:
		return "unknown"
	}
}

// Options tune the discovery engine.
type Options struct {
	// Interval is the time between full GetService broadcasts.
	Interval time.Duration
	// Step is how often the countdown to the next broadcast is advanced.
	Step time.Duration
	// BroadcastAddr and Port form the broadcast destination.
	BroadcastAddr string
	Port          int
	// ListenAddr is the local address the discovery socket binds.
	ListenAddr string
	// IPv6Prefix, when set, makes lights use the link-local address derived
	// from their MAC instead of the UDP source address.
	IPv6Prefix string
	// Source identifies broadcasts. Zero picks a random value, which is also
	// given to lights whose Device options carry no source.
	Source uint32
	// Device configures every light the engine creates.
	Device device.Options
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Step <= 0 {
		o.Step = DefaultStep
	}
	if o.BroadcastAddr == "" {
		o.BroadcastAddr = DefaultBroadcastAddr
	}
	if o.Port == 0 {
		o.Port = protocol.DefaultPort
	}
	if o.ListenAddr == "" {
		o.ListenAddr = DefaultListenAddr
	}
	if o.Source == 0 {
		o.Source = device.NewSource()
	}
	if o.Device.Source == 0 {
		o.Device.Source = o.Source
	}
	return o
}

// Engine broadcasts GetService periodically and turns every answering bulb
// into a Light handed to the registrar.
type Engine struct {
	reg  device.Registrar
	opts Options

	mu        sync.Mutex
	lights    map[protocol.MAC]*device.Light
	conn      net.PacketConn
	dst       net.Addr
	countdown time.Duration
	state     State
}

// New creates an engine. Nothing is sent until Run.
func New(reg device.Registrar, opts Options) *Engine {
	return &Engine{
		reg:    reg,
		opts:   opts.withDefaults(),
		lights: make(map[protocol.MAC]*device.Light),
	}
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// State reports whether the engine has broadcast and is reading replies.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Run binds the discovery socket and drives the broadcast cycle until ctx is
// done. The first broadcast goes out immediately.
func (e *Engine) Run(ctx context.Context) error {
	lc := net.ListenConfig{Control: reuseAddr}
	conn, err := lc.ListenPacket(ctx, "udp4", e.opts.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to bind discovery socket: %w", err)
	}

	dst, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(e.opts.BroadcastAddr, strconv.Itoa(e.opts.Port)))
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to resolve broadcast address: %w", err)
	}

	return e.serve(ctx, conn, dst)
}

func (e *Engine) serve(ctx context.Context, conn net.PacketConn, dst net.Addr) error {
	e.mu.Lock()
	e.conn = conn
	e.dst = dst
	e.countdown = 0
	e.mu.Unlock()

	logging.LogConnection(conn.LocalAddr().String(), "discovery_bound")

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		e.readLoop(conn)
	}()

	defer func() {
		_ = conn.Close()
		<-readDone
		e.mu.Lock()
		e.conn = nil
		e.state = StateIdle
		e.mu.Unlock()
		logging.LogConnection(conn.LocalAddr().String(), "discovery_closed")
	}()

	e.tick()
	ticker := time.NewTicker(e.opts.Step)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.tick()
		}
	}
}

// tick advances the countdown by one step and broadcasts when it has run out.
func (e *Engine) tick() {
	e.mu.Lock()
	if e.countdown > 0 {
		e.countdown -= e.opts.Step
		e.mu.Unlock()
		return
	}
	e.countdown = e.opts.Interval
	conn, dst := e.conn, e.dst
	e.mu.Unlock()

	if conn == nil {
		return
	}
	if err := e.broadcast(conn, dst); err != nil {
		logging.Warn("Discovery broadcast failed", zap.String("addr", dst.String()), zap.Error(err))
		return
	}

	e.mu.Lock()
	e.state = StateListening
	e.mu.Unlock()
}

func (e *Engine) broadcast(conn net.PacketConn, dst net.Addr) error {
	f := protocol.NewFrame(protocol.BroadcastMAC, e.opts.Source, 0, &protocol.GetService{}).WithResponse()
	data, err := protocol.Encode(f)
	if err != nil {
		return fmt.Errorf("failed to encode GetService: %w", err)
	}

	logging.Debug("Broadcasting discovery", zap.String("addr", dst.String()))
	logging.LogFrame("send", dst.String(), f.Type, f.Sequence, data)
	if _, err := conn.WriteTo(data, dst); err != nil {
		return fmt.Errorf("failed to send broadcast: %w", err)
	}
	return nil
}

func (e *Engine) readLoop(conn net.PacketConn) {
	buf := make([]byte, maxDatagram)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				logging.Warn("Discovery read failed", zap.Error(err))
			}
			return
		}
		addr, ok := from.(*net.UDPAddr)
		if !ok {
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		e.HandlePacket(data, addr)
	}
}

// HandlePacket processes one datagram received on the discovery socket.
// StateService replies for the UDP service and unsolicited LightState frames
// create or renew a Light; everything else is ignored.
func (e *Engine) HandlePacket(data []byte, from *net.UDPAddr) {
	f, err := protocol.Decode(data)
	if err != nil {
		logging.Debug("Dropping malformed discovery frame", zap.String("from", from.String()), zap.Error(err))
		logging.LogRawBytes("Malformed discovery bytes", data)
		return
	}
	if f.Target.IsBroadcast() {
		return
	}

	var port int
	switch m := f.Payload.(type) {
	case *protocol.StateService:
		if m.Service != protocol.ServiceUDP {
			return
		}
		port = int(m.Port)
	case *protocol.LightState:
		port = protocol.DefaultPort
	default:
		return
	}

	ip := from.IP
	if e.opts.IPv6Prefix != "" {
		ip, err = MACToIPv6LinkLocal(f.Target, e.opts.IPv6Prefix)
		if err != nil {
			logging.Warn("Cannot derive IPv6 address", zap.String("mac", f.Target.String()), zap.Error(err))
			return
		}
	}

	e.mu.Lock()
	l, known := e.lights[f.Target]
	if !known {
		l = device.NewLight(f.Target, ip, port, e.opts.Device)
		l.SetRegistrar(e.reg)
		e.lights[f.Target] = l
	}
	e.mu.Unlock()

	if !known {
		logging.Debug("Discovered light", zap.String("mac", f.Target.String()), zap.String("ip", ip.String()), zap.Int("port", port))
	}
	if err := l.Renew(ip, port); err != nil {
		logging.Warn("Failed to bind light", zap.String("mac", f.Target.String()), zap.Error(err))
	}
}

// Lights returns the lights this engine has seen, ordered by MAC.
func (e *Engine) Lights() []*device.Light {
	e.mu.Lock()
	out := make([]*device.Light, 0, len(e.lights))
	for _, l := range e.lights {
		out = append(out, l)
	}
	e.mu.Unlock()

	slices.SortFunc(out, func(a, b *device.Light) int {
		am, bm := a.HardwareAddr(), b.HardwareAddr()
		return slices.Compare(am[:], bm[:])
	})
	return out
}

// Close releases every light's binding and forgets them.
func (e *Engine) Close() {
	e.mu.Lock()
	lights := e.lights
	e.lights = make(map[protocol.MAC]*device.Light)
	e.mu.Unlock()

	for _, l := range lights {
		l.Cleanup()
	}
}
