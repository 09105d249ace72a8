package device

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/muurk/lifxlan/internal/logging"
	"github.com/muurk/lifxlan/internal/protocol"
	"go.uber.org/zap"
)

// Entity is a registrable device: a plain *Device or a *Light.
type Entity interface {
	Base() *Device
	Snapshot() Snapshot
	String() string
}

// Registrar is told when a device starts and stops answering.
type Registrar interface {
	Register(e Entity)
	Unregister(e Entity)
}

// Device is one bulb on the LAN, identified by its MAC address. Its IP and
// port can change over its lifetime; see Renew.
type Device struct {
	mac    protocol.MAC
	source uint32
	opts   Options

	// self is the outermost entity (the *Light when embedded) handed to the
	// registrar.
	self Entity

	mu           sync.Mutex
	ip           net.IP
	port         int
	transport    Transport
	registrar    Registrar
	registered   bool
	lastReceived time.Time
	callback     func(*protocol.Frame)

	// inflight is held for reading by every background send. Cleanup takes
	// it for writing before the transport is closed.
	inflight sync.RWMutex

	seqMu   sync.Mutex
	seq     uint8
	pending *pendingTable

	cacheMu sync.RWMutex
	cache   attributes
}

// New creates a device at ip:port. No socket is opened until Renew.
func New(mac protocol.MAC, ip net.IP, port int, opts Options) *Device {
	opts = opts.withDefaults()
	if port == 0 {
		port = opts.Port
	}
	d := &Device{
		mac:     mac,
		source:  opts.Source,
		opts:    opts,
		ip:      ip,
		port:    port,
		pending: newPendingTable(),
	}
	d.self = d
	return d
}

// Base implements Entity.
func (d *Device) Base() *Device { return d }

// MAC returns the canonical lower-case MAC address.
func (d *Device) MAC() string { return d.mac.String() }

// HardwareAddr returns the MAC address.
func (d *Device) HardwareAddr() protocol.MAC { return d.mac }

// Source returns the source identifier stamped on every request.
func (d *Device) Source() uint32 { return d.source }

// IP returns the current IP address.
func (d *Device) IP() net.IP {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ip
}

// Port returns the current UDP port.
func (d *Device) Port() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.port
}

// Addr returns the current UDP address.
func (d *Device) Addr() *net.UDPAddr {
	d.mu.Lock()
	defer d.mu.Unlock()
	return &net.UDPAddr{IP: d.ip, Port: d.port}
}

// SetRegistrar sets who is told about registration changes.
func (d *Device) SetRegistrar(r Registrar) {
	d.mu.Lock()
	d.registrar = r
	d.mu.Unlock()
}

// RegisterCallback sets the handler for frames that match no outstanding
// request, such as unsolicited state broadcasts.
func (d *Device) RegisterCallback(cb func(*protocol.Frame)) {
	d.mu.Lock()
	d.callback = cb
	d.mu.Unlock()
}

// Registered reports whether the device is currently registered.
func (d *Device) Registered() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registered
}

// LastReceived returns when the last valid datagram arrived.
func (d *Device) LastReceived() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastReceived
}

// Renew points the device at ip:port. With an unchanged location and a live
// binding it only re-registers. Otherwise the old binding is closed and a new
// one opened.
func (d *Device) Renew(ip net.IP, port int) error {
	d.mu.Lock()
	var old Transport
	if !d.ip.Equal(ip) || d.port != port {
		old = d.transport
		d.transport = nil
		d.ip = ip
		d.port = port
	}
	addr := &net.UDPAddr{IP: d.ip, Port: d.port}
	needDial := d.transport == nil
	d.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			logging.Debug("Failed to close stale binding", zap.String("mac", d.MAC()), zap.Error(err))
		}
	}

	if needDial {
		t, err := d.opts.Dial(addr, d.receive)
		if err != nil {
			return NewNetworkError(d.MAC(), "failed to bind", err)
		}
		d.mu.Lock()
		if d.transport != nil {
			// Lost a race with a concurrent Renew
			d.mu.Unlock()
			_ = t.Close()
		} else {
			d.transport = t
			d.mu.Unlock()
		}
	}

	d.register()
	return nil
}

// Cleanup waits for background sends to finish, then closes the binding.
// Outstanding requests fail once their attempts run out.
func (d *Device) Cleanup() {
	d.inflight.Lock()
	defer d.inflight.Unlock()

	d.mu.Lock()
	t := d.transport
	d.transport = nil
	d.mu.Unlock()

	if t != nil {
		_ = t.Close()
	}
}

func (d *Device) register() {
	d.mu.Lock()
	if d.registered {
		d.mu.Unlock()
		return
	}
	d.registered = true
	r := d.registrar
	d.mu.Unlock()

	if r != nil {
		r.Register(d.self)
	}
}

// unregister fires only if nothing arrived within UnregisterTimeout.
func (d *Device) unregister() {
	d.mu.Lock()
	if !d.registered || time.Since(d.lastReceived) < d.opts.UnregisterTimeout {
		d.mu.Unlock()
		return
	}
	d.registered = false
	r := d.registrar
	d.mu.Unlock()

	if r != nil {
		r.Unregister(d.self)
	}
}

// receive is the transport callback for every inbound datagram.
func (d *Device) receive(data []byte) {
	f, err := protocol.Decode(data)
	if err != nil {
		logging.Debug("Dropping malformed frame", zap.String("mac", d.MAC()), zap.Error(err))
		logging.LogRawBytes("Malformed frame bytes", data)
		return
	}
	logging.LogFrame("recv", d.Addr().String(), f.Type, f.Sequence, data)

	d.mu.Lock()
	d.lastReceived = time.Now()
	cb := d.callback
	d.mu.Unlock()
	d.register()

	if d.pending.complete(f, d.source) {
		return
	}
	if cb != nil {
		cb(f)
		return
	}
	logging.Debug("Uncorrelated frame",
		zap.String("mac", d.MAC()),
		zap.String("type", protocol.TypeName(f.Type)),
		zap.Uint8("seq", f.Sequence),
	)
}

// allocate picks the next free sequence number and registers it in one step.
// Sequences still awaiting a reply are skipped.
func (d *Device) allocate(expected uint16) (*pendingEntry, error) {
	d.seqMu.Lock()
	defer d.seqMu.Unlock()

	for i := 0; i <= protocol.MaxSequence; i++ {
		d.seq = (d.seq + 1) % (protocol.MaxSequence + 1)
		if !d.pending.has(d.seq) {
			return d.pending.begin(d.seq, expected), nil
		}
	}
	return nil, NewProtocolError(d.MAC(), "every sequence number is outstanding")
}

func (d *Device) write(data []byte) error {
	d.mu.Lock()
	t := d.transport
	addr := net.JoinHostPort(d.ip.String(), strconv.Itoa(d.port))
	d.mu.Unlock()

	if t == nil {
		return NewNetworkError(d.MAC(), "no binding", nil)
	}
	if err := t.Send(data); err != nil {
		return NewNetworkError(d.MAC(), "send failed", err)
	}
	if typ, ok := protocol.PeekType(data); ok {
		logging.LogFrame("send", addr, typ, data[23], data)
	}
	return nil
}

func (d *Device) encode(f *protocol.Frame) ([]byte, error) {
	data, err := protocol.Encode(f)
	if err != nil {
		return nil, &DeviceError{Type: ErrTypeProtocol, Message: "failed to encode request", MAC: d.MAC(), Err: err}
	}
	return data, nil
}

// request runs the retry loop shared by every correlated workflow. The same
// encoded frame is sent up to Attempts times.
func (d *Device) request(ctx context.Context, msg protocol.Message, ack, res bool, expected uint16) (*protocol.Frame, error) {
	entry, err := d.allocate(expected)
	if err != nil {
		return nil, err
	}
	defer d.pending.remove(entry.seq)

	frame := protocol.NewFrame(d.mac, d.source, entry.seq, msg)
	frame.AckRequired = ack
	frame.ResRequired = res
	data, err := d.encode(frame)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= d.opts.Attempts; attempt++ {
		e, err := d.pending.rearm(entry.seq)
		if err != nil {
			return nil, err
		}
		if err := d.write(data); err != nil {
			return nil, err
		}
		if resp, ok := d.pending.wait(ctx, e, d.opts.Timeout); ok {
			return resp, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("failed to await %s: %w", protocol.TypeName(expected), err)
		}
		logging.Debug("Request attempt timed out",
			zap.String("mac", d.MAC()),
			zap.String("type", protocol.TypeName(msg.Type())),
			zap.Uint8("seq", entry.seq),
			zap.Int("attempt", attempt),
		)
	}

	d.pending.remove(entry.seq)
	d.unregister()
	return nil, NewOfflineError(d.MAC(), d.opts.Attempts, protocol.TypeName(expected))
}

// RequestAck sends msg with ack_required and waits for the Acknowledgement.
func (d *Device) RequestAck(ctx context.Context, msg protocol.Message) (*protocol.Frame, error) {
	return d.request(ctx, msg, true, false, protocol.TypeAcknowledgement)
}

// RequestResponse sends msg with res_required and waits for a reply of type
// expected.
func (d *Device) RequestResponse(ctx context.Context, msg protocol.Message, expected uint16) (*protocol.Frame, error) {
	return d.request(ctx, msg, false, true, expected)
}

// RequestAckResponse sets both flags. The bulb acknowledges first; the
// request completes on the response.
func (d *Device) RequestAckResponse(ctx context.Context, msg protocol.Message, expected uint16) (*protocol.Frame, error) {
	return d.request(ctx, msg, true, true, expected)
}

// FireAndForget sends msg repeats times in the background with neither flag
// set and sequence 0. Only encoding errors are returned; send failures are
// logged. The repeats run to completion even if ctx is cancelled, and
// Cleanup waits for them.
func (d *Device) FireAndForget(ctx context.Context, msg protocol.Message, repeats int) error {
	data, err := d.encode(protocol.NewFrame(d.mac, d.source, 0, msg))
	if err != nil {
		return err
	}
	d.inflight.RLock()
	go func() {
		defer d.inflight.RUnlock()
		if err := d.sendRepeated(context.WithoutCancel(ctx), data, repeats); err != nil {
			logging.Debug("Fire-and-forget send failed", zap.String("mac", d.MAC()), zap.Error(err))
		}
	}()
	return nil
}

func (d *Device) sendRepeated(ctx context.Context, data []byte, repeats int) error {
	if repeats < 1 {
		repeats = 1
	}
	for i := 0; i < repeats; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.opts.RepeatInterval):
			}
		}
		if err := d.write(data); err != nil {
			return err
		}
	}
	return nil
}

// String returns "label (mac)".
func (d *Device) String() string {
	return fmt.Sprintf("%s (%s)", d.CachedLabel(), d.MAC())
}
