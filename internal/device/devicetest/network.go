// Package devicetest provides an in-memory stand-in for the UDP network so
// device, registry and discovery code can be tested without sockets.
package devicetest

import (
	"net"
	"sync"
	"time"

	"github.com/muurk/lifxlan/internal/device"
	"github.com/muurk/lifxlan/internal/protocol"
)

// Responder answers a frame sent to a fake bulb.
type Responder func(c *Conn, f *protocol.Frame)

// Network hands out Conns and routes sent frames to responders.
type Network struct {
	mu         sync.Mutex
	conns      []*Conn
	responders map[string]Responder

	// Default answers frames for addresses without their own responder.
	Default Responder
}

// NewNetwork returns an empty network where nothing answers.
func NewNetwork() *Network {
	return &Network{responders: make(map[string]Responder)}
}

// Handle installs the responder for one IP address.
func (n *Network) Handle(ip string, r Responder) {
	n.mu.Lock()
	n.responders[ip] = r
	n.mu.Unlock()
}

// Dial implements device.Dialer.
func (n *Network) Dial(addr *net.UDPAddr, recv func([]byte)) (device.Transport, error) {
	c := &Conn{Addr: addr, network: n, recv: recv}
	n.mu.Lock()
	n.conns = append(n.conns, c)
	n.mu.Unlock()
	return c, nil
}

// Conns returns every Conn dialled so far, oldest first.
func (n *Network) Conns() []*Conn {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*Conn(nil), n.conns...)
}

// Last returns the most recently dialled Conn or nil.
func (n *Network) Last() *Conn {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.conns) == 0 {
		return nil
	}
	return n.conns[len(n.conns)-1]
}

func (n *Network) responder(ip string) Responder {
	n.mu.Lock()
	defer n.mu.Unlock()
	if r, ok := n.responders[ip]; ok {
		return r
	}
	return n.Default
}

// Conn is one fake binding. It records every datagram sent through it.
type Conn struct {
	Addr *net.UDPAddr

	network *Network
	recv    func([]byte)

	mu     sync.Mutex
	sent   [][]byte
	sentAt []time.Time
	closed bool
}

// Send records data and passes the decoded frame to the responder.
func (c *Conn) Send(data []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return net.ErrClosed
	}
	c.sent = append(c.sent, append([]byte(nil), data...))
	c.sentAt = append(c.sentAt, time.Now())
	c.mu.Unlock()

	r := c.network.responder(c.Addr.IP.String())
	if r == nil {
		return nil
	}
	f, err := protocol.Decode(data)
	if err != nil {
		return nil
	}
	r(c, f)
	return nil
}

// Close implements device.Transport.
func (c *Conn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// SentRaw returns copies of every datagram sent.
func (c *Conn) SentRaw() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	for i, b := range c.sent {
		out[i] = append([]byte(nil), b...)
	}
	return out
}

// SentTimes returns when each datagram was sent, in SentRaw order.
func (c *Conn) SentTimes() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Time(nil), c.sentAt...)
}

// Sent returns every sent datagram decoded.
func (c *Conn) Sent() []*protocol.Frame {
	var frames []*protocol.Frame
	for _, b := range c.SentRaw() {
		if f, err := protocol.Decode(b); err == nil {
			frames = append(frames, f)
		}
	}
	return frames
}

// SentOfType returns the sent frames carrying message type typ.
func (c *Conn) SentOfType(typ uint16) []*protocol.Frame {
	var out []*protocol.Frame
	for _, f := range c.Sent() {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

// Deliver injects a datagram as if the bulb had sent it.
func (c *Conn) Deliver(data []byte) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if !closed {
		c.recv(data)
	}
}

// Reply answers req with msg, echoing its sequence and source.
func (c *Conn) Reply(req *protocol.Frame, msg protocol.Message) {
	c.Deliver(Encode(req.Target, req.Source, req.Sequence, msg))
}

// Encode builds a reply datagram from the bulb at target.
func Encode(target protocol.MAC, source uint32, seq uint8, msg protocol.Message) []byte {
	data, err := protocol.Encode(protocol.NewFrame(target, source, seq, msg))
	if err != nil {
		panic(err)
	}
	return data
}

// Acknowledger answers every ack-flagged frame and nothing else.
func Acknowledger(c *Conn, f *protocol.Frame) {
	if f.AckRequired {
		c.Reply(f, &protocol.Acknowledgement{})
	}
}
