package device

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/muurk/lifxlan/internal/logging"
	"go.uber.org/zap"
)

// maxDatagram is larger than any LIFX frame.
const maxDatagram = 1024

// Transport carries datagrams to one bulb.
type Transport interface {
	Send(data []byte) error
	Close() error
}

// Dialer opens a transport to addr. Every datagram that arrives on it is
// handed to recv on a goroutine owned by the transport.
type Dialer func(addr *net.UDPAddr, recv func([]byte)) (Transport, error)

// UDPDialer opens a connected UDP socket to addr. IPv6 addresses get an
// IPv6 socket.
func UDPDialer(addr *net.UDPAddr, recv func([]byte)) (Transport, error) {
	network := "udp4"
	if addr.IP.To4() == nil {
		network = "udp6"
	}
	conn, err := net.DialUDP(network, nil, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	t := &udpTransport{conn: conn, remote: addr.String()}
	go t.readLoop(recv)
	logging.LogConnection(t.remote, "udp_bound")
	return t, nil
}

type udpTransport struct {
	conn      *net.UDPConn
	remote    string
	closeOnce sync.Once
}

func (t *udpTransport) Send(data []byte) error {
	_, err := t.conn.Write(data)
	return err
}

// Close stops the reader. It does not wait for it so it is safe to call
// from inside recv.
func (t *udpTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		err = t.conn.Close()
		logging.LogConnection(t.remote, "udp_closed")
	})
	return err
}

func (t *udpTransport) readLoop(recv func([]byte)) {
	buf := make([]byte, maxDatagram)
	for {
		n, err := t.conn.Read(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			// ICMP port unreachable surfaces as a read error on connected
			// sockets; the bulb may come back.
			logging.Debug("UDP read error", zap.Error(err))
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		recv(data)
	}
}
