package discovery

import (
	"fmt"
	"net"
	"strings"

	"github.com/muurk/lifxlan/internal/protocol"
)

// MACToIPv6LinkLocal derives the EUI-64 address of mac inside prefix. The
// prefix supplies the upper 64 bits, e.g. "fe80::" or "fe80:0:0:0".
func MACToIPv6LinkLocal(mac protocol.MAC, prefix string) (net.IP, error) {
	high := (uint16(mac[0])<<8 | uint16(mac[1])) ^ 0x0200 // flip the U/L bit
	low := uint16(mac[4])<<8 | uint16(mac[5])

	s := fmt.Sprintf("%s:%04x:%02xff:fe%02x:%04x", strings.TrimSuffix(prefix, ":"), high, mac[2], mac[3], low)
	ip := net.ParseIP(s)
	if ip == nil || ip.To4() != nil {
		return nil, fmt.Errorf("invalid IPv6 prefix %q", prefix)
	}
	return ip, nil
}
