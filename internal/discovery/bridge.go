package discovery

import (
	"fmt"
	"time"
)

// Bridge is a lifx-bridge instance found over mDNS.
type Bridge struct {
	// Instance is the advertised instance name (e.g., "lifxlan")
	Instance string

	// Hostname is the mDNS hostname (e.g., "pi.local.")
	Hostname string

	// IP is the bridge address, IPv4 when one was advertised
	IP string

	// Port is the HTTP API port
	Port int

	// Metadata holds the TXT records. The bridge publishes "version",
	// "devices" and "tls".
	Metadata map[string]string

	// DiscoveredAt is when the bridge answered
	DiscoveredAt time.Time
}

// String returns a human-readable description of the bridge
func (b *Bridge) String() string {
	return fmt.Sprintf("LIFX bridge %s (%s) at %s:%d", b.Instance, b.Hostname, b.IP, b.Port)
}

// BaseURL returns the HTTP base URL of the bridge API
func (b *Bridge) BaseURL() string {
	scheme := "http"
	if b.GetMetadata("tls") == "1" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, b.IP, b.Port)
}

// GetMetadata retrieves a TXT value by key, or "" if absent
func (b *Bridge) GetMetadata(key string) string {
	if b.Metadata == nil {
		return ""
	}
	return b.Metadata[key]
}
