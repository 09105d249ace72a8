package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/muurk/lifxlan/internal/logging"
	"go.uber.org/zap"
)

const (
	// BridgeServiceType is the mDNS service type lifx-bridge advertises
	BridgeServiceType = "_lifxlan._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for bridge discovery
	DefaultScanTimeout = 10 * time.Second

	// DefaultBridgePort is assumed when an entry carries no port
	DefaultBridgePort = 8080
)

// BridgeScanner finds lifx-bridge instances over mDNS
type BridgeScanner struct {
	// Timeout is the maximum time to wait for answers
	Timeout time.Duration
}

// NewBridgeScanner creates a scanner with default settings
func NewBridgeScanner() *BridgeScanner {
	return &BridgeScanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan returns every bridge that answered within the timeout
func (s *BridgeScanner) Scan(ctx context.Context) ([]*Bridge, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu      sync.Mutex
		bridges = make([]*Bridge, 0)
		done    = make(chan struct{})
	)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		defer close(done)
		for entry := range entries {
			if b := s.parseServiceEntry(entry); b != nil {
				logging.Debug("Found bridge", zap.String("bridge", b.String()))
				mu.Lock()
				bridges = append(bridges, b)
				mu.Unlock()
			}
		}
	}()

	if err := resolver.Browse(ctx, BridgeServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	// zeroconf closes entries once the browse context ends
	select {
	case <-done:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	return bridges, nil
}

// WaitForBridge returns the bridge advertising instance, or an error if it
// does not answer within the timeout
func (s *BridgeScanner) WaitForBridge(ctx context.Context, instance string) (*Bridge, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Bridge, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			b := s.parseServiceEntry(entry)
			if b != nil && b.Instance == instance {
				found <- b
				cancel()
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, BridgeServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case b := <-found:
		return b, nil
	case <-ctx.Done():
		// The finder may have cancelled just after sending
		select {
		case b := <-found:
			return b, nil
		default:
		}
		return nil, fmt.Errorf("bridge %q not found within timeout", instance)
	}
}

// parseServiceEntry converts a zeroconf entry to a Bridge.
// Returns nil for entries without an instance name or address.
func (s *BridgeScanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Bridge {
	if entry.Instance == "" {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultBridgePort
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	return &Bridge{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// ScanForBridges scans with a custom timeout
func ScanForBridges(ctx context.Context, timeout time.Duration) ([]*Bridge, error) {
	scanner := NewBridgeScanner()
	scanner.Timeout = timeout
	return scanner.Scan(ctx)
}
