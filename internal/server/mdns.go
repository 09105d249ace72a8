package server

import (
	"fmt"
	"strconv"

	"github.com/grandcat/zeroconf"
	"github.com/muurk/lifxlan/internal/discovery"
	"github.com/muurk/lifxlan/internal/logging"
	"github.com/muurk/lifxlan/internal/version"
	"go.uber.org/zap"
)

// DefaultInstanceName is advertised when the config leaves it empty.
const DefaultInstanceName = "lifxlan"

// advertTXT builds the TXT records read back by discovery.Bridge.
func advertTXT(useTLS bool, devices int) []string {
	tlsFlag := "0"
	if useTLS {
		tlsFlag = "1"
	}
	return []string{
		"version=" + version.Version,
		"devices=" + strconv.Itoa(devices),
		"tls=" + tlsFlag,
	}
}

// Advertise registers the bridge as discovery.BridgeServiceType on every
// interface. Call Shutdown on the result to withdraw it.
func Advertise(instance string, port int, useTLS bool, devices int) (*zeroconf.Server, error) {
	if instance == "" {
		instance = DefaultInstanceName
	}

	srv, err := zeroconf.Register(instance, discovery.BridgeServiceType, discovery.ServiceDomain,
		port, advertTXT(useTLS, devices), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Advertising bridge over mDNS",
		zap.String("instance", instance),
		zap.String("service", discovery.BridgeServiceType),
		zap.Int("port", port),
	)
	return srv, nil
}
