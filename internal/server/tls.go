package server

import (
	"crypto/tls"
	"fmt"

	"github.com/muurk/lifxlan/internal/logging"
	"go.uber.org/zap"
)

// NewTLSConfig loads a certificate pair and returns a TLS 1.2+ config.
func NewTLSConfig(certPath, keyPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	logging.Info("TLS configuration created from files",
		zap.String("cert", certPath),
		zap.String("key", keyPath),
	)

	return buildTLSConfig(cert), nil
}

func buildTLSConfig(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,

		VerifyConnection: func(cs tls.ConnectionState) error {
			logging.LogTLSHandshake(
				cs.ServerName,
				cs.Version,
				cs.CipherSuite,
				cs.ServerName,
			)
			return nil
		},
	}
}

// GetTLSInfo returns human-readable TLS configuration information
func GetTLSInfo(config *tls.Config) map[string]interface{} {
	maxVersion := "TLS 1.3"
	if config.MaxVersion == tls.VersionTLS12 {
		maxVersion = "TLS 1.2"
	}
	return map[string]interface{}{
		"min_version":     tls.VersionName(config.MinVersion),
		"max_version":     maxVersion,
		"num_certs":       len(config.Certificates),
		"session_tickets": !config.SessionTicketsDisabled,
	}
}
