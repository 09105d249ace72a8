// Lifx-bridge exposes the LIFX bulbs on the local network over HTTP,
// a websocket event stream and optionally MQTT.
//
// It runs discovery continuously, keeps a registry of every bulb that
// answers and serves that registry until interrupted.
//
// Usage:
//
//	lifx-bridge serve [flags]
//
// See 'lifx-bridge serve --help' for available options.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/muurk/lifxlan/internal/config"
	"github.com/muurk/lifxlan/internal/discovery"
	"github.com/muurk/lifxlan/internal/logging"
	"github.com/muurk/lifxlan/internal/mqtt"
	"github.com/muurk/lifxlan/internal/registry"
	"github.com/muurk/lifxlan/internal/server"
	"github.com/muurk/lifxlan/internal/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lifx-bridge",
	Short: "LIFX LAN bridge",
	Long: `A long running bridge between LIFX bulbs and HTTP, websocket and MQTT clients.

Bulbs are discovered on UDP port 56700. The HTTP API lists them and accepts
power, colour and label commands; every change is streamed to websocket
clients and, when a broker is configured, published to MQTT.

Note: For one-off commands, use the separate 'lifxctl' utility.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command and flags
var (
	configPath string
	listen     string
	certPath   string
	keyPath    string
	broker     string
	noAdvert   bool
	logLevel   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run discovery and serve the API",
	Long: `Run discovery and serve the HTTP API until interrupted.

Flags override the matching entries of the config file. TLS is enabled when
both --cert and --key are given. The MQTT bridge starts when a broker is
configured.`,
	Example: `  # Serve on the default port with mDNS advertisement
  lifx-bridge serve

  # Serve over TLS on 8443
  lifx-bridge serve --listen :8443 --cert cert.pem --key key.pem

  # Also bridge to MQTT
  lifx-bridge serve --mqtt-broker tcp://localhost:1883 --log-level debug`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&configPath, "config", "", "Config file (default: the user config directory)")
	f.StringVar(&listen, "listen", "", "HTTP listen address (default from config, :8080)")
	f.StringVar(&certPath, "cert", "", "Path to TLS certificate file")
	f.StringVar(&keyPath, "key", "", "Path to TLS private key file")
	f.StringVar(&broker, "mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883")
	f.BoolVar(&noAdvert, "no-advertise", false, "Do not register the bridge over mDNS")
	f.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

// loadConfig reads the config and applies the flag overrides.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	b := cfg.Bridge
	if listen != "" {
		b.Listen = listen
	}
	if (certPath == "") != (keyPath == "") {
		return nil, errors.New("both --cert and --key must be provided together")
	}
	if certPath != "" {
		b.CertPath, b.KeyPath = certPath, keyPath
	}
	if broker != "" {
		b.MQTT.Broker = broker
	}
	if noAdvert {
		b.Advertise = false
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, cfg.Validate()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := logging.Initialize(cfg.Log.Level); err != nil {
		return err
	}
	defer logging.Sync()

	logging.Info("Starting lifx-bridge", zap.String("version", version.Full()))

	reg := registry.New()
	defer reg.Close()

	engine := discovery.New(reg, cfg.DiscoveryOptions())
	defer engine.Close()

	srv, err := server.New(server.Config{
		Listen:       cfg.Bridge.Listen,
		CertPath:     cfg.Bridge.CertPath,
		KeyPath:      cfg.Bridge.KeyPath,
		Advertise:    cfg.Bridge.Advertise,
		InstanceName: cfg.Bridge.InstanceName,
	}, reg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	var bridge *mqtt.Bridge
	if m := cfg.Bridge.MQTT; m.Broker != "" {
		client, err := mqtt.Connect(*m)
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Close(); err != nil {
				logging.Warn("Failed to close MQTT client", zap.Error(err))
			}
		}()
		bridge = mqtt.NewBridge(client, reg, m.TopicPrefix, m.QoS)
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error { return engine.Run(ctx) })
	g.Go(func() error { return srv.Start(ctx) })
	if bridge != nil {
		g.Go(func() error { return bridge.Run(ctx) })
	}

	err = g.Wait()
	logging.Info("lifx-bridge stopped")
	return err
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("lifx-bridge %s\n", version.Full())
	},
}
