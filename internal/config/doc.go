// Package config manages the YAML settings file shared by lifxctl and
// lifx-bridge.
//
// The file holds protocol timing, discovery, bridge and logging settings.
// It never holds device state: bulbs are rediscovered on every start.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/lifxlan/config.yaml or $HOME/.config/lifxlan/config.yaml
//   - macOS: $HOME/.config/lifxlan/config.yaml
//   - Windows: %LOCALAPPDATA%\lifxlan\config.yaml
//
// # Usage Example
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	engine := discovery.New(reg, cfg.DiscoveryOptions())
//
//	cfg.Protocol.Attempts = 5
//	if err := cfg.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Security
//
// The MQTT password, when set, is stored in plain text. Save writes the file
// with mode 0600.
//
// # Thread Safety
//
// Load reads the file once using sync.Once. Writes are serialised by a mutex
// and go through a temporary file and rename.
package config
