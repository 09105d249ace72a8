package config

import (
	"fmt"
	"time"

	"github.com/muurk/lifxlan/internal/device"
	"github.com/muurk/lifxlan/internal/discovery"
)

// CurrentVersion is the only config file version understood.
const CurrentVersion = 1

// Config represents the entire configuration file.
// It holds tool settings only; device state is never stored.
type Config struct {
	Version   int        `yaml:"version"`
	Protocol  *Protocol  `yaml:"protocol,omitempty"`
	Discovery *Discovery `yaml:"discovery,omitempty"`
	Bridge    *Bridge    `yaml:"bridge,omitempty"`
	Log       *Log       `yaml:"log,omitempty"`
}

// Protocol tunes the per-device request workflows.
type Protocol struct {
	TimeoutMS           int `yaml:"timeout_ms"`            // Wait per attempt
	Attempts            int `yaml:"attempts"`              // Sends before a device counts as offline
	UnregisterTimeoutMS int `yaml:"unregister_timeout_ms"` // Quiet period before an offline device is dropped
	RepeatIntervalMS    int `yaml:"repeat_interval_ms"`    // Spacing of rapid repeats
	RapidRepeats        int `yaml:"rapid_repeats"`         // Copies sent by rapid setters
	Port                int `yaml:"port"`
}

// Discovery tunes the broadcast cycle.
type Discovery struct {
	IntervalSeconds int    `yaml:"interval_seconds"` // Time between GetService broadcasts
	StepSeconds     int    `yaml:"step_seconds"`     // Countdown granularity
	BroadcastAddr   string `yaml:"broadcast_addr"`
	ListenAddr      string `yaml:"listen_addr"`
	IPv6Prefix      string `yaml:"ipv6_prefix,omitempty"` // e.g. "fe80::" to address bulbs over IPv6
}

// Bridge configures lifx-bridge.
type Bridge struct {
	Listen       string `yaml:"listen"`
	CertPath     string `yaml:"cert_path,omitempty"`
	KeyPath      string `yaml:"key_path,omitempty"`
	Advertise    bool   `yaml:"advertise"`     // Publish _lifxlan._tcp over mDNS
	InstanceName string `yaml:"instance_name"` // mDNS instance name
	MQTT         *MQTT  `yaml:"mqtt,omitempty"`
}

// MQTT configures the optional MQTT bridge. An empty Broker disables it.
type MQTT struct {
	Broker      string `yaml:"broker"` // e.g. tcp://localhost:1883
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	QoS         byte   `yaml:"qos"`
}

// Log configures logging. An empty level leaves logging off.
type Log struct {
	Level string `yaml:"level"`
}

// DefaultProtocol returns the protocol defaults.
func DefaultProtocol() *Protocol {
	return &Protocol{
		TimeoutMS:           500,
		Attempts:            3,
		UnregisterTimeoutMS: 500,
		RepeatIntervalMS:    50,
		RapidRepeats:        1,
		Port:                56700,
	}
}

// DefaultDiscovery returns the discovery defaults.
func DefaultDiscovery() *Discovery {
	return &Discovery{
		IntervalSeconds: 180,
		StepSeconds:     5,
		BroadcastAddr:   discovery.DefaultBroadcastAddr,
		ListenAddr:      discovery.DefaultListenAddr,
	}
}

// DefaultBridge returns the bridge defaults.
func DefaultBridge() *Bridge {
	return &Bridge{
		Listen:       ":8080",
		Advertise:    true,
		InstanceName: "lifxlan",
		MQTT: &MQTT{
			ClientID:    "lifxlan-bridge",
			TopicPrefix: "lifx",
			QoS:         1,
		},
	}
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Version:   CurrentVersion,
		Protocol:  DefaultProtocol(),
		Discovery: DefaultDiscovery(),
		Bridge:    DefaultBridge(),
		Log:       &Log{},
	}
}

// fillDefaults replaces missing sections with their defaults.
func (c *Config) fillDefaults() {
	if c.Protocol == nil {
		c.Protocol = DefaultProtocol()
	}
	if c.Discovery == nil {
		c.Discovery = DefaultDiscovery()
	}
	if c.Bridge == nil {
		c.Bridge = DefaultBridge()
	}
	if c.Bridge.MQTT == nil {
		c.Bridge.MQTT = DefaultBridge().MQTT
	}
	if c.Log == nil {
		c.Log = &Log{}
	}
}

// Validate checks the values a tool cannot run with.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion)
	}
	p := c.Protocol
	if p.Attempts < 1 {
		return fmt.Errorf("protocol.attempts must be at least 1, got %d", p.Attempts)
	}
	if p.TimeoutMS <= 0 {
		return fmt.Errorf("protocol.timeout_ms must be positive, got %d", p.TimeoutMS)
	}
	if p.RapidRepeats < 1 {
		return fmt.Errorf("protocol.rapid_repeats must be at least 1, got %d", p.RapidRepeats)
	}
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("protocol.port out of range: %d", p.Port)
	}
	d := c.Discovery
	if d.StepSeconds <= 0 {
		return fmt.Errorf("discovery.step_seconds must be positive, got %d", d.StepSeconds)
	}
	if d.IntervalSeconds < d.StepSeconds {
		return fmt.Errorf("discovery.interval_seconds (%d) must not be shorter than step_seconds (%d)", d.IntervalSeconds, d.StepSeconds)
	}
	if q := c.Bridge.MQTT.QoS; q > 2 {
		return fmt.Errorf("bridge.mqtt.qos must be 0, 1 or 2, got %d", q)
	}
	return nil
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// DeviceOptions converts the protocol section to device options.
func (c *Config) DeviceOptions() device.Options {
	p := c.Protocol
	return device.Options{
		Timeout:           ms(p.TimeoutMS),
		Attempts:          p.Attempts,
		UnregisterTimeout: ms(p.UnregisterTimeoutMS),
		RepeatInterval:    ms(p.RepeatIntervalMS),
		Repeats:           p.RapidRepeats,
		Port:              p.Port,
	}
}

// DiscoveryOptions converts the discovery section, carrying the device
// options along for the lights discovery creates.
func (c *Config) DiscoveryOptions() discovery.Options {
	d := c.Discovery
	return discovery.Options{
		Interval:      time.Duration(d.IntervalSeconds) * time.Second,
		Step:          time.Duration(d.StepSeconds) * time.Second,
		BroadcastAddr: d.BroadcastAddr,
		Port:          c.Protocol.Port,
		ListenAddr:    d.ListenAddr,
		IPv6Prefix:    d.IPv6Prefix,
		Device:        c.DeviceOptions(),
	}
}
