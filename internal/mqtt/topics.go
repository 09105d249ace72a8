package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix roots every topic when the config leaves it empty.
const DefaultTopicPrefix = "lifx"

// Topics builds the bridge's topic names under Prefix.
//
//	lifx/d0:73:d5:01:02:03/state   retained JSON snapshot
//	lifx/d0:73:d5:01:02:03/set     commands
//	lifx/bridge/status             "online" or "offline", retained
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return strings.TrimSuffix(t.Prefix, "/")
}

// State returns the retained state topic of a device.
func (t Topics) State(mac string) string {
	return fmt.Sprintf("%s/%s/state", t.prefix(), mac)
}

// Set returns the command topic of a device.
func (t Topics) Set(mac string) string {
	return fmt.Sprintf("%s/%s/set", t.prefix(), mac)
}

// SetWildcard matches the command topic of every device.
func (t Topics) SetWildcard() string {
	return fmt.Sprintf("%s/+/set", t.prefix())
}

// Status returns the bridge availability topic, also used for the LWT.
func (t Topics) Status() string {
	return fmt.Sprintf("%s/bridge/status", t.prefix())
}

// ParseSetTopic extracts the MAC from a command topic.
func (t Topics) ParseSetTopic(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, t.prefix()+"/")
	if !ok {
		return "", false
	}
	mac, ok := strings.CutSuffix(rest, "/set")
	if !ok || mac == "" || strings.Contains(mac, "/") || mac == "bridge" {
		return "", false
	}
	return strings.ToLower(mac), true
}
