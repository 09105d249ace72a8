package discovery

import (
	"testing"
)

func TestBridge_String(t *testing.T) {
	b := &Bridge{
		Instance: "lifxlan",
		Hostname: "pi.local.",
		IP:       "192.168.4.16",
		Port:     8080,
	}

	expected := "LIFX bridge lifxlan (pi.local.) at 192.168.4.16:8080"
	if b.String() != expected {
		t.Errorf("Bridge.String() = %v, want %v", b.String(), expected)
	}
}

func TestBridge_BaseURL(t *testing.T) {
	tests := []struct {
		name     string
		bridge   *Bridge
		expected string
	}{
		{
			name:     "plain HTTP",
			bridge:   &Bridge{IP: "192.168.4.16", Port: 8080},
			expected: "http://192.168.4.16:8080",
		},
		{
			name:     "TLS advertised",
			bridge:   &Bridge{IP: "10.0.0.5", Port: 8443, Metadata: map[string]string{"tls": "1"}},
			expected: "https://10.0.0.5:8443",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.bridge.BaseURL(); got != tt.expected {
				t.Errorf("Bridge.BaseURL() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBridge_GetMetadata(t *testing.T) {
	b := &Bridge{Metadata: map[string]string{"version": "1.2.0", "devices": "4"}}

	tests := []struct {
		key      string
		expected string
	}{
		{"version", "1.2.0"},
		{"devices", "4"},
		{"missing", ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := b.GetMetadata(tt.key); got != tt.expected {
				t.Errorf("Bridge.GetMetadata(%v) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}

	var empty Bridge
	if got := empty.GetMetadata("anything"); got != "" {
		t.Errorf("Bridge.GetMetadata() with nil map = %v, want empty string", got)
	}
}
