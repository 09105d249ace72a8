package device

import (
	"math/rand"
	"time"

	"github.com/muurk/lifxlan/internal/protocol"
)

// Default request tuning.
const (
	DefaultTimeout           = 500 * time.Millisecond
	DefaultAttempts          = 3
	DefaultUnregisterTimeout = 500 * time.Millisecond
	DefaultRepeatInterval    = 50 * time.Millisecond
	DefaultRepeats           = 1
)

// Options tune how a Device talks to its bulb.
type Options struct {
	// Timeout is how long each attempt waits for its reply.
	Timeout time.Duration
	// Attempts is the number of sends before a request gives up.
	Attempts int
	// UnregisterTimeout is the quiet period after which a failed request
	// unregisters the device.
	UnregisterTimeout time.Duration
	// RepeatInterval spaces repeated fire-and-forget sends.
	RepeatInterval time.Duration
	// Repeats is how many copies rapid setters send.
	Repeats int
	// Port is the bulb's UDP port when none is known yet.
	Port int
	// Source identifies this client in every header. Zero picks a random value.
	Source uint32
	// Dial opens the per-device transport. Nil uses UDPDialer.
	Dial Dialer
}

// DefaultOptions returns the protocol defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:           DefaultTimeout,
		Attempts:          DefaultAttempts,
		UnregisterTimeout: DefaultUnregisterTimeout,
		RepeatInterval:    DefaultRepeatInterval,
		Repeats:           DefaultRepeats,
		Port:              protocol.DefaultPort,
	}
}

// withDefaults fills every zero field from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.Attempts < 1 {
		o.Attempts = d.Attempts
	}
	if o.UnregisterTimeout <= 0 {
		o.UnregisterTimeout = d.UnregisterTimeout
	}
	if o.RepeatInterval <= 0 {
		o.RepeatInterval = d.RepeatInterval
	}
	if o.Repeats < 1 {
		o.Repeats = d.Repeats
	}
	if o.Port == 0 {
		o.Port = d.Port
	}
	if o.Source == 0 {
		o.Source = NewSource()
	}
	if o.Dial == nil {
		o.Dial = UDPDialer
	}
	return o
}

// NewSource returns a random non-zero source identifier. Bulbs broadcast
// their replies to source 0, so it is never chosen.
func NewSource() uint32 {
	for {
		if s := rand.Uint32(); s != 0 {
			return s
		}
	}
}
