package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/muurk/lifxlan/internal/color"
	"github.com/muurk/lifxlan/internal/device"
	"github.com/muurk/lifxlan/internal/protocol"
)

// Command is the payload of a set topic. A bare "on" or "off" payload is
// accepted as a power-only command.
type Command struct {
	Power    string `json:"power,omitempty"` // "on" or "off"
	Color    string `json:"color,omitempty"` // anything color.Parse accepts
	Duration uint32 `json:"duration,omitempty"`
	Rapid    bool   `json:"rapid,omitempty"`

	hsbk *protocol.HSBK
}

// DecodeCommand parses and validates a set payload.
func DecodeCommand(payload []byte) (Command, error) {
	var cmd Command

	trimmed := strings.ToLower(string(bytes.TrimSpace(payload)))
	switch trimmed {
	case "on", "off":
		cmd.Power = trimmed
		return cmd, nil
	case "":
		return cmd, fmt.Errorf("%w: empty payload", ErrInvalidCommand)
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cmd); err != nil {
		return cmd, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	cmd.Power = strings.ToLower(cmd.Power)
	switch cmd.Power {
	case "", "on", "off":
	default:
		return cmd, fmt.Errorf("%w: power must be on or off, got %q", ErrInvalidCommand, cmd.Power)
	}

	if cmd.Color != "" {
		c, err := color.Parse(cmd.Color)
		if err != nil {
			return cmd, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
		v := c.Values()
		cmd.hsbk = &v
	}

	if cmd.Power == "" && cmd.hsbk == nil {
		return cmd, fmt.Errorf("%w: nothing to do", ErrInvalidCommand)
	}
	return cmd, nil
}

// Apply sends the command to l, colour first so a light switched on
// comes up in the new colour.
func (c Command) Apply(ctx context.Context, l *device.Light) error {
	if c.hsbk != nil {
		if err := l.SetColor(ctx, *c.hsbk, c.Duration, c.Rapid); err != nil {
			return err
		}
	}
	if c.Power != "" {
		if err := l.SetLightPower(ctx, c.Power == "on", c.Duration, c.Rapid); err != nil {
			return err
		}
	}
	return nil
}
