package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/muurk/lifxlan/internal/device"
	"github.com/muurk/lifxlan/internal/logging"
	"github.com/muurk/lifxlan/internal/registry"
	"go.uber.org/zap"
)

// Bridge mirrors a registry onto MQTT: retained state per device and a
// set topic per light.
type Bridge struct {
	conn   Conn
	reg    *registry.Registry
	topics Topics
	qos    byte
}

// NewBridge creates a bridge publishing under prefix.
func NewBridge(conn Conn, reg *registry.Registry, prefix string, qos byte) *Bridge {
	return &Bridge{
		conn:   conn,
		reg:    reg,
		topics: Topics{Prefix: prefix},
		qos:    qos,
	}
}

// Topics returns the topic builder in use.
func (b *Bridge) Topics() Topics {
	return b.topics
}

// Run publishes the current state of every device, then follows registry
// events and set commands until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	id, events := b.reg.Subscribe()
	defer b.reg.Unsubscribe(id)

	err := b.conn.Subscribe(b.topics.SetWildcard(), b.qos, func(topic string, payload []byte) error {
		return b.handleSet(ctx, topic, payload)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.topics.SetWildcard(), err)
	}

	for _, e := range b.reg.GetList(registry.CapAny) {
		b.publishState(e.Snapshot())
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			b.handleEvent(ev)
		}
	}
}

func (b *Bridge) handleEvent(ev registry.Event) {
	if ev.Kind == registry.EventUnregistered {
		// An empty retained message clears the topic
		if err := b.conn.Publish(b.topics.State(ev.MAC), nil, b.qos, true); err != nil {
			logging.Warn("Failed to clear MQTT state", zap.String("mac", ev.MAC), zap.Error(err))
		}
		return
	}
	b.publishState(ev.Device)
}

func (b *Bridge) publishState(s device.Snapshot) {
	data, err := json.Marshal(s)
	if err != nil {
		logging.Error("Failed to marshal state", zap.String("mac", s.MAC), zap.Error(err))
		return
	}
	if err := b.conn.Publish(b.topics.State(s.MAC), data, b.qos, true); err != nil {
		logging.Warn("Failed to publish MQTT state", zap.String("mac", s.MAC), zap.Error(err))
		return
	}
	logging.Debug("Published MQTT state", zap.String("mac", s.MAC), zap.Int("length", len(data)))
}

// handleSet applies one command and publishes the resulting state.
func (b *Bridge) handleSet(ctx context.Context, topic string, payload []byte) error {
	mac, ok := b.topics.ParseSetTopic(topic)
	if !ok {
		return fmt.Errorf("%w: unexpected topic %q", ErrInvalidCommand, topic)
	}
	e, ok := b.reg.Get(mac)
	if !ok {
		return fmt.Errorf("%w: unknown device %s", ErrInvalidCommand, mac)
	}
	l, ok := e.(*device.Light)
	if !ok {
		return fmt.Errorf("%w: %s is not a light", ErrInvalidCommand, mac)
	}

	cmd, err := DecodeCommand(payload)
	if err != nil {
		return err
	}

	logging.Info("MQTT command",
		zap.String("mac", mac),
		zap.String("power", cmd.Power),
		zap.String("color", cmd.Color),
		zap.Uint32("duration", cmd.Duration),
	)
	if err := cmd.Apply(ctx, l); err != nil {
		if device.IsOffline(err) {
			logging.Info("Device offline", zap.String("mac", mac))
		}
		return err
	}

	b.reg.Publish(registry.EventChanged, e)
	return nil
}
