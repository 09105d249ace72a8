package registry

import (
	"time"

	"github.com/google/uuid"
	"github.com/muurk/lifxlan/internal/device"
	"github.com/muurk/lifxlan/internal/logging"
	"go.uber.org/zap"
)

// EventKind identifies what happened to a device.
type EventKind string

const (
	EventRegistered   EventKind = "registered"
	EventUnregistered EventKind = "unregistered"
	EventChanged      EventKind = "changed"
)

// subscriberBuffer is the per-subscriber queue depth. Events beyond it are
// dropped for that subscriber.
const subscriberBuffer = 32

// Event is delivered to subscribers when the registry or a device changes.
type Event struct {
	Kind   EventKind       `json:"kind"`
	MAC    string          `json:"mac"`
	Device device.Snapshot `json:"device"`
	At     time.Time       `json:"at"`
}

// Subscribe returns a channel receiving every subsequent event and an id for
// Unsubscribe. Slow subscribers lose events rather than stall the registry.
func (r *Registry) Subscribe() (uuid.UUID, <-chan Event) {
	id := uuid.New()
	ch := make(chan Event, subscriberBuffer)

	r.root.subMu.Lock()
	r.root.subs[id] = ch
	r.root.subMu.Unlock()

	logging.Debug("Registry subscriber added", zap.String("id", id.String()))
	return id, ch
}

// Unsubscribe closes the channel returned by Subscribe.
func (r *Registry) Unsubscribe(id uuid.UUID) {
	r.root.subMu.Lock()
	defer r.root.subMu.Unlock()

	if ch, ok := r.root.subs[id]; ok {
		close(ch)
		delete(r.root.subs, id)
		logging.Debug("Registry subscriber removed", zap.String("id", id.String()))
	}
}

// Publish sends an event about e to every subscriber.
func (r *Registry) Publish(kind EventKind, e device.Entity) {
	ev := Event{
		Kind:   kind,
		MAC:    e.Base().MAC(),
		Device: e.Snapshot(),
		At:     time.Now(),
	}

	r.root.subMu.Lock()
	defer r.root.subMu.Unlock()

	for id, ch := range r.root.subs {
		select {
		case ch <- ev:
		default:
			logging.Warn("Dropping registry event for slow subscriber",
				zap.String("id", id.String()),
				zap.String("kind", string(kind)),
			)
		}
	}
}
