package registry

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/muurk/lifxlan/internal/device"
	"github.com/muurk/lifxlan/internal/logging"
	"github.com/muurk/lifxlan/internal/products"
	"go.uber.org/zap"
)

// Capability narrows GetList to entities with a feature.
type Capability int

const (
	// CapAny matches every entity
	CapAny Capability = iota
	// CapLight matches lights
	CapLight
	// CapColor matches lights whose product supports colour
	CapColor
	// CapInfrared matches lights with an infrared channel
	CapInfrared
	// CapMultiZone matches strips and beams
	CapMultiZone
)

// String returns a human-readable name for the capability
func (c Capability) String() string {
	switch c {
	case CapAny:
		return "any"
	case CapLight:
		return "light"
	case CapColor:
		return "color"
	case CapInfrared:
		return "infrared"
	case CapMultiZone:
		return "multizone"
	default:
		return "unknown"
	}
}

// root owns the authoritative entity list shared by every view.
type root struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	entities []device.Entity

	// inflight tracks background registrations
	inflight sync.WaitGroup

	subMu sync.Mutex
	subs  map[uuid.UUID]chan Event
}

// Registry is either the root collection or a filtered view of it. Views
// hold no entities of their own; every read resolves through the root.
type Registry struct {
	root *root

	groups []string
	labels []string
	macs   []string
}

// New returns an empty root registry.
func New() *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{root: &root{
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[uuid.UUID]chan Event),
	}}
}

// Clone returns a view with the same filters.
func (r *Registry) Clone() *Registry {
	return &Registry{
		root:   r.root,
		groups: slices.Clone(r.groups),
		labels: slices.Clone(r.labels),
		macs:   slices.Clone(r.macs),
	}
}

// ByGroup returns a view additionally matching any of groups.
func (r *Registry) ByGroup(groups ...string) *Registry {
	v := r.Clone()
	v.groups = append(v.groups, groups...)
	return v
}

// ByLabel returns a view additionally matching any of labels.
func (r *Registry) ByLabel(labels ...string) *Registry {
	v := r.Clone()
	v.labels = append(v.labels, labels...)
	return v
}

// ByMAC returns a view additionally matching any of macs.
func (r *Registry) ByMAC(macs ...string) *Registry {
	v := r.Clone()
	for _, m := range macs {
		v.macs = append(v.macs, strings.ToLower(m))
	}
	return v
}

// ByLists applies all three filter categories at once. Empty lists add
// nothing.
func (r *Registry) ByLists(groups, labels, macs []string) *Registry {
	return r.ByGroup(groups...).ByLabel(labels...).ByMAC(macs...)
}

// IsFiltered reports whether the view has any filter.
func (r *Registry) IsFiltered() bool {
	return len(r.groups) > 0 || len(r.labels) > 0 || len(r.macs) > 0
}

// Matches applies OR within a category and AND across categories.
func (r *Registry) Matches(e device.Entity) bool {
	d := e.Base()
	if len(r.groups) > 0 && !slices.Contains(r.groups, d.CachedGroup()) {
		return false
	}
	if len(r.labels) > 0 && !slices.Contains(r.labels, d.CachedLabel()) {
		return false
	}
	if len(r.macs) > 0 && !slices.Contains(r.macs, d.MAC()) {
		return false
	}
	return true
}

func hasCapability(e device.Entity, c Capability) bool {
	if c == CapAny {
		return true
	}
	if _, ok := e.(*device.Light); !ok {
		return false
	}
	if c == CapLight {
		return true
	}

	v, ok := e.Base().CachedVersion()
	if !ok {
		return false
	}
	p, ok := products.Lookup(v.Vendor, v.Product)
	if !ok {
		return false
	}
	switch c {
	case CapColor:
		return p.Color
	case CapInfrared:
		return p.Infrared
	case CapMultiZone:
		return p.MultiZone
	}
	return false
}

// GetList returns the registered entities matching the view's filters and c.
func (r *Registry) GetList(c Capability) []device.Entity {
	r.root.mu.RLock()
	defer r.root.mu.RUnlock()

	var out []device.Entity
	for _, e := range r.root.entities {
		if r.Matches(e) && hasCapability(e, c) {
			out = append(out, e)
		}
	}
	return out
}

// Devices returns the base device of every matching entity.
func (r *Registry) Devices() []*device.Device {
	var out []*device.Device
	for _, e := range r.GetList(CapAny) {
		out = append(out, e.Base())
	}
	return out
}

// Lights returns every matching light.
func (r *Registry) Lights() []*device.Light {
	var out []*device.Light
	for _, e := range r.GetList(CapLight) {
		out = append(out, e.(*device.Light))
	}
	return out
}

// Get returns the registered entity with mac, ignoring the view's filters.
func (r *Registry) Get(mac string) (device.Entity, bool) {
	mac = strings.ToLower(mac)
	r.root.mu.RLock()
	defer r.root.mu.RUnlock()
	for _, e := range r.root.entities {
		if e.Base().MAC() == mac {
			return e, true
		}
	}
	return nil, false
}

// Len returns the number of matching entities.
func (r *Registry) Len() int {
	return len(r.GetList(CapAny))
}

// Register implements device.Registrar. Metadata is fetched in the
// background; the entity joins the root list only once that succeeds.
func (r *Registry) Register(e device.Entity) {
	r.root.inflight.Add(1)
	go func() {
		defer r.root.inflight.Done()
		if err := r.RegisterSync(r.root.ctx, e); err != nil {
			logging.Error("Failed to register device",
				zap.String("mac", e.Base().MAC()),
				zap.Bool("offline", device.IsOffline(err)),
				zap.Error(err),
			)
		}
	}()
}

// RegisterSync fetches metadata and adds e to the root list, replacing any
// earlier entity with the same MAC.
func (r *Registry) RegisterSync(ctx context.Context, e device.Entity) error {
	if err := e.Base().FetchMetadata(ctx); err != nil {
		return err
	}

	mac := e.Base().MAC()
	r.root.mu.Lock()
	i := slices.IndexFunc(r.root.entities, func(x device.Entity) bool { return x.Base().MAC() == mac })
	if i >= 0 {
		r.root.entities[i] = e
	} else {
		r.root.entities = append(r.root.entities, e)
	}
	r.root.mu.Unlock()

	logging.Info("Device registered",
		zap.String("mac", mac),
		zap.String("label", e.Base().CachedLabel()),
		zap.String("addr", e.Base().Addr().String()),
	)
	r.Publish(EventRegistered, e)
	return nil
}

// Unregister implements device.Registrar.
func (r *Registry) Unregister(e device.Entity) {
	mac := e.Base().MAC()

	r.root.mu.Lock()
	before := len(r.root.entities)
	r.root.entities = slices.DeleteFunc(r.root.entities, func(x device.Entity) bool { return x.Base().MAC() == mac })
	removed := len(r.root.entities) != before
	r.root.mu.Unlock()

	if removed {
		logging.Info("Device unregistered", zap.String("mac", mac))
		r.Publish(EventUnregistered, e)
	}
}

// Wait blocks until background registrations started so far have finished.
func (r *Registry) Wait() {
	r.root.inflight.Wait()
}

// Close cancels background registrations and closes every subscription.
func (r *Registry) Close() {
	r.root.cancel()
	r.root.inflight.Wait()

	r.root.subMu.Lock()
	for id, ch := range r.root.subs {
		close(ch)
		delete(r.root.subs, id)
	}
	r.root.subMu.Unlock()
}

// String lists the matching entities as "label (mac)", comma separated.
func (r *Registry) String() string {
	list := r.GetList(CapAny)
	parts := make([]string, len(list))
	for i, e := range list {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
