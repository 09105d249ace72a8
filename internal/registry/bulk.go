package registry

import (
	"context"

	"github.com/muurk/lifxlan/internal/device"
	"github.com/muurk/lifxlan/internal/logging"
	"github.com/muurk/lifxlan/internal/protocol"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DoForEvery runs fn concurrently on every entity matching the view and c.
// A device going offline during fn is logged and skipped; any other error
// fails the aggregate once all calls have returned.
func (r *Registry) DoForEvery(ctx context.Context, c Capability, fn func(context.Context, device.Entity) error) error {
	var g errgroup.Group
	for _, e := range r.GetList(c) {
		e := e
		g.Go(func() error {
			err := fn(ctx, e)
			switch {
			case err == nil:
				return nil
			case device.IsOffline(err):
				logging.Info("Device offline during bulk operation",
					zap.String("device", e.String()),
					zap.Error(err),
				)
				return nil
			default:
				logging.Error("Bulk operation failed",
					zap.String("device", e.String()),
					zap.Error(err),
				)
				return err
			}
		})
	}
	return g.Wait()
}

// forEveryLight is DoForEvery restricted to lights, handing fn the *Light.
func (r *Registry) forEveryLight(ctx context.Context, c Capability, fn func(context.Context, *device.Light) error) error {
	return r.DoForEvery(ctx, c, func(ctx context.Context, e device.Entity) error {
		return fn(ctx, e.(*device.Light))
	})
}

// FetchMetadata refreshes the static attributes of every matching device.
func (r *Registry) FetchMetadata(ctx context.Context) error {
	return r.DoForEvery(ctx, CapAny, func(ctx context.Context, e device.Entity) error {
		return e.Base().FetchMetadata(ctx)
	})
}

// SetPower switches every matching device.
func (r *Registry) SetPower(ctx context.Context, on, rapid bool) error {
	return r.DoForEvery(ctx, CapAny, func(ctx context.Context, e device.Entity) error {
		if err := e.Base().SetPower(ctx, on, rapid); err != nil {
			return err
		}
		r.Publish(EventChanged, e)
		return nil
	})
}

// SetLightPower switches every matching light with a transition.
func (r *Registry) SetLightPower(ctx context.Context, on bool, duration uint32, rapid bool) error {
	return r.forEveryLight(ctx, CapLight, func(ctx context.Context, l *device.Light) error {
		if err := l.SetLightPower(ctx, on, duration, rapid); err != nil {
			return err
		}
		r.Publish(EventChanged, l)
		return nil
	})
}

// SetColor sets every matching light to c.
func (r *Registry) SetColor(ctx context.Context, c protocol.HSBK, duration uint32, rapid bool) error {
	return r.forEveryLight(ctx, CapLight, func(ctx context.Context, l *device.Light) error {
		if err := l.SetColor(ctx, c, duration, rapid); err != nil {
			return err
		}
		r.Publish(EventChanged, l)
		return nil
	})
}

// SetWaveform starts the same waveform on every matching light.
func (r *Registry) SetWaveform(ctx context.Context, p device.WaveformParams, rapid bool) error {
	return r.forEveryLight(ctx, CapLight, func(ctx context.Context, l *device.Light) error {
		return l.SetWaveform(ctx, p, rapid)
	})
}

// SetInfrared sets the infrared level on every matching light that has one.
func (r *Registry) SetInfrared(ctx context.Context, percent int, rapid bool) error {
	return r.forEveryLight(ctx, CapInfrared, func(ctx context.Context, l *device.Light) error {
		if err := l.SetInfrared(ctx, percent, rapid); err != nil {
			return err
		}
		r.Publish(EventChanged, l)
		return nil
	})
}

// Refresh reads power and colour from every matching light and publishes a
// change event for each.
func (r *Registry) Refresh(ctx context.Context) error {
	return r.forEveryLight(ctx, CapLight, func(ctx context.Context, l *device.Light) error {
		if _, err := l.Color(ctx); err != nil {
			return err
		}
		r.Publish(EventChanged, l)
		return nil
	})
}
