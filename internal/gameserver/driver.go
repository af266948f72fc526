// Package gameserver drives the action queue: it runs progress, refresh and
// flush passes on a fixed interval and hourly passes on a slower one.
package gameserver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/warband/internal/game/resolution"
)

// Queue is the part of resolution.Queue the driver calls.
type Queue interface {
	Progress(ctx context.Context) (resolution.TickReport, error)
	Refresh(ctx context.Context) (resolution.TickReport, error)
	RefreshHourly(ctx context.Context) (resolution.TickReport, error)
	Flush(ctx context.Context) error
}

// HourlyHook runs after each hourly refresh, e.g. to purge expired requests.
type HourlyHook func(ctx context.Context, now time.Time) error

// Driver runs the tick loop.
//
// Invariant: passes never overlap; Tick and Hourly serialise on one mutex.
type Driver struct {
	queue    Queue
	interval time.Duration
	hourly   time.Duration
	now      func() time.Time
	logger   *zap.Logger

	mu       sync.Mutex
	hooks    []HourlyHook
	lastTick time.Time
	failures int
}

// NewDriver returns a driver ticking every interval and running hourly
// passes every hourly.
//
// Precondition: interval > 0 and hourly >= interval.
func NewDriver(q Queue, interval, hourly time.Duration, now func() time.Time, logger *zap.Logger) *Driver {
	if interval <= 0 || hourly < interval {
		panic("gameserver.NewDriver: interval must be > 0 and hourly >= interval")
	}
	return &Driver{queue: q, interval: interval, hourly: hourly, now: now, logger: logger}
}

// OnHourly registers a hook run after each hourly refresh.
func (d *Driver) OnHourly(h HourlyHook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hooks = append(d.hooks, h)
}

// Tick runs one progress, refresh and flush pass.
//
// Postcondition: LastTick is updated when every step succeeded.
func (d *Driver) Tick(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	start := d.now()
	progressed, err := d.queue.Progress(ctx)
	if err != nil {
		return d.failed("progress", err)
	}
	refreshed, err := d.queue.Refresh(ctx)
	if err != nil {
		return d.failed("refresh", err)
	}
	if err := d.queue.Flush(ctx); err != nil {
		return d.failed("flush", err)
	}
	d.lastTick = start
	d.failures = 0
	if !progressed.Empty() || !refreshed.Empty() {
		d.logger.Debug("tick",
			zap.Int("resolved", progressed.Resolved),
			zap.Int("discarded", progressed.Discarded),
			zap.Int("updated", refreshed.Updated),
			zap.Duration("elapsed", d.now().Sub(start)),
		)
	}
	return nil
}

// Hourly runs the hourly refresh, the registered hooks and a flush.
func (d *Driver) Hourly(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.queue.RefreshHourly(ctx); err != nil {
		return d.failed("hourly refresh", err)
	}
	now := d.now()
	var errs []error
	for _, h := range d.hooks {
		if err := h(ctx, now); err != nil {
			errs = append(errs, err)
		}
	}
	if err := d.queue.Flush(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return d.failed("hourly", err)
	}
	return nil
}

func (d *Driver) failed(step string, err error) error {
	d.failures++
	d.logger.Warn("tick step failed",
		zap.String("step", step),
		zap.Int("consecutive_failures", d.failures),
		zap.Error(err),
	)
	return fmt.Errorf("%s: %w", step, err)
}

// LastTick returns when the last fully successful tick started.
func (d *Driver) LastTick() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastTick
}

// Healthy reports whether a tick succeeded within three intervals of now.
func (d *Driver) Healthy(now time.Time) bool {
	last := d.LastTick()
	return !last.IsZero() && now.Sub(last) <= 3*d.interval
}

// Start runs the loop until ctx is cancelled. Failed passes are logged and
// retried on the next interval.
func (d *Driver) Start(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	hourly := time.NewTicker(d.hourly)
	defer hourly.Stop()

	_ = d.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = d.Tick(ctx)
		case <-hourly.C:
			_ = d.Hourly(ctx)
		}
	}
}

// Stop flushes outstanding changes.
func (d *Driver) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.queue.Flush(ctx); err != nil {
		return fmt.Errorf("final flush: %w", err)
	}
	return nil
}
