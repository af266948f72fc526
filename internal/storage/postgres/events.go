package postgres

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/cory-johannsen/warband/internal/game/clock"
	"github.com/cory-johannsen/warband/internal/game/history"
)

// Event writer tuning.
const (
	DefaultEventBuffer = 1024
	eventBatchSize     = 128
	eventFlushInterval = time.Second
	eventDrainTimeout  = 5 * time.Second
)

var eventColumns = []string{
	"subject_kind", "subject_id", "key", "params", "severity", "notify", "cycle", "created_at", "expires_at",
}

// EventRepository is a history.Sink that writes events to the events table
// from a background goroutine. LogEvent never blocks the resolution writer;
// events that do not fit in the buffer are dropped with a warning.
type EventRepository struct {
	pool   *Pool
	clock  clock.Clock
	cycle  func() int
	logger *zap.Logger
	events chan history.Event

	running atomic.Bool
	done    chan struct{}
}

// NewEventRepository returns a repository buffering up to buffer events.
// cycle supplies the game cycle stamped on each event and may be nil.
//
// Precondition: pool, clk and logger must be non-nil; buffer > 0.
func NewEventRepository(pool *Pool, clk clock.Clock, cycle func() int, logger *zap.Logger, buffer int) *EventRepository {
	if cycle == nil {
		cycle = func() int { return 0 }
	}
	return &EventRepository{
		pool:   pool,
		clock:  clk,
		cycle:  cycle,
		logger: logger,
		events: make(chan history.Event, buffer),
		done:   make(chan struct{}),
	}
}

// LogEvent queues an event for writing.
func (r *EventRepository) LogEvent(subject history.Subject, key string, params history.Params, severity history.Severity, notify bool, expiryHours int) {
	now := r.clock.Now()
	ev := history.Event{
		Subject:  subject,
		Key:      key,
		Params:   params,
		Severity: severity,
		Notify:   notify,
		Cycle:    r.cycle(),
		At:       now,
	}
	if expiryHours > 0 {
		ev.Expires = clock.At(now, time.Duration(expiryHours)*time.Hour)
	}
	select {
	case r.events <- ev:
	default:
		r.logger.Warn("event buffer full, dropping event",
			zap.Stringer("subject", subject),
			zap.String("key", key),
		)
	}
}

// Start writes queued events until ctx is cancelled, then drains the buffer.
//
// Precondition: Start is called at most once.
func (r *EventRepository) Start(ctx context.Context) error {
	r.running.Store(true)
	defer close(r.done)
	ticker := time.NewTicker(eventFlushInterval)
	defer ticker.Stop()
	batch := make([]history.Event, 0, eventBatchSize)
	for {
		select {
		case ev := <-r.events:
			batch = append(batch, ev)
			if len(batch) < eventBatchSize {
				continue
			}
		case <-ticker.C:
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), eventDrainTimeout)
			defer cancel()
			if err := r.drain(drainCtx, batch); err != nil {
				r.logger.Error("event drain failed", zap.Error(err))
				return err
			}
			return nil
		}
		batch = r.write(ctx, batch)
	}
}

// Stop waits for a running Start to finish draining. Start drains once its
// context ends, so Stop must follow that cancellation.
func (r *EventRepository) Stop(ctx context.Context) error {
	if !r.running.Load() {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for event drain: %w", ctx.Err())
	}
}

func (r *EventRepository) drain(ctx context.Context, batch []history.Event) error {
	for {
		select {
		case ev := <-r.events:
			batch = append(batch, ev)
		default:
			if len(batch) == 0 {
				return nil
			}
			if err := r.Insert(ctx, batch); err != nil {
				return fmt.Errorf("draining %d events: %w", len(batch), err)
			}
			return nil
		}
	}
}

// write inserts batch and returns an emptied slice. Failed batches are
// logged and dropped. The insert outlives cancellation of ctx so a batch
// picked up during shutdown is not lost.
func (r *EventRepository) write(ctx context.Context, batch []history.Event) []history.Event {
	if len(batch) == 0 {
		return batch
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventDrainTimeout)
	defer cancel()
	if err := r.Insert(writeCtx, batch); err != nil {
		r.logger.Warn("writing events failed", zap.Int("count", len(batch)), zap.Error(err))
	}
	return batch[:0]
}

// Insert copies events into the events table.
func (r *EventRepository) Insert(ctx context.Context, events []history.Event) error {
	rows := make([][]any, len(events))
	for i, ev := range events {
		params := map[string]any(ev.Params)
		if params == nil {
			params = map[string]any{}
		}
		rows[i] = []any{
			string(ev.Subject.Kind), ev.Subject.ID, ev.Key, params, int16(ev.Severity),
			ev.Notify, int32(ev.Cycle), ev.At, ev.Expires,
		}
	}
	n, err := r.pool.DB().CopyFrom(ctx, pgx.Identifier{"events"}, eventColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copying events: %w", err)
	}
	r.logger.Debug("events written", zap.Int64("count", n))
	return nil
}

// Events returns the stored events of subject, oldest first.
func (r *EventRepository) Events(ctx context.Context, subject history.Subject) ([]history.Event, error) {
	rows, err := r.pool.DB().Query(ctx,
		`SELECT key, params, severity, notify, cycle, created_at, expires_at
		 FROM events WHERE subject_kind = $1 AND subject_id = $2 ORDER BY id`,
		string(subject.Kind), subject.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying events for %s: %w", subject, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (history.Event, error) {
		ev := history.Event{Subject: subject}
		var (
			params   map[string]any
			severity int16
			cycle    int32
		)
		if err := row.Scan(&ev.Key, &params, &severity, &ev.Notify, &cycle, &ev.At, &ev.Expires); err != nil {
			return ev, err
		}
		ev.Params = params
		ev.Severity = history.Severity(severity)
		ev.Cycle = int(cycle)
		ev.At = ev.At.UTC()
		return ev, nil
	})
}
