package gameserver

import (
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/warband/internal/game/resolution"
)

// Totals accumulates tick reports since startup.
type Totals struct {
	Ticks     int
	Resolved  int
	Discarded int
	Updated   int
}

// TickLogger is a resolution.TickObserver that logs every productive pass
// and keeps running totals.
type TickLogger struct {
	logger *zap.Logger

	mu     sync.Mutex
	totals Totals
}

// NewTickLogger returns a TickLogger writing to logger.
func NewTickLogger(logger *zap.Logger) *TickLogger {
	return &TickLogger{logger: logger}
}

// AfterTick records r.
func (o *TickLogger) AfterTick(r resolution.TickReport) {
	o.mu.Lock()
	o.totals.Ticks++
	o.totals.Resolved += r.Resolved
	o.totals.Discarded += r.Discarded
	o.totals.Updated += r.Updated
	o.mu.Unlock()

	o.logger.Info("tick",
		zap.Stringer("tick", r.ID),
		zap.Int("resolved", r.Resolved),
		zap.Int("discarded", r.Discarded),
		zap.Int("updated", r.Updated),
		zap.Int("characters", len(r.Characters)),
	)
}

// Totals returns a snapshot of the running totals.
func (o *TickLogger) Totals() Totals {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.totals
}
