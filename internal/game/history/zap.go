package history

import "go.uber.org/zap"

// ZapSink decorates a Sink with a debug-level structured log line per event.
type ZapSink struct {
	next   Sink
	logger *zap.Logger
}

// NewZapSink wraps next. A nil next only logs.
//
// Precondition: logger must be non-nil.
func NewZapSink(next Sink, logger *zap.Logger) *ZapSink {
	return &ZapSink{next: next, logger: logger}
}

// LogEvent logs the event and forwards it.
func (l *ZapSink) LogEvent(subject Subject, key string, params Params, severity Severity, notify bool, expiryHours int) {
	l.logger.Debug("history event",
		zap.Stringer("subject", subject),
		zap.String("key", key),
		zap.Any("params", params),
		zap.Stringer("severity", severity),
		zap.Bool("notify", notify),
		zap.Int("expiry_hours", expiryHours),
	)
	if l.next != nil {
		l.next.LogEvent(subject, key, params, severity, notify, expiryHours)
	}
}

// Fanout forwards every event to each sink in order.
type Fanout []Sink

// LogEvent forwards to every sink.
func (f Fanout) LogEvent(subject Subject, key string, params Params, severity Severity, notify bool, expiryHours int) {
	for _, s := range f {
		s.LogEvent(subject, key, params, severity, notify, expiryHours)
	}
}
