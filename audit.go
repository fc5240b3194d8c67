package accountauth

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/MrEthical07/accountauth/internal/audit"
	"github.com/MrEthical07/accountauth/internal/mask"
)

// AuditEvent is a single audit record. Emails are masked before emission.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's background dispatcher.
type AuditSink = audit.Sink

type NoOpSink = audit.NoOpSink
type ChannelSink = audit.ChannelSink
type JSONWriterSink = audit.JSONWriterSink
type ZapSink = audit.ZapSink

func NewChannelSink(buffer int) *ChannelSink { return audit.NewChannelSink(buffer) }

func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return audit.NewJSONWriterSink(w) }

func NewZapSink(log *zap.Logger) *ZapSink { return audit.NewZapSink(log) }

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e == nil || e.audit == nil {
		return
	}
	if event.Email != "" {
		event.Email = mask.Email(event.Email)
	}
	if event.IP == "" {
		event.IP = mask.IP(clientIPFromContext(ctx))
	}
	e.audit.Emit(ctx, event)
}

// AuditDropped returns how many audit events were dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns the current counter values.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return NewMetrics(MetricsConfig{}).Snapshot()
	}
	return e.metrics.Snapshot()
}
