package observability

import (
	"context"

	"grant-portal/internal/common/logger"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// LoggingSpanProcessor writes every finished span to the logger at debug
// level. It stands in for an exporter when no collector is configured.
type LoggingSpanProcessor struct {
	logger logger.Logger
}

func NewLoggingSpanProcessor(log logger.Logger) *LoggingSpanProcessor {
	return &LoggingSpanProcessor{logger: log}
}

func (p *LoggingSpanProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *LoggingSpanProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	fields := map[string]interface{}{
		"span":       s.Name(),
		"traceId":    s.SpanContext().TraceID().String(),
		"durationMs": s.EndTime().Sub(s.StartTime()).Milliseconds(),
		"status":     s.Status().Code.String(),
	}
	for _, kv := range s.Attributes() {
		fields[string(kv.Key)] = kv.Value.Emit()
	}
	if desc := s.Status().Description; desc != "" {
		fields["statusDescription"] = desc
	}
	p.logger.Debug("span finished", fields)
}

func (p *LoggingSpanProcessor) Shutdown(context.Context) error { return nil }

func (p *LoggingSpanProcessor) ForceFlush(context.Context) error { return nil }
