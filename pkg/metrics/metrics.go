// Package metrics contains a sink interface for the timings and counts of
// dump and load runs. NoopSink and LogSink are provided.
package metrics

import (
	"context"
	"log/slog"
	"time"
)

// Metric types.
const (
	UNKNOWN byte = iota
	COUNTER
	GAUGE
)

const (
	SinkTimeout = 1 * time.Second

	DumpDataTimeMetricName       = "dump_data_time"
	DumpSchemaTimeMetricName     = "dump_schema_time"
	DumpExcludedTablesMetricName = "dump_num_excluded_tables"
	DumpSchemaTablesMetricName   = "dump_num_schema_only_tables"
	LoadTimeMetricName           = "load_time"
)

// Metrics are collection of MetricValues.
type Metrics struct {
	Values []MetricValue
}

type MetricValue struct {
	Name  string
	Value float64
	// Type is GAUGE or COUNTER.
	Type byte
}

// Duration is a GAUGE in milliseconds.
func Duration(name string, d time.Duration) MetricValue {
	return MetricValue{Name: name, Type: GAUGE, Value: float64(d.Milliseconds())}
}

// Count is a COUNTER.
func Count(name string, n int) MetricValue {
	return MetricValue{Name: name, Type: COUNTER, Value: float64(n)}
}

// Sink sends metrics to an external destination.
type Sink interface {
	// Send sends metrics to the sink. It must respect the context timeout, if any.
	Send(ctx context.Context, metrics *Metrics) error
}

// Send sends values to sink with SinkTimeout applied.
func Send(ctx context.Context, sink Sink, values ...MetricValue) error {
	ctx, cancel := context.WithTimeout(ctx, SinkTimeout)
	defer cancel()
	return sink.Send(ctx, &Metrics{Values: values})
}

// NoopSink is the default sink which does nothing
type NoopSink struct{}

func (s *NoopSink) Send(ctx context.Context, m *Metrics) error {
	return nil
}

var _ Sink = &NoopSink{}

// logSink logs metrics
type logSink struct {
	logger *slog.Logger
}

func (l *logSink) Send(ctx context.Context, m *Metrics) error {
	for _, v := range m.Values {
		switch v.Type {
		case COUNTER:
			l.logger.DebugContext(ctx, "metric", "name", v.Name, "type", "counter", "value", v.Value)
		case GAUGE:
			l.logger.DebugContext(ctx, "metric", "name", v.Name, "type", "gauge", "value", v.Value)
		default:
			l.logger.ErrorContext(ctx, "Received invalid metric type", "type", v.Type, "name", v.Name, "value", v.Value)
		}
	}
	return nil
}

var _ Sink = &logSink{}

func NewLogSink(logger *slog.Logger) Sink {
	return &logSink{
		logger: logger,
	}
}
