// Package metrics collects counters and histograms about program invocations.
//
// The Metrics interface is implemented by backends; Collection fans a call
// out to several of them.
package metrics

import (
	"context"
	"log/slog"
	"sync"
)

// Metrics defines the interface for recording invocation metrics.
type Metrics interface {
	// Flush reports any buffered values.
	Flush(ctx context.Context) error

	// IncrementCounter increments a counter metric by the specified value.
	IncrementCounter(ctx context.Context, name string, value uint64) error

	// RecordHistogram records a value in a histogram metric.
	RecordHistogram(ctx context.Context, name string, value float64) error
}

// Metric names recorded by the runtime.
const (
	MetricInvocations        = "invocations"
	MetricInvocationsFailed  = "invocations_failed"
	MetricInvocationsAborted = "invocations_aborted"
	MetricAccountsModified   = "accounts_modified"
	MetricComputeUnits       = "compute_units"
	MetricHeapBytes          = "heap_bytes"
	MetricInvokeTimeMicros   = "invoke_time_microseconds"
)

// Collection delegates every call to a set of Metrics.
type Collection struct {
	metrics []Metrics
	mu      sync.RWMutex
}

// NewCollection creates a new Collection with the given metrics implementations.
func NewCollection(metrics ...Metrics) *Collection {
	return &Collection{metrics: metrics}
}

// Add adds a new Metrics implementation to the collection.
func (c *Collection) Add(m Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = append(c.metrics, m)
}

// Len returns the number of metrics implementations in the collection.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.metrics)
}

func (c *Collection) each(fn func(Metrics) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, m := range c.metrics {
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes all metrics in the collection.
func (c *Collection) Flush(ctx context.Context) error {
	return c.each(func(m Metrics) error { return m.Flush(ctx) })
}

// IncrementCounter increments a counter across all implementations.
func (c *Collection) IncrementCounter(ctx context.Context, name string, value uint64) error {
	return c.each(func(m Metrics) error { return m.IncrementCounter(ctx, name, value) })
}

// RecordHistogram records a histogram value across all implementations.
func (c *Collection) RecordHistogram(ctx context.Context, name string, value float64) error {
	return c.each(func(m Metrics) error { return m.RecordHistogram(ctx, name, value) })
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) Flush(context.Context) error                            { return nil }
func (NoopMetrics) IncrementCounter(context.Context, string, uint64) error { return nil }
func (NoopMetrics) RecordHistogram(context.Context, string, float64) error { return nil }

// Summary aggregates the values recorded for one histogram.
type Summary struct {
	Count uint64  `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Mean returns the average recorded value.
func (s Summary) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

func (s *Summary) observe(v float64) {
	if s.Count == 0 || v < s.Min {
		s.Min = v
	}
	if s.Count == 0 || v > s.Max {
		s.Max = v
	}
	s.Count++
	s.Sum += v
}

// LogMetrics keeps values in memory and logs them with slog on Flush.
type LogMetrics struct {
	logger     *slog.Logger
	mu         sync.RWMutex
	counters   map[string]uint64
	histograms map[string]*Summary
}

// NewLogMetrics creates a new LogMetrics with the given logger.
// If logger is nil, the default logger is used.
func NewLogMetrics(logger *slog.Logger) *LogMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMetrics{
		logger:     logger,
		counters:   make(map[string]uint64),
		histograms: make(map[string]*Summary),
	}
}

// Flush logs all current metric values.
func (l *LogMetrics) Flush(ctx context.Context) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	attrs := make([]any, 0, len(l.histograms)+1)
	attrs = append(attrs, slog.Any("counters", l.counters))
	for name, s := range l.histograms {
		attrs = append(attrs, slog.Group(name,
			slog.Uint64("count", s.Count),
			slog.Float64("mean", s.Mean()),
			slog.Float64("min", s.Min),
			slog.Float64("max", s.Max),
		))
	}
	l.logger.InfoContext(ctx, "metrics flush", attrs...)
	return nil
}

// IncrementCounter adds value to the named counter.
func (l *LogMetrics) IncrementCounter(ctx context.Context, name string, value uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counters[name] += value
	l.logger.DebugContext(ctx, "counter incremented", "name", name, "value", value, "total", l.counters[name])
	return nil
}

// RecordHistogram adds value to the named histogram.
func (l *LogMetrics) RecordHistogram(ctx context.Context, name string, value float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.histograms[name]
	if !ok {
		s = &Summary{}
		l.histograms[name] = s
	}
	s.observe(value)
	return nil
}

// Counter returns the current value of a counter.
func (l *LogMetrics) Counter(name string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.counters[name]
}

// Histogram returns the summary of a histogram.
func (l *LogMetrics) Histogram(name string) Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if s, ok := l.histograms[name]; ok {
		return *s
	}
	return Summary{}
}
