package nxgraph

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    executeHistogram *prometheus.HistogramVec
//	}
//
//	func (p *PrometheusCollector) RecordExecute(filter string, d time.Duration, err error) {
//	    p.executeHistogram.WithLabelValues(filter).Observe(d.Seconds())
//	}
type MetricsCollector interface {
	// RecordPreflight is called after each step's preflight.
	RecordPreflight(filter string, duration time.Duration, err error)

	// RecordExecute is called after each step's execution.
	RecordExecute(filter string, duration time.Duration, err error)

	// RecordSave is called after each container write. bytes is the
	// container size, 0 on failure.
	RecordSave(bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordPreflight(string, time.Duration, error) {}
func (NoopMetricsCollector) RecordExecute(string, time.Duration, error)   {}
func (NoopMetricsCollector) RecordSave(int64, time.Duration, error)       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	PreflightCount   atomic.Int64
	PreflightErrors  atomic.Int64
	ExecuteCount     atomic.Int64
	ExecuteErrors    atomic.Int64
	ExecuteTotalNano atomic.Int64
	SaveCount        atomic.Int64
	SaveErrors       atomic.Int64
	SaveBytes        atomic.Int64
	SaveTotalNanos   atomic.Int64
}

// RecordPreflight implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPreflight(_ string, _ time.Duration, err error) {
	b.PreflightCount.Add(1)
	if err != nil {
		b.PreflightErrors.Add(1)
	}
}

// RecordExecute implements MetricsCollector.
func (b *BasicMetricsCollector) RecordExecute(_ string, duration time.Duration, err error) {
	b.ExecuteCount.Add(1)
	b.ExecuteTotalNano.Add(duration.Nanoseconds())
	if err != nil {
		b.ExecuteErrors.Add(1)
	}
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(bytes int64, duration time.Duration, err error) {
	b.SaveCount.Add(1)
	b.SaveTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SaveErrors.Add(1)
		return
	}
	b.SaveBytes.Add(bytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		PreflightCount:  b.PreflightCount.Load(),
		PreflightErrors: b.PreflightErrors.Load(),
		ExecuteCount:    b.ExecuteCount.Load(),
		ExecuteErrors:   b.ExecuteErrors.Load(),
		ExecuteAvgNanos: avg(b.ExecuteTotalNano.Load(), b.ExecuteCount.Load()),
		SaveCount:       b.SaveCount.Load(),
		SaveErrors:      b.SaveErrors.Load(),
		SaveBytes:       b.SaveBytes.Load(),
		SaveAvgNanos:    avg(b.SaveTotalNanos.Load(), b.SaveCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	PreflightCount  int64
	PreflightErrors int64
	ExecuteCount    int64
	ExecuteErrors   int64
	ExecuteAvgNanos int64
	SaveCount       int64
	SaveErrors      int64
	SaveBytes       int64
	SaveAvgNanos    int64
}
