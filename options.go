package nxgraph

import (
	"log/slog"

	"github.com/hupe1980/nxgraph/filter"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	messages         filter.MessageHandler
	config           *Config
}

// Option configures a Pipeline.
type Option func(*options)

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithLogLevel logs text to stderr at the given level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &nxgraph.BasicMetricsCollector{}
//	p, _ := nxgraph.NewPipeline(nxgraph.WithMetricsCollector(metrics))
//	// ... run the pipeline ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithMessageHandler receives the messages of every executing filter.
// Progress messages are throttled to the configured progress interval.
func WithMessageHandler(h filter.MessageHandler) Option {
	return func(o *options) {
		o.messages = h
	}
}

// WithConfig applies a runtime configuration. A logger set with WithLogger
// or WithLogLevel takes precedence over the configured one when it comes
// later in the option list.
func WithConfig(cfg *Config) Option {
	return func(o *options) {
		o.config = cfg
		if cfg != nil {
			if l, err := cfg.NewLogger(); err == nil {
				o.logger = l
			}
		}
	}
}

// WithResourceLimits overrides the resource section of the configuration.
func WithResourceLimits(limits ResourceConfig) Option {
	return func(o *options) {
		if o.config == nil {
			o.config = DefaultConfig()
		} else {
			cfg := *o.config
			o.config = &cfg
		}
		o.config.Resources = limits
	}
}
