package nxgraph

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/nxgraph/dataio"
	"github.com/hupe1980/nxgraph/internal/resource"
)

// ConfigEnv names the environment variable LoadConfig falls back to.
const ConfigEnv = "NXGRAPH_CONFIG"

// Config is the runtime configuration. It is usually read from a YAML
// file:
//
//	log:
//	  level: debug
//	  format: json
//	resources:
//	  memory_limit_bytes: 8589934592
//	  max_workers: 8
//	  io_limit_bytes_per_sec: 0
//	progress:
//	  interval: 2s
//	storage:
//	  compression: zstd
//	  auto_chunk_bytes: 67108864
//
// Zero values mean defaults.
type Config struct {
	Log       LogConfig      `yaml:"log"`
	Resources ResourceConfig `yaml:"resources"`
	Progress  ProgressConfig `yaml:"progress"`
	Storage   StorageConfig  `yaml:"storage"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// ResourceConfig bounds memory, parallelism and write throughput.
type ResourceConfig struct {
	MemoryLimitBytes   int64 `yaml:"memory_limit_bytes"`
	MaxWorkers         int64 `yaml:"max_workers"`
	IOLimitBytesPerSec int64 `yaml:"io_limit_bytes_per_sec"`
}

// ProgressConfig throttles progress messages forwarded to the message
// handler.
type ProgressConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// StorageConfig sets the container write defaults of Pipeline.Save.
type StorageConfig struct {
	// Compression is none, lz4 or zstd.
	Compression    string `yaml:"compression"`
	AutoChunkBytes int64  `yaml:"auto_chunk_bytes"`
	Workers        int    `yaml:"workers"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() *Config {
	return &Config{
		Log:      LogConfig{Level: "info", Format: "text"},
		Progress: ProgressConfig{Interval: time.Second},
		Storage:  StorageConfig{Compression: "none"},
	}
}

// LoadConfig reads the YAML file at path on top of DefaultConfig. An
// empty path falls back to $NXGRAPH_CONFIG; if that is unset too the
// defaults are returned.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(ConfigEnv)
	}
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if _, err := c.level(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalidConfig, c.Log.Format)
	}
	r := c.Resources
	if r.MemoryLimitBytes < 0 || r.MaxWorkers < 0 || r.IOLimitBytesPerSec < 0 {
		return fmt.Errorf("%w: negative resource limit", ErrInvalidConfig)
	}
	if c.Progress.Interval < 0 {
		return fmt.Errorf("%w: negative progress interval", ErrInvalidConfig)
	}
	if _, err := c.WriteOptions(); err != nil {
		return err
	}
	return nil
}

func (c *Config) level() (slog.Level, error) {
	var level slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.Log.Level)
	}
	return level, nil
}

// NewLogger builds the configured logger.
func (c *Config) NewLogger() (*Logger, error) {
	level, err := c.level()
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(c.Log.Format, "json") {
		return NewJSONLogger(level), nil
	}
	return NewTextLogger(level), nil
}

// WriteOptions converts the storage section.
func (c *Config) WriteOptions() (dataio.WriteOptions, error) {
	var opts dataio.WriteOptions
	if c.Storage.Compression != "" {
		comp, err := dataio.ParseCompression(c.Storage.Compression)
		if err != nil {
			return opts, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		opts.Compression = comp
	}
	if c.Storage.AutoChunkBytes < 0 || c.Storage.Workers < 0 {
		return opts, fmt.Errorf("%w: negative storage setting", ErrInvalidConfig)
	}
	opts.AutoChunkBytes = c.Storage.AutoChunkBytes
	opts.Workers = c.Storage.Workers
	return opts, nil
}

func (c *Config) resourceConfig() resource.Config {
	return resource.Config{
		MemoryLimitBytes:   c.Resources.MemoryLimitBytes,
		MaxWorkers:         c.Resources.MaxWorkers,
		IOLimitBytesPerSec: c.Resources.IOLimitBytesPerSec,
	}
}
