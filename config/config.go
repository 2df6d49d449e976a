package config

import (
	"time"

	"github.com/kbukum/kindflow/errors"
	"github.com/kbukum/kindflow/logger"
	"github.com/kbukum/kindflow/observability"
	"github.com/kbukum/kindflow/validation"
	"github.com/kbukum/kindflow/version"
)

// ServiceConfig contains the fields every kindflow binary needs.
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string        `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging" validate:"-"`
}

// ApplyDefaults applies default values to the service fields.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
}

// Validate validates the service fields.
func (c *ServiceConfig) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return errors.Configuration("logging: %v", err).WithCause(err)
	}
	return nil
}

// StreamConfig tunes plugin streaming.
type StreamConfig struct {
	// BatchSize is the number of rows per batch of the first dependency; 0 keeps upstream chunking.
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size" validate:"gte=0"`
	// Workers bounds concurrent compute calls of parallel plugins.
	Workers int `yaml:"workers" mapstructure:"workers" validate:"gte=1"`
	// Prefetch is how many chunks each plugin output may run ahead; 0 disables it.
	Prefetch int `yaml:"prefetch" mapstructure:"prefetch" validate:"gte=0"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint" validate:"required_if=Enabled true"`
	Insecure   bool    `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint" validate:"required_if=Enabled true"`
	Insecure bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
}

// Config is the kindflow configuration.
type Config struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Stream  StreamConfig  `yaml:"stream" mapstructure:"stream"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	// Sources is the path of a YAML file declaring extra placeholder sources.
	Sources string `yaml:"sources" mapstructure:"sources"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "kindflow"
	}
	if c.Version == "" {
		c.Version = version.Version
	}
	c.ServiceConfig.ApplyDefaults()
	if c.Stream.Workers == 0 {
		c.Stream.Workers = 4
	}
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = "localhost:4318"
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 1.0
	}
	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = "localhost:4318"
	}
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = 15 * time.Second
	}
}

// Validate validates the whole configuration.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(c)
}

// TracerConfig converts the tracing section for observability.InitTracer.
func (c *Config) TracerConfig() *observability.TracerConfig {
	tc := observability.DefaultTracerConfig(c.Name)
	tc.ServiceVersion = c.Version
	tc.Environment = c.Environment
	tc.Endpoint = c.Tracing.Endpoint
	tc.Insecure = c.Tracing.Insecure
	tc.SampleRate = c.Tracing.SampleRate
	return tc
}

// MeterConfig converts the metrics section for observability.InitMeter.
func (c *Config) MeterConfig() *observability.MeterConfig {
	mc := observability.DefaultMeterConfig(c.Name)
	mc.ServiceVersion = c.Version
	mc.Environment = c.Environment
	mc.Endpoint = c.Metrics.Endpoint
	mc.Insecure = c.Metrics.Insecure
	mc.Interval = c.Metrics.Interval
	return mc
}
