// Package config loads kindflow configuration.
//
// LoadConfig reads a config.yml, an optional .env file and KINDFLOW_*
// environment variables through Viper, in that order of precedence (later
// wins). Nested keys map to underscore-separated variable names:
//
//	KINDFLOW_STREAM_BATCH_SIZE=4096    -> stream.batch_size
//	KINDFLOW_TRACING_SAMPLE_RATE=0.1  -> tracing.sample_rate
//
// Typical use:
//
//	var cfg config.Config
//	if err := config.LoadConfig("kindflow", &cfg); err != nil { ... }
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil { ... }
package config
