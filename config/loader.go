package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/kindflow/errors"
	"github.com/kbukum/kindflow/logger"
)

// DefaultEnvPrefix is the prefix of environment variables read into the config.
const DefaultEnvPrefix = "KINDFLOW"

// FileSystem interface for file operations (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// OSFileSystem implements FileSystem on the local disk.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFileSystem) LoadEnv(path string) error { return godotenv.Load(path) }

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
	EnvPrefix  string
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix replaces DefaultEnvPrefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// ConfigSearchPaths lists where a config.yml is looked for when none is given.
func ConfigSearchPaths(serviceName string) []string {
	return []string{
		fmt.Sprintf("./cmd/%s/config.yml", serviceName),
		"./config/config.yml",
		"./config.yml",
	}
}

// EnvSearchPaths lists where a .env file is looked for when none is given.
func EnvSearchPaths(serviceName string) []string {
	return []string{
		fmt.Sprintf("./cmd/%s/.env", serviceName),
		fmt.Sprintf("./.env.%s", serviceName),
		"./.env",
	}
}

// LoadConfig loads configuration for a service into cfg. A missing config
// file is not an error; a config file that cannot be parsed is.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	lc := LoaderConfig{FileSystem: OSFileSystem{}, EnvPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(&lc)
	}

	configFile := lc.ConfigFile
	if configFile == "" {
		configFile = firstExisting(lc.FileSystem, ConfigSearchPaths(serviceName))
	}
	envFile := lc.EnvFile
	if envFile == "" {
		envFile = firstExisting(lc.FileSystem, EnvSearchPaths(serviceName))
	}

	v := viper.New()
	if configFile != "" && lc.FileSystem.Exists(configFile) {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.Configuration("reading config file %s", configFile).WithCause(err)
		}
	}

	if envFile != "" && lc.FileSystem.Exists(envFile) {
		if err := lc.FileSystem.LoadEnv(envFile); err != nil {
			logger.Warn("failed to load env file", logger.Fields("path", envFile, logger.FieldError, err.Error()))
		}
	}
	bindEnv(v, lc.EnvPrefix, os.Environ())

	if err := v.Unmarshal(cfg); err != nil {
		return errors.Configuration("decoding config for %s", serviceName).WithCause(err)
	}
	return nil
}

func firstExisting(fs FileSystem, paths []string) string {
	for _, p := range paths {
		if fs.Exists(p) {
			return p
		}
	}
	return ""
}

// bindEnv copies PREFIX_* variables into v under every key they may name.
func bindEnv(v *viper.Viper, prefix string, environ []string) {
	lead := strings.ToUpper(prefix) + "_"
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, lead) {
			continue
		}
		for _, k := range envKeyVariants(strings.TrimPrefix(key, lead)) {
			v.Set(k, value)
		}
	}
}

// envKeyVariants maps an underscore-separated variable name to the config
// keys it may stand for, since field names may themselves contain
// underscores:
//
//	STREAM_BATCH_SIZE -> [stream_batch_size stream.batch_size stream.batch.size]
func envKeyVariants(name string) []string {
	lower := strings.ToLower(name)
	parts := strings.Split(lower, "_")
	out := []string{lower}
	for i := 1; i < len(parts); i++ {
		out = append(out, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
	}
	return out
}
