// Package config loads the stepgraph server and CLI settings.
//
// Settings come from Default, then an optional YAML file, then STEPGRAPH_*
// environment variables. Command-line flags are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/stepgraph/internal/logging"
	"github.com/aretw0/stepgraph/pkg/persistence/middleware"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// Config is the full set of runtime settings.
type Config struct {
	Addr       string      `mapstructure:"addr" yaml:"addr"`
	LogLevel   string      `mapstructure:"log_level" yaml:"log_level"`
	LogFormat  string      `mapstructure:"log_format" yaml:"log_format"`
	Store      StoreConfig `mapstructure:"store" yaml:"store"`
	MaxSteps   int         `mapstructure:"max_steps" yaml:"max_steps"`
	Metrics    bool        `mapstructure:"metrics" yaml:"metrics"`
	CatalogDir string      `mapstructure:"catalog_dir" yaml:"catalog_dir"`
	ToolsFile  string      `mapstructure:"tools_file" yaml:"tools_file"`
}

// StoreConfig selects and configures the graph and run storage.
type StoreConfig struct {
	Backend string       `mapstructure:"backend" yaml:"backend"`
	Redis   RedisConfig  `mapstructure:"redis" yaml:"redis"`
	Badger  BadgerConfig `mapstructure:"badger" yaml:"badger"`

	// EncryptionKey is a base64 AES-256 key. When set, runs are encrypted at rest.
	EncryptionKey string `mapstructure:"encryption_key" yaml:"encryption_key"`
	// FallbackKeys are older base64 keys still accepted for decryption.
	FallbackKeys []string `mapstructure:"fallback_keys" yaml:"fallback_keys"`
	// RedactKeys are regular expressions; matching state keys are masked before storage.
	RedactKeys []string `mapstructure:"redact_keys" yaml:"redact_keys"`
}

// RedisConfig configures the Redis backend. RunTTL of zero keeps runs forever.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
	RunTTL   time.Duration `mapstructure:"run_ttl" yaml:"run_ttl"`
}

// BadgerConfig configures the Badger backend. An empty Dir keeps data in memory.
type BadgerConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Default returns the settings used when nothing else is provided.
func Default() Config {
	return Config{
		Addr:      ":8080",
		LogLevel:  "info",
		LogFormat: "text",
		Store: StoreConfig{
			Backend: BackendMemory,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "stepgraph:",
			},
		},
	}
}

// Load reads path (if non-empty) over Default and applies environment overrides.
// A missing file is an error only when path was given explicitly.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		if err := decode(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	if err := decode(fromEnv(os.LookupEnv), &cfg); err != nil {
		return cfg, fmt.Errorf("environment: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendMemory, BackendRedis, BackendBadger:
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if c.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("max_steps must not be negative, got %d", c.MaxSteps))
	}
	if c.Store.Redis.RunTTL < 0 {
		errs = append(errs, fmt.Errorf("store.redis.run_ttl must not be negative, got %s", c.Store.Redis.RunTTL))
	}
	for _, key := range c.encryptionKeys() {
		if _, err := middleware.ParseKey(key); err != nil {
			errs = append(errs, fmt.Errorf("store encryption key: %w", err))
		}
	}
	for _, pattern := range c.Store.RedactKeys {
		if _, err := regexp.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("store.redact_keys: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (c Config) encryptionKeys() []string {
	if c.Store.EncryptionKey == "" {
		return nil
	}
	return append([]string{c.Store.EncryptionKey}, c.Store.FallbackKeys...)
}

// decode merges raw into cfg. Keys absent from raw keep their current value.
func decode(raw map[string]any, cfg *Config) error {
	if len(raw) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}
