// ABOUTME: Collector configuration loaded from YAML with environment overrides
// ABOUTME: Converts validated settings into gc options

// Package config provides configuration loading and validation for rootgc.
// Supports YAML files with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/prateek/rootgc/gc"
)

// Config holds all configuration for an embedded collector.
type Config struct {
	Collector     CollectorConfig     `yaml:"collector"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type CollectorConfig struct {
	RootCapacity      int  `yaml:"rootCapacity" env:"ROOTGC_ROOT_CAPACITY"`
	InitialThreshold  int  `yaml:"initialThreshold" env:"ROOTGC_INITIAL_THRESHOLD"`
	AutoCollect       bool `yaml:"autoCollect" env:"ROOTGC_AUTO_COLLECT"`
	PoolCapacity      int  `yaml:"poolCapacity" env:"ROOTGC_POOL_CAPACITY"`
	RetryOnExhaustion bool `yaml:"retryOnExhaustion" env:"ROOTGC_RETRY_ON_EXHAUSTION"`
}

type ObservabilityConfig struct {
	MetricsAddr string `yaml:"metricsAddr" env:"ROOTGC_METRICS_ADDR"`
	LogLevel    string `yaml:"logLevel" env:"ROOTGC_LOG_LEVEL"`
	LogFormat   string `yaml:"logFormat" env:"ROOTGC_LOG_FORMAT"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Collector: CollectorConfig{
			RootCapacity:      gc.DefaultRootCapacity,
			InitialThreshold:  gc.DefaultInitialThreshold,
			AutoCollect:       true,
			PoolCapacity:      0, // unbounded
			RetryOnExhaustion: true,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Load reads a YAML file on top of the defaults and applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults without consulting the environment.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from environment variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	ints := map[string]*int{
		"ROOTGC_ROOT_CAPACITY":     &c.Collector.RootCapacity,
		"ROOTGC_INITIAL_THRESHOLD": &c.Collector.InitialThreshold,
		"ROOTGC_POOL_CAPACITY":     &c.Collector.PoolCapacity,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	bools := map[string]*bool{
		"ROOTGC_AUTO_COLLECT":        &c.Collector.AutoCollect,
		"ROOTGC_RETRY_ON_EXHAUSTION": &c.Collector.RetryOnExhaustion,
	}
	for key, dst := range bools {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}

	strs := map[string]*string{
		"ROOTGC_METRICS_ADDR": &c.Observability.MetricsAddr,
		"ROOTGC_LOG_LEVEL":    &c.Observability.LogLevel,
		"ROOTGC_LOG_FORMAT":   &c.Observability.LogFormat,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Collector.RootCapacity <= 0 {
		errs = append(errs, fmt.Errorf("collector.rootCapacity must be positive, got %d", c.Collector.RootCapacity))
	}
	if c.Collector.InitialThreshold < 0 {
		errs = append(errs, fmt.Errorf("collector.initialThreshold must not be negative, got %d", c.Collector.InitialThreshold))
	}
	if c.Collector.PoolCapacity < 0 {
		errs = append(errs, fmt.Errorf("collector.poolCapacity must not be negative, got %d", c.Collector.PoolCapacity))
	}
	switch strings.ToLower(c.Observability.LogFormat) {
	case "json", "console", "text":
	default:
		errs = append(errs, fmt.Errorf("observability.logFormat must be json or console, got %q", c.Observability.LogFormat))
	}
	return errors.Join(errs...)
}

// Options converts the collector section into gc options. observer may be nil.
func (c *Config) Options(logger zerolog.Logger, observer gc.Observer) []gc.Option {
	return []gc.Option{
		gc.WithRootCapacity(c.Collector.RootCapacity),
		gc.WithInitialThreshold(c.Collector.InitialThreshold),
		gc.WithAutoCollect(c.Collector.AutoCollect),
		gc.WithPoolCapacity(c.Collector.PoolCapacity),
		gc.WithRetryOnExhaustion(c.Collector.RetryOnExhaustion),
		gc.WithLogger(logger),
		gc.WithObserver(observer),
	}
}
