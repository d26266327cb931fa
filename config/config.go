// Package config loads searchlens settings: built-in defaults, then an
// optional YAML file, then SEARCHLENS_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"searchlens/cleaner"
	"searchlens/coordinator"
	"searchlens/fetcher"
	"searchlens/history"
	"searchlens/inference"
	"searchlens/retry"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const envPrefix = "SEARCHLENS_"

type Config struct {
	Server      Server             `yaml:"server"`
	Fetcher     fetcher.Config     `yaml:"fetcher"`
	Cleaner     Cleaner            `yaml:"cleaner"`
	Inference   inference.Config   `yaml:"inference"`
	Retry       Retry              `yaml:"retry"`
	Cache       Cache              `yaml:"cache"`
	Coordinator coordinator.Config `yaml:"coordinator"`
	History     History            `yaml:"history"`
	Log         Log                `yaml:"log"`
}

type Server struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type Cleaner struct {
	// Extractor is tags, readability, trafilatura or trafilatura-markdown.
	Extractor    string `yaml:"extractor"`
	SentenceMode bool   `yaml:"sentence_mode"`
}

type Retry struct {
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
}

// Policy builds the retry policy with the default retry classification.
func (r Retry) Policy() retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxRetries = r.MaxRetries
	p.InitialDelay = r.InitialDelay
	return p
}

type Cache struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type History struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	WindowMinutes int    `yaml:"window_minutes"`
	MaxItems      int    `yaml:"max_items"`
}

type Log struct {
	Development bool   `yaml:"development"`
	Level       string `yaml:"level"`
}

func Default() Config {
	return Config{
		Server: Server{
			Addr:            "127.0.0.1:8787",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Fetcher:   fetcher.DefaultConfig(),
		Cleaner:   Cleaner{Extractor: "tags"},
		Inference: inference.DefaultConfig(),
		Retry: Retry{
			MaxRetries:   retry.DefaultMaxRetries,
			InitialDelay: retry.DefaultInitialDelay,
		},
		Cache:       Cache{SweepInterval: time.Minute},
		Coordinator: coordinator.DefaultConfig(),
		History: History{
			Enabled:       true,
			Path:          "data/history.db",
			WindowMinutes: history.DefaultWindowMinutes,
			MaxItems:      history.DefaultMaxItems,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults and applies
// environment overrides. An empty path or a missing file skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: reading %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Server.Addr = getEnv("ADDR", c.Server.Addr)

	c.Fetcher.Backend = getEnv("FETCHER_BACKEND", c.Fetcher.Backend)
	c.Fetcher.UserAgent = getEnv("USER_AGENT", c.Fetcher.UserAgent)
	c.Fetcher.ProxyURL = getEnv("PROXY_URL", c.Fetcher.ProxyURL)

	c.Cleaner.Extractor = getEnv("EXTRACTOR", c.Cleaner.Extractor)

	c.Inference.Provider = getEnv("INFERENCE_PROVIDER", c.Inference.Provider)
	c.Inference.Model = getEnv("INFERENCE_MODEL", c.Inference.Model)
	c.Inference.BaseURL = getEnv("INFERENCE_BASE_URL", c.Inference.BaseURL)
	c.Inference.APIKey = getEnv("INFERENCE_API_KEY", c.Inference.APIKey)

	c.History.Path = getEnv("HISTORY_PATH", c.History.Path)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)

	var err error
	if c.Coordinator.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", c.Coordinator.RequestTimeout); err != nil {
		return err
	}
	if c.Fetcher.Timeout, err = getEnvDuration("FETCH_TIMEOUT", c.Fetcher.Timeout); err != nil {
		return err
	}
	if c.Coordinator.Workers, err = getEnvInt("WORKERS", c.Coordinator.Workers); err != nil {
		return err
	}
	if c.Retry.MaxRetries, err = getEnvInt("MAX_RETRIES", c.Retry.MaxRetries); err != nil {
		return err
	}
	if c.History.Enabled, err = getEnvBool("HISTORY_ENABLED", c.History.Enabled); err != nil {
		return err
	}
	if c.Log.Development, err = getEnvBool("LOG_DEVELOPMENT", c.Log.Development); err != nil {
		return err
	}
	return nil
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("config: server.addr cannot be empty")
	}
	switch c.Fetcher.Backend {
	case "http", "browser":
	default:
		return fmt.Errorf("config: fetcher.backend must be http or browser, got %q", c.Fetcher.Backend)
	}
	if c.Fetcher.Timeout <= 0 {
		return fmt.Errorf("config: fetcher.timeout must be positive, got %v", c.Fetcher.Timeout)
	}
	if _, err := cleaner.NewExtractor(c.Cleaner.Extractor); err != nil {
		return fmt.Errorf("config: cleaner.extractor: %w", err)
	}
	switch c.Inference.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("config: %w", inference.ErrUnsupportedProvider{Provider: c.Inference.Provider})
	}
	if c.Inference.Model == "" {
		return errors.New("config: inference.model cannot be empty")
	}
	if c.Retry.MaxRetries < 1 {
		return fmt.Errorf("config: retry.max_retries must be at least 1, got %d", c.Retry.MaxRetries)
	}
	if c.Retry.InitialDelay <= 0 {
		return fmt.Errorf("config: retry.initial_delay must be positive, got %v", c.Retry.InitialDelay)
	}
	if c.Coordinator.RequestTimeout <= 0 {
		return fmt.Errorf("config: coordinator.request_timeout must be positive, got %v", c.Coordinator.RequestTimeout)
	}
	if c.Coordinator.Workers < 1 {
		return fmt.Errorf("config: coordinator.workers must be at least 1, got %d", c.Coordinator.Workers)
	}
	if c.History.Enabled && c.History.Path == "" {
		return errors.New("config: history.path is required when history is enabled")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(envPrefix + key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s%s: %w", envPrefix, key, err)
	}
	return parsed, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value := os.Getenv(envPrefix + key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("config: %s%s: %w", envPrefix, key, err)
	}
	return parsed, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(envPrefix + key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s%s: %w", envPrefix, key, err)
	}
	return parsed, nil
}
