// Package config loads client and server settings from a TOML file and the
// environment, and holds the runtime switches read on every call.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment variables that override the file.
const (
	EnvEndpoint = "GRPCWEB_ENDPOINT"
	EnvSimulate = "GRPCWEB_SIMULATE"
	EnvTimeout  = "GRPCWEB_TIMEOUT"
	EnvLogLevel = "GRPCWEB_LOG_LEVEL"
)

const (
	DefaultEndpoint   = "http://localhost:8080"
	DefaultListenAddr = ":8080"
	DefaultLogLevel   = "info"
)

// Config is the resolved configuration.
type Config struct {
	Endpoint   string
	Simulate   bool
	Timeout    time.Duration
	LogLevel   string
	ListenAddr string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Endpoint:   DefaultEndpoint,
		LogLevel:   DefaultLogLevel,
		ListenAddr: DefaultListenAddr,
	}
}

type fileConfig struct {
	Endpoint   string `toml:"endpoint"`
	Simulate   bool   `toml:"simulate"`
	Timeout    string `toml:"timeout"`
	LogLevel   string `toml:"log_level"`
	ListenAddr string `toml:"listen_addr"`
}

// Load reads path (skipped when empty) over the defaults, then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("endpoint") {
		cfg.Endpoint = strings.TrimSpace(raw.Endpoint)
	}
	if meta.IsDefined("simulate") {
		cfg.Simulate = raw.Simulate
	}
	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	return nil
}

// LookupFunc looks up an environment variable.
type LookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup LookupFunc) error {
	if v, ok := lookup(EnvEndpoint); ok {
		cfg.Endpoint = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvSimulate); ok {
		b, err := ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvSimulate, err)
		}
		cfg.Simulate = b
	}
	if v, ok := lookup(EnvTimeout); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvTimeout, err)
		}
		cfg.Timeout = d
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	return nil
}

// Validate checks a resolved configuration.
func Validate(cfg Config) error {
	if cfg.Endpoint == "" && !cfg.Simulate {
		return fmt.Errorf("config missing endpoint")
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("config timeout must not be negative")
	}
	return nil
}

// ParseBool accepts the usual spellings of a boolean switch. An empty
// value is false.
func ParseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return false, nil
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(v))
}
