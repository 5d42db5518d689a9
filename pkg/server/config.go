package server

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TokenEnv is the environment variable the access token is read from when
// no config file overrides it.
const TokenEnv = "TIBBER_TOKEN" //nolint:gosec // env var name, not a credential

// Config is the resolved server configuration.
type Config struct {
	Token           string // Tibber API access token
	UserAgent       string
	RequestTimeout  time.Duration // per GraphQL request
	RealtimeTimeout time.Duration // wait bound for get-realtime
	LogLevel        string
}

// fileConfig is the YAML shape. Durations are strings ("30s", "1m30s");
// environment variables referenced as ${VAR} or $VAR are expanded before
// parsing so tokens can stay out of the file.
type fileConfig struct {
	Token           string `yaml:"token"` //nolint:gosec // configuration field, not a hardcoded secret
	UserAgent       string `yaml:"user_agent"`
	RequestTimeout  string `yaml:"request_timeout"`
	RealtimeTimeout string `yaml:"realtime_timeout"`
	LogLevel        string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when no file is given: the
// token from the environment and 30 second bounds everywhere.
func DefaultConfig() Config {
	return Config{
		Token:           os.Getenv(TokenEnv),
		UserAgent:       Name + "/" + Version,
		RequestTimeout:  30 * time.Second,
		RealtimeTimeout: 30 * time.Second,
		LogLevel:        "info",
	}
}

// LoadConfig builds the configuration, overlaying the YAML file at path
// (if non-empty) onto the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration
	if err != nil {
		return Config{}, fmt.Errorf("server: load config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var fc fileConfig
	if err := yaml.Unmarshal([]byte(expanded), &fc); err != nil {
		return Config{}, fmt.Errorf("server: parse config: %w", err)
	}

	if fc.Token != "" {
		cfg.Token = fc.Token
	}
	if fc.UserAgent != "" {
		cfg.UserAgent = fc.UserAgent
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}

	if fc.RequestTimeout != "" {
		d, err := time.ParseDuration(fc.RequestTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("server: config: request_timeout: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if fc.RealtimeTimeout != "" {
		d, err := time.ParseDuration(fc.RealtimeTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("server: config: realtime_timeout: %w", err)
		}
		cfg.RealtimeTimeout = d
	}

	return cfg, nil
}

// Validate checks the configuration is usable. A missing token is a
// startup failure: the process refuses to start rather than serving tools
// that can only error.
func (c Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("server: config: access token is required (set %s)", TokenEnv)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("server: config: request_timeout must be positive")
	}

	if c.RealtimeTimeout <= 0 {
		return fmt.Errorf("server: config: realtime_timeout must be positive")
	}

	return nil
}
