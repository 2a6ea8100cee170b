// Package config loads the settings shared by the restaurants binaries
// from .env files and RESTAURANTS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "RESTAURANTS"

// Config holds the binaries' configuration.
type Config struct {
	ConfigFile    string        `mapstructure:"config_file"`
	APIURL        string        `mapstructure:"api_url"`
	TimeoutMillis int64         `mapstructure:"timeout_ms"`
	Timeout       time.Duration `mapstructure:"-"`
	UserAgent     string        `mapstructure:"user_agent"`
	ThrottleRPS   int           `mapstructure:"throttle_rps"`
	ThrottleBurst int           `mapstructure:"throttle_burst"`
	LogLevel      string        `mapstructure:"log_level"`
	Output        string        `mapstructure:"output"`
	Transport     string        `mapstructure:"transport"`
	StubAddr      string        `mapstructure:"stub_addr"`
	StubsFile     string        `mapstructure:"stubs_file"`

	// Server timeouts for stubapi. A zero write timeout never cuts a
	// delayed stub short; a zero drain timeout keeps the server default.
	StubReadTimeoutMillis  int64         `mapstructure:"stub_read_timeout_ms"`
	StubWriteTimeoutMillis int64         `mapstructure:"stub_write_timeout_ms"`
	StubIdleTimeoutMillis  int64         `mapstructure:"stub_idle_timeout_ms"`
	StubDrainTimeoutMillis int64         `mapstructure:"stub_drain_timeout_ms"`
	StubReadTimeout        time.Duration `mapstructure:"-"`
	StubWriteTimeout       time.Duration `mapstructure:"-"`
	StubIdleTimeout        time.Duration `mapstructure:"-"`
	StubDrainTimeout       time.Duration `mapstructure:"-"`
}

// Output formats and transports understood by restctl.
var (
	Outputs    = []string{"json", "yaml"}
	Transports = []string{"http", "resty"}
)

// Load reads configuration from envFiles (".env" when none are given),
// the environment and, if config_file is set, a YAML config file.
// Variables already present in the environment win over .env files.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	v := viper.New()

	v.SetDefault("config_file", "")
	v.SetDefault("api_url", "http://localhost:8086/")
	v.SetDefault("timeout_ms", 10_000)
	v.SetDefault("user_agent", "restctl/1.0")
	v.SetDefault("throttle_rps", 0) // disabled
	v.SetDefault("throttle_burst", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("output", "json")
	v.SetDefault("transport", "http")
	v.SetDefault("stub_addr", ":8086")
	v.SetDefault("stubs_file", "./stubs.yaml")
	v.SetDefault("stub_read_timeout_ms", 5_000)
	v.SetDefault("stub_write_timeout_ms", 0) // bounded by stub delays only
	v.SetDefault("stub_idle_timeout_ms", 120_000)
	v.SetDefault("stub_drain_timeout_ms", 20_000)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Timeout = time.Duration(cfg.TimeoutMillis) * time.Millisecond
	cfg.StubReadTimeout = time.Duration(cfg.StubReadTimeoutMillis) * time.Millisecond
	cfg.StubWriteTimeout = time.Duration(cfg.StubWriteTimeoutMillis) * time.Millisecond
	cfg.StubIdleTimeout = time.Duration(cfg.StubIdleTimeoutMillis) * time.Millisecond
	cfg.StubDrainTimeout = time.Duration(cfg.StubDrainTimeoutMillis) * time.Millisecond

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.APIURL == "" {
		return errors.New("invalid api_url (must not be empty)")
	}
	if c.TimeoutMillis < 0 {
		return errors.New("invalid timeout_ms (must not be negative)")
	}
	if c.StubReadTimeoutMillis < 0 || c.StubWriteTimeoutMillis < 0 || c.StubIdleTimeoutMillis < 0 || c.StubDrainTimeoutMillis < 0 {
		return errors.New("invalid stub server timeouts (must not be negative)")
	}
	if c.ThrottleRPS < 0 || c.ThrottleBurst < 0 {
		return errors.New("invalid throttle_rps/throttle_burst (must not be negative)")
	}
	if c.ThrottleRPS > 0 && c.ThrottleBurst == 0 {
		c.ThrottleBurst = c.ThrottleRPS
	}
	if !slices.Contains(Outputs, c.Output) {
		return fmt.Errorf("invalid output %q (want one of %v)", c.Output, Outputs)
	}
	if !slices.Contains(Transports, c.Transport) {
		return fmt.Errorf("invalid transport %q (want one of %v)", c.Transport, Transports)
	}

	return nil
}
