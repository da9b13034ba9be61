// Package config loads resilience configuration from a file and the
// environment. The core packages take plain config structs; this loader is
// the external surface that produces them, with defaults, environment
// overrides, and validation applied before anything is constructed.
package config

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"

	"github.com/jonwraymond/breakwater/bulkhead"
	"github.com/jonwraymond/breakwater/circuit"
	"github.com/jonwraymond/breakwater/events"
	"github.com/jonwraymond/breakwater/ratelimit"
)

// BreakerConfig is the file representation of a circuit breaker.
// Durations are strings in time.ParseDuration syntax.
type BreakerConfig struct {
	FailureRateThreshold      float64 `mapstructure:"failure_rate_threshold"`
	SlowCallRateThreshold     float64 `mapstructure:"slow_call_rate_threshold"`
	SlowCallDurationThreshold string  `mapstructure:"slow_call_duration_threshold"`
	WindowSize                int     `mapstructure:"window_size"`
	HalfOpenWindowSize        int     `mapstructure:"half_open_window_size"`
	WaitDurationInOpenState   string  `mapstructure:"wait_duration_in_open_state"`
	AutomaticHalfOpen         bool    `mapstructure:"automatic_half_open"`
}

// LimiterConfig is the file representation of a rate limiter.
type LimiterConfig struct {
	LimitForPeriod     int    `mapstructure:"limit_for_period"`
	LimitRefreshPeriod string `mapstructure:"limit_refresh_period"`
	TimeoutDuration    string `mapstructure:"timeout_duration"`
}

// BulkheadConfig is the file representation of a bulkhead.
type BulkheadConfig struct {
	MaxConcurrent int    `mapstructure:"max_concurrent"`
	MaxWait       string `mapstructure:"max_wait"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Config is the full loaded configuration, keyed by primitive name.
type Config struct {
	Breakers  map[string]BreakerConfig  `mapstructure:"breakers"`
	Limiters  map[string]LimiterConfig  `mapstructure:"limiters"`
	Bulkheads map[string]BulkheadConfig `mapstructure:"bulkheads"`
	Logging   LoggingConfig             `mapstructure:"logging"`
}

// Load reads configuration from the named file (yaml), with environment
// variables overriding file values (BREAKWATER_LOGGING_LEVEL and friends).
// A missing file is not an error; defaults and environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("logging.level", "info")

	v.SetConfigFile(path)
	v.SetEnvPrefix("breakwater")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section. Range validation of numeric fields is
// deferred to the core constructors; the loader validates what they cannot
// see, the duration strings and log level.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Logging, validation.By(func(value interface{}) error {
			lc, ok := value.(LoggingConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
			}
			return validation.ValidateStruct(&lc,
				validation.Field(&lc.Level,
					validation.Required,
					validation.In("debug", "info", "warn", "error"),
				),
			)
		})),
	)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	for name, b := range c.Breakers {
		for field, s := range map[string]string{
			"slow_call_duration_threshold": b.SlowCallDurationThreshold,
			"wait_duration_in_open_state":  b.WaitDurationInOpenState,
		} {
			if err := validateDuration(s); err != nil {
				return fmt.Errorf("config: breaker %q: %s: %w", name, field, err)
			}
		}
	}
	for name, l := range c.Limiters {
		for field, s := range map[string]string{
			"limit_refresh_period": l.LimitRefreshPeriod,
			"timeout_duration":     l.TimeoutDuration,
		} {
			if err := validateDuration(s); err != nil {
				return fmt.Errorf("config: limiter %q: %s: %w", name, field, err)
			}
		}
	}
	for name, b := range c.Bulkheads {
		if err := validateDuration(b.MaxWait); err != nil {
			return fmt.Errorf("config: bulkhead %q: max_wait: %w", name, err)
		}
	}
	return nil
}

func validateDuration(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.ParseDuration(s); err != nil {
		return fmt.Errorf("must be a valid duration (e.g. 2s, 5m): %v", err)
	}
	return nil
}

func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, _ := time.ParseDuration(s) // validated by Load
	return d
}

// Breaker converts the named section into a circuit.Config. Zero fields
// fall through to the circuit package's defaults.
func (c *Config) Breaker(name string, feed *events.Feed) circuit.Config {
	b := c.Breakers[name]
	return circuit.Config{
		Name:                                  name,
		FailureRateThreshold:                  b.FailureRateThreshold,
		SlowCallRateThreshold:                 b.SlowCallRateThreshold,
		SlowCallDurationThreshold:             parseDuration(b.SlowCallDurationThreshold),
		WindowSize:                            b.WindowSize,
		HalfOpenWindowSize:                    b.HalfOpenWindowSize,
		WaitDurationInOpenState:               parseDuration(b.WaitDurationInOpenState),
		AutomaticTransitionFromOpenToHalfOpen: b.AutomaticHalfOpen,
		Feed:                                  feed,
	}
}

// Limiter converts the named section into a ratelimit.Config.
func (c *Config) Limiter(name string, feed *events.Feed) ratelimit.Config {
	l := c.Limiters[name]
	return ratelimit.Config{
		Name:               name,
		LimitForPeriod:     l.LimitForPeriod,
		LimitRefreshPeriod: parseDuration(l.LimitRefreshPeriod),
		TimeoutDuration:    parseDuration(l.TimeoutDuration),
		Feed:               feed,
	}
}

// Bulkhead converts the named section into a bulkhead.Config.
func (c *Config) Bulkhead(name string) bulkhead.Config {
	b := c.Bulkheads[name]
	return bulkhead.Config{
		MaxConcurrent: b.MaxConcurrent,
		MaxWait:       parseDuration(b.MaxWait),
	}
}
