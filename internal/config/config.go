package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that unmarshals from TOML strings like "10s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

type Config struct {
	Device  DeviceConfig  `toml:"device"`
	Session SessionConfig `toml:"session"`
	Metrics MetricsConfig `toml:"metrics"`
}

type DeviceConfig struct {
	// Addr is the device's TCP endpoint, host:port or bare host
	// (the standard device port is appended).
	Addr         string   `toml:"addr"`
	DialTimeout  Duration `toml:"dial_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
}

type SessionConfig struct {
	EventBuffer            int      `toml:"event_buffer"`
	ReconfigureTimeout     Duration `toml:"reconfigure_timeout"`
	MaxReconfigureAttempts int      `toml:"max_reconfigure_attempts"`
	InitialBackoff         Duration `toml:"initial_backoff"`
	BackoffMultiplier      float64  `toml:"backoff_multiplier"`
	MaxBackoff             Duration `toml:"max_backoff"`
	BackoffJitter          bool     `toml:"backoff_jitter"`
}

type MetricsConfig struct {
	// Addr serves Prometheus metrics when non-empty, e.g. ":9461".
	Addr string `toml:"addr"`
}

func Default() Config {
	return Config{
		Device: DeviceConfig{
			DialTimeout:  Duration{10 * time.Second},
			WriteTimeout: Duration{5 * time.Second},
		},
		Session: SessionConfig{
			EventBuffer:            32,
			ReconfigureTimeout:     Duration{10 * time.Second},
			MaxReconfigureAttempts: 5,
			InitialBackoff:         Duration{250 * time.Millisecond},
			BackoffMultiplier:      2.0,
			MaxBackoff:             Duration{5 * time.Second},
			BackoffJitter:          true,
		},
	}
}

// Load reads path over the defaults. Absent keys keep their defaults;
// max_reconfigure_attempts = -1 opts into unbounded reboot retries.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Device.Addr) == "" {
		return fmt.Errorf("device config missing addr")
	}
	if cfg.Session.EventBuffer < 0 {
		return fmt.Errorf("session event_buffer must not be negative")
	}
	if cfg.Session.BackoffMultiplier != 0 && cfg.Session.BackoffMultiplier < 1.0 {
		return fmt.Errorf("session backoff_multiplier must be >= 1.0")
	}
	return nil
}
