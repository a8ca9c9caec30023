package session

import "time"

// BackoffConfig defines retry backoff behavior for automatic reconfiguration.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines session reliability defaults.
//
// The engine has no internal timer for a caller-driven Configure; the
// timeouts here apply only to work the session starts on its own, i.e. the
// reconfiguration attempts triggered by a device reboot signal.
type Config struct {
	// EventBuffer sizes each event subscriber channel.
	EventBuffer int

	// ReconfigureTimeout bounds one automatic handshake attempt.
	ReconfigureTimeout time.Duration

	// MaxReconfigureAttempts caps the automatic reboot-recovery loop.
	// Zero takes the default; negative disables the cap.
	MaxReconfigureAttempts int

	Backoff BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		EventBuffer:            32,
		ReconfigureTimeout:     10 * time.Second,
		MaxReconfigureAttempts: 5,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.EventBuffer <= 0 {
		c.EventBuffer = def.EventBuffer
	}
	if c.ReconfigureTimeout <= 0 {
		c.ReconfigureTimeout = def.ReconfigureTimeout
	}
	if c.MaxReconfigureAttempts == 0 {
		c.MaxReconfigureAttempts = def.MaxReconfigureAttempts
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff = def.Backoff
	}
	return c
}
