package config

import (
	"strings"

	"github.com/danmuck/meshctl/internal/session"
	"github.com/danmuck/meshctl/internal/transport"
)

// SessionConfig converts the file representation into the engine's config.
func (c Config) SessionConfig() session.Config {
	return session.Config{
		EventBuffer:            c.Session.EventBuffer,
		ReconfigureTimeout:     c.Session.ReconfigureTimeout.Duration,
		MaxReconfigureAttempts: c.Session.MaxReconfigureAttempts,
		Backoff: session.BackoffConfig{
			InitialDelay: c.Session.InitialBackoff.Duration,
			Multiplier:   c.Session.BackoffMultiplier,
			MaxDelay:     c.Session.MaxBackoff.Duration,
			Jitter:       c.Session.BackoffJitter,
		},
	}
}

// TCPConfig converts the device section into transport dial settings.
func (c Config) TCPConfig() transport.TCPConfig {
	return transport.TCPConfig{
		DialTimeout:  c.Device.DialTimeout.Duration,
		WriteTimeout: c.Device.WriteTimeout.Duration,
	}
}

// DeviceAddr returns the device endpoint with the standard port appended
// when the config names a bare host.
func (c Config) DeviceAddr() string {
	addr := strings.TrimSpace(c.Device.Addr)
	if addr != "" && !strings.Contains(addr, ":") {
		addr += ":" + transport.DefaultTCPPort
	}
	return addr
}
