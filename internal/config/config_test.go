package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/meshctl/internal/testutil/testlog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meshctl.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing config failed: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	testlog.Start(t)

	path := writeConfig(t, "[device]\naddr = \"10.0.0.5\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Device.Addr != "10.0.0.5" {
		t.Fatalf("addr = %q", cfg.Device.Addr)
	}
	def := Default()
	if cfg.Session.ReconfigureTimeout != def.Session.ReconfigureTimeout {
		t.Fatalf("reconfigure_timeout = %v, want default %v",
			cfg.Session.ReconfigureTimeout.Duration, def.Session.ReconfigureTimeout.Duration)
	}
	if cfg.Session.MaxReconfigureAttempts != def.Session.MaxReconfigureAttempts {
		t.Fatalf("max_reconfigure_attempts = %d, want default %d",
			cfg.Session.MaxReconfigureAttempts, def.Session.MaxReconfigureAttempts)
	}
}

func TestLoadOverrides(t *testing.T) {
	testlog.Start(t)

	path := writeConfig(t, `
[device]
addr = "10.0.0.5:4500"
dial_timeout = "3s"

[session]
event_buffer = 64
max_reconfigure_attempts = -1

[metrics]
addr = ":9461"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Device.DialTimeout.Duration != 3*time.Second {
		t.Fatalf("dial_timeout = %v", cfg.Device.DialTimeout.Duration)
	}
	if cfg.Session.EventBuffer != 64 {
		t.Fatalf("event_buffer = %d", cfg.Session.EventBuffer)
	}
	// -1 opts into unbounded retries and must survive loading and conversion.
	if cfg.Session.MaxReconfigureAttempts != -1 {
		t.Fatalf("max_reconfigure_attempts = %d, want -1", cfg.Session.MaxReconfigureAttempts)
	}
	if sc := cfg.SessionConfig().WithDefaults(); sc.MaxReconfigureAttempts != -1 {
		t.Fatalf("converted max attempts = %d, want -1", sc.MaxReconfigureAttempts)
	}
	if cfg.Metrics.Addr != ":9461" {
		t.Fatalf("metrics addr = %q", cfg.Metrics.Addr)
	}
}

func TestLoadRejectsMissingAddr(t *testing.T) {
	testlog.Start(t)

	path := writeConfig(t, "[session]\nevent_buffer = 8\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for missing device addr")
	}
}

func TestDeviceAddrAppendsDefaultPort(t *testing.T) {
	testlog.Start(t)

	cfg := Default()
	cfg.Device.Addr = "192.168.1.20"
	if got := cfg.DeviceAddr(); got != "192.168.1.20:4403" {
		t.Fatalf("DeviceAddr() = %q", got)
	}
	cfg.Device.Addr = "192.168.1.20:9999"
	if got := cfg.DeviceAddr(); got != "192.168.1.20:9999" {
		t.Fatalf("DeviceAddr() = %q", got)
	}
}

func TestSessionConfigConversion(t *testing.T) {
	testlog.Start(t)

	cfg := Default()
	sc := cfg.SessionConfig()
	if sc.EventBuffer != cfg.Session.EventBuffer {
		t.Fatalf("event buffer = %d", sc.EventBuffer)
	}
	if sc.Backoff.InitialDelay != cfg.Session.InitialBackoff.Duration {
		t.Fatalf("initial delay = %v", sc.Backoff.InitialDelay)
	}
	if !sc.Backoff.Jitter {
		t.Fatalf("jitter lost in conversion")
	}
}

func TestWriteTemplateLoads(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), "meshctl.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("WriteTemplate failed: %v", err)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected overwrite refusal")
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("template config does not load: %v", err)
	}
	if cfg.Device.Addr == "" {
		t.Fatalf("template missing device addr")
	}
}
