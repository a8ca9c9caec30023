package config

import (
	"fmt"
	"os"
)

const configTemplate = `# meshctl device session configuration

[device]
# TCP endpoint of the mesh device. A bare host gets the standard port 4403.
addr = "192.168.1.20"
dial_timeout = "10s"
write_timeout = "5s"

[session]
event_buffer = 32
reconfigure_timeout = "10s"
# -1 retries forever after a device reboot.
max_reconfigure_attempts = 5
initial_backoff = "250ms"
backoff_multiplier = 2.0
max_backoff = "5s"
backoff_jitter = true

[metrics]
# Uncomment to serve Prometheus metrics.
# addr = ":9461"
`

// Template returns a starter config file body.
func Template() string {
	return configTemplate
}

// WriteTemplate writes the starter config to path, refusing to clobber an
// existing file unless overwrite is set.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(configTemplate), 0o600)
}
