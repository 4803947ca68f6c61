package config

import (
	"fmt"
	"os"
)

// Template returns a commented config file carrying the defaults.
func Template() string {
	return linkTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(linkTemplate), 0o600)
}

const linkTemplate = `# Var header values stamped on outgoing frames.
protocol_id = 0x06
protocol_version = 0x02
keepalive_lsb = 0x00
keepalive_msb = 0x00
client_id = 0x01

# Device codes: 0x41 mobile app, 0x42 backend, 0x43 charging station app,
# 0x4D mainboard, 0x4E pc->cs connector, 0x4F pc->mainboard uart, 0x50 pc->cs board.
sender = 0x4F
receiver = 0x4D

connect_return_code = 0x09

# Largest payload section accepted or produced, checksum included.
max_payload_bytes = 65535

[log]
level = "info"
timestamp = true
no_color = false
`
