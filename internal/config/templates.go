package config

import (
	"fmt"
	"os"
)

// WriteTemplate writes a commented starter config to path.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(Template), 0o600)
}

const Template = `# display target: host:display[.screen]; an empty host uses the unix socket
display = ":0"
# authority = "/home/user/.Xauthority"
log_level = "info"
# metrics_addr = "127.0.0.1:9464"

[session]
connect_timeout = "5s"
handshake_timeout = "5s"
read_timeout = "5s"
write_timeout = "15s"
reply_timeout = "15s"
max_reply_bytes = "16MiB"
`
