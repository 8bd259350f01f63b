package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/docker/go-units"

	logs "github.com/danmuck/xconn/internal/logging"
	"github.com/danmuck/xconn/internal/protocol/frame"
	"github.com/danmuck/xconn/internal/protocol/session"
)

const (
	EnvDisplay    = "DISPLAY"
	EnvAuthority  = "XAUTHORITY"
	DefaultTarget = ":0"
)

// Config is the resolved client configuration.
type Config struct {
	Display       string
	AuthorityPath string
	LogLevel      string
	MetricsAddr   string
	Session       session.Config
}

type fileConfig struct {
	Display     string      `toml:"display"`
	Authority   string      `toml:"authority"`
	LogLevel    string      `toml:"log_level"`
	MetricsAddr string      `toml:"metrics_addr"`
	Session     fileSession `toml:"session"`
}

type fileSession struct {
	ConnectTimeout   string `toml:"connect_timeout"`
	HandshakeTimeout string `toml:"handshake_timeout"`
	ReadTimeout      string `toml:"read_timeout"`
	WriteTimeout     string `toml:"write_timeout"`
	ReplyTimeout     string `toml:"reply_timeout"`
	MaxReplyBytes    string `toml:"max_reply_bytes"`
}

// Default resolves the display from $DISPLAY and the authority file from
// DefaultAuthorityPath.
func Default() Config {
	display := strings.TrimSpace(os.Getenv(EnvDisplay))
	if display == "" {
		display = DefaultTarget
	}
	cfg := Config{
		Display:       display,
		AuthorityPath: DefaultAuthorityPath(),
		LogLevel:      "info",
		Session:       session.DefaultConfig(),
	}
	cfg.Session.AuthorityPath = cfg.AuthorityPath
	return cfg
}

// DefaultAuthorityPath is $XAUTHORITY, else $HOME/.Xauthority, else empty.
func DefaultAuthorityPath() string {
	if p := strings.TrimSpace(os.Getenv(EnvAuthority)); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".Xauthority")
}

// Load reads a TOML file over Default. Keys absent from the file keep their
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		logs.Warnf("config: ignoring unknown keys in %s: %v", path, undecoded)
	}

	if meta.IsDefined("display") {
		cfg.Display = strings.TrimSpace(raw.Display)
	}
	if meta.IsDefined("authority") {
		cfg.AuthorityPath = strings.TrimSpace(raw.Authority)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"connect_timeout", raw.Session.ConnectTimeout, &cfg.Session.ConnectTimeout},
		{"handshake_timeout", raw.Session.HandshakeTimeout, &cfg.Session.HandshakeTimeout},
		{"read_timeout", raw.Session.ReadTimeout, &cfg.Session.ReadTimeout},
		{"write_timeout", raw.Session.WriteTimeout, &cfg.Session.WriteTimeout},
		{"reply_timeout", raw.Session.ReplyTimeout, &cfg.Session.ReplyTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined("session", d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse session.%s: %w", d.key, err)
		}
		*d.dst = v
	}

	if meta.IsDefined("session", "max_reply_bytes") {
		n, err := units.RAMInBytes(strings.TrimSpace(raw.Session.MaxReplyBytes))
		if err != nil {
			return Config{}, fmt.Errorf("parse session.max_reply_bytes: %w", err)
		}
		cfg.Session.Limits.MaxReplyBytes = uint64(max(n, 0))
	}

	cfg.Session.AuthorityPath = cfg.AuthorityPath
	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if _, err := session.ParseTarget(cfg.Display); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	if cfg.LogLevel != "" {
		if _, ok := logs.ParseLevel(cfg.LogLevel); !ok {
			return fmt.Errorf("log_level: unknown level %q", cfg.LogLevel)
		}
	}
	s := cfg.Session
	for name, d := range map[string]time.Duration{
		"connect_timeout":   s.ConnectTimeout,
		"handshake_timeout": s.HandshakeTimeout,
		"read_timeout":      s.ReadTimeout,
		"write_timeout":     s.WriteTimeout,
		"reply_timeout":     s.ReplyTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("session.%s must not be negative", name)
		}
	}
	if s.Limits.MaxReplyBytes < frame.HeaderLen {
		return fmt.Errorf("session.max_reply_bytes must be at least %d", frame.HeaderLen)
	}
	return nil
}
