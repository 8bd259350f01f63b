package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/xconn/internal/testutil/testlog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xconn.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultsFromEnvironment(t *testing.T) {
	testlog.Start(t)
	t.Setenv(EnvDisplay, "remote:2.1")
	t.Setenv(EnvAuthority, "/tmp/cookies")

	cfg := Default()
	if cfg.Display != "remote:2.1" {
		t.Fatalf("display=%q", cfg.Display)
	}
	if cfg.AuthorityPath != "/tmp/cookies" || cfg.Session.AuthorityPath != "/tmp/cookies" {
		t.Fatalf("authority=%q session=%q", cfg.AuthorityPath, cfg.Session.AuthorityPath)
	}
}

func TestDefaultAuthorityPathFallsBackToHome(t *testing.T) {
	testlog.Start(t)
	home := t.TempDir()
	t.Setenv(EnvAuthority, "")
	t.Setenv("HOME", home)
	if got := DefaultAuthorityPath(); got != filepath.Join(home, ".Xauthority") {
		t.Fatalf("authority path=%q", got)
	}
	t.Setenv(EnvDisplay, "")
	if got := Default().Display; got != DefaultTarget {
		t.Fatalf("display=%q", got)
	}
}

func TestLoadTemplate(t *testing.T) {
	testlog.Start(t)
	t.Setenv(EnvAuthority, "/tmp/cookies")
	path := filepath.Join(t.TempDir(), "xconn.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Display != ":0" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.AuthorityPath != "/tmp/cookies" {
		t.Fatalf("authority should keep its default, got %q", cfg.AuthorityPath)
	}
	if cfg.Session.WriteTimeout != 15*time.Second || cfg.Session.ReplyTimeout != 15*time.Second {
		t.Fatalf("unexpected session timeouts: %+v", cfg.Session)
	}
	if cfg.Session.Limits.MaxReplyBytes != 16<<20 {
		t.Fatalf("max reply bytes=%d", cfg.Session.Limits.MaxReplyBytes)
	}
}

func TestLoadOverrides(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
display = "10.0.0.5:1"
authority = "/var/run/xauth"
metrics_addr = "127.0.0.1:9464"

[session]
reply_timeout = "250ms"
max_reply_bytes = "1MiB"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Display != "10.0.0.5:1" || cfg.MetricsAddr != "127.0.0.1:9464" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Session.AuthorityPath != "/var/run/xauth" {
		t.Fatalf("session authority=%q", cfg.Session.AuthorityPath)
	}
	if cfg.Session.ReplyTimeout != 250*time.Millisecond {
		t.Fatalf("reply timeout=%v", cfg.Session.ReplyTimeout)
	}
	if cfg.Session.ConnectTimeout != 5*time.Second {
		t.Fatalf("connect timeout should keep its default, got %v", cfg.Session.ConnectTimeout)
	}
	if cfg.Session.Limits.MaxReplyBytes != 1<<20 {
		t.Fatalf("max reply bytes=%d", cfg.Session.Limits.MaxReplyBytes)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	testlog.Start(t)
	t.Setenv(EnvDisplay, ":0")
	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "display", body: `display = "nope"`, want: "display"},
		{name: "level", body: `log_level = "loud"`, want: "log_level"},
		{name: "duration", body: "[session]\nread_timeout = \"soon\"", want: "session.read_timeout"},
		{name: "negative", body: "[session]\nreply_timeout = \"-1s\"", want: "session.reply_timeout"},
		{name: "limit", body: "[session]\nmax_reply_bytes = \"16\"", want: "max_reply_bytes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}
