package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeINI(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "goahead.ini")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadFile(t *testing.T) {
	path := writeINI(t, `
[server]
port = 9443
network = kcp
security = tls
echo = yes
verbose = 2
metrics_interval = 30s

[tls]
cert = /srv/tls/server.crt
key = /srv/tls/server.key

[ssh]
prompt_passphrase = true

[limits]
handshake_timeout = 3
idle_timeout = 5m
breaker_failures = 7
breaker_reset = 1m
`)

	cfg := Default()
	if err := LoadFile(path, cfg); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Host != DefaultHost {
		t.Errorf("absent key changed Host to %q", cfg.Host)
	}
	if cfg.Port != 9443 || cfg.Network != "kcp" || !cfg.Echo || cfg.Verbose != 2 {
		t.Errorf("server section not applied: %+v", cfg)
	}
	if cfg.CertFile != "/srv/tls/server.crt" || cfg.KeyFile != "/srv/tls/server.key" {
		t.Errorf("tls section not applied: %+v", cfg)
	}
	if !cfg.PromptPassphrase {
		t.Error("ssh.prompt_passphrase not applied")
	}
	if cfg.HandshakeTimeout != 3*time.Second || cfg.IdleTimeout != 5*time.Minute {
		t.Errorf("timeouts = %v / %v", cfg.HandshakeTimeout, cfg.IdleTimeout)
	}
	if cfg.BreakerFailures != 7 || cfg.BreakerReset != time.Minute {
		t.Errorf("breaker = %d / %v", cfg.BreakerFailures, cfg.BreakerReset)
	}
	if cfg.MetricsInterval != 30*time.Second {
		t.Errorf("MetricsInterval = %v", cfg.MetricsInterval)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantSub string
	}{
		{"bad port", "[server]\nport = http\n", "server.port"},
		{"bad duration", "[limits]\nidle_timeout = forever\n", "limits.idle_timeout"},
		{"negative failures", "[limits]\nbreaker_failures = -1\n", "limits.breaker_failures"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := LoadFile(writeINI(t, tt.body), Default())
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q should name %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	err := LoadFile(filepath.Join(t.TempDir(), "nope.ini"), Default())
	if err == nil {
		t.Fatal("expected error for a missing file")
	}
}
