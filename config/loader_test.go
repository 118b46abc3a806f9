package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv_Strings(t *testing.T) {
	t.Setenv("GOAHEAD_HOST", "127.0.0.1")
	t.Setenv("GOAHEAD_NETWORK", "kcp")
	t.Setenv("GOAHEAD_SECURITY", "ssh")
	t.Setenv("GOAHEAD_HOST_KEY", "/etc/goahead/host_key")
	t.Setenv("GOAHEAD_SSH_PASSWORD", "s3cret")

	cfg := Default()
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Host != "127.0.0.1" || cfg.Network != "kcp" || cfg.Security != "ssh" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.HostKeyFile != "/etc/goahead/host_key" || cfg.SSHPassword != "s3cret" {
		t.Errorf("ssh settings not loaded: %+v", cfg)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("unset variables must keep defaults, port = %d", cfg.Port)
	}
}

func TestLoadFromEnv_Numbers(t *testing.T) {
	t.Setenv("GOAHEAD_PORT", "8443")
	t.Setenv("GOAHEAD_VERBOSE", "2")
	t.Setenv("GOAHEAD_HANDSHAKE_TIMEOUT", "5")
	t.Setenv("GOAHEAD_IDLE_TIMEOUT", "2m")
	t.Setenv("GOAHEAD_BREAKER_FAILURES", "0")

	cfg := Default()
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 8443 {
		t.Errorf("Port = %d, want 8443", cfg.Port)
	}
	if cfg.Verbose != 2 {
		t.Errorf("Verbose = %d, want 2", cfg.Verbose)
	}
	if cfg.HandshakeTimeout != 5*time.Second {
		t.Errorf("HandshakeTimeout = %v, want 5s", cfg.HandshakeTimeout)
	}
	if cfg.IdleTimeout != 2*time.Minute {
		t.Errorf("IdleTimeout = %v, want 2m", cfg.IdleTimeout)
	}
	if cfg.BreakerFailures != 0 {
		t.Errorf("BreakerFailures = %d, want 0", cfg.BreakerFailures)
	}
}

func TestLoadFromEnv_Booleans(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"1", true}, {"true", true}, {"YES", true}, {"on", true},
		{"0", false}, {"no", false}, {"nope", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("GOAHEAD_ECHO", tt.value)
			cfg := &Config{Echo: !tt.want}
			if err := LoadFromEnv(cfg); err != nil {
				t.Fatal(err)
			}
			if cfg.Echo != tt.want {
				t.Errorf("GOAHEAD_ECHO=%s → %v, want %v", tt.value, cfg.Echo, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct{ key, value string }{
		{"GOAHEAD_PORT", "99999"},
		{"GOAHEAD_VERBOSE", "loud"},
		{"GOAHEAD_BREAKER_RESET", "later"},
		{"GOAHEAD_BREAKER_FAILURES", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if err := LoadFromEnv(Default()); err == nil {
				t.Errorf("%s=%s should fail", tt.key, tt.value)
			}
		})
	}
}
