package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (cmd/root.go)
//   2. Environment variables  (this file)
//   3. INI file  (file.go)
//   4. Defaults  (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"

	ncerr "github.com/breezestudio/goahead/internal/errors"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported variable uses the GOAHEAD_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive); durations accept Go
// syntax or whole seconds.

// LoadFromEnv overlays environment variables onto cfg.  Unset or empty
// variables leave the current value alone.
func LoadFromEnv(cfg *Config) error {
	envString("GOAHEAD_HOST", &cfg.Host)
	envString("GOAHEAD_NETWORK", &cfg.Network)
	envString("GOAHEAD_SECURITY", &cfg.Security)
	envString("GOAHEAD_CERT", &cfg.CertFile)
	envString("GOAHEAD_KEY", &cfg.KeyFile)
	envString("GOAHEAD_HOST_KEY", &cfg.HostKeyFile)
	envString("GOAHEAD_SSH_PASSWORD", &cfg.SSHPassword)
	envString("GOAHEAD_CONNECT", &cfg.Connect)
	envBool("GOAHEAD_PROMPT_PASSPHRASE", &cfg.PromptPassphrase)
	envBool("GOAHEAD_INSECURE", &cfg.Insecure)
	envBool("GOAHEAD_ECHO", &cfg.Echo)

	if v := os.Getenv("GOAHEAD_PORT"); v != "" {
		port, err := ParsePort(v)
		if err != nil {
			return &ncerr.ConfigError{Field: "port", Value: v, Message: err.Error(), Hint: "set GOAHEAD_PORT to 0-65535"}
		}
		cfg.Port = port
	}
	if v := os.Getenv("GOAHEAD_VERBOSE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return &ncerr.ConfigError{Field: "verbose", Value: v, Message: "not a non-negative number"}
		}
		cfg.Verbose = n
	}

	if v := os.Getenv("GOAHEAD_BREAKER_FAILURES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return &ncerr.ConfigError{Field: "breaker-failures", Value: v, Message: "not a non-negative number", Hint: "0 disables the breaker"}
		}
		cfg.BreakerFailures = n
	}

	for key, f := range map[string]durationField{
		"GOAHEAD_HANDSHAKE_TIMEOUT": {"handshake-timeout", &cfg.HandshakeTimeout},
		"GOAHEAD_IDLE_TIMEOUT":      {"idle-timeout", &cfg.IdleTimeout},
		"GOAHEAD_BREAKER_RESET":     {"breaker-reset", &cfg.BreakerReset},
		"GOAHEAD_METRICS_INTERVAL":  {"metrics-interval", &cfg.MetricsInterval},
	} {
		if v := os.Getenv(key); v != "" {
			if err := f.set(v); err != nil {
				return err
			}
		}
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = parseBool(v)
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

type durationField struct {
	name string
	dst  *time.Duration
}

func (f durationField) set(v string) error {
	d, err := ParseDuration(v)
	if err != nil {
		return &ncerr.ConfigError{Field: f.name, Value: v, Message: err.Error(), Hint: `use Go syntax such as "30s" or whole seconds`}
	}
	*f.dst = d
	return nil
}
