// Package config defines the runtime configuration of goahead and the
// loaders that fill it from an INI file and the environment.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ncerr "github.com/breezestudio/goahead/internal/errors"
	"github.com/breezestudio/goahead/util"
)

// Config holds every tuneable of one goahead process.
type Config struct {
	// ── Listener ─────────────────────────────────────────────────────
	Host    string
	Port    int    // 0 picks a free port
	Network string // "tcp" or "kcp"

	// ── Secure session ───────────────────────────────────────────────
	Security         string // "tls", "ssh" or "none"
	CertFile         string
	KeyFile          string
	HostKeyFile      string
	SSHPassword      string
	PromptPassphrase bool

	// ── Limits ───────────────────────────────────────────────────────
	HandshakeTimeout time.Duration
	IdleTimeout      time.Duration
	BreakerFailures  int
	BreakerReset     time.Duration
	MetricsInterval  time.Duration // 0 disables periodic snapshots

	// ── Client mode ──────────────────────────────────────────────────
	Connect  string // host:port; empty means listen
	Insecure bool   // skip certificate verification in connect mode

	// ── Output ───────────────────────────────────────────────────────
	Echo       bool // send every line back to its peer
	Verbose    int
	ConfigFile string
}

// Default returns a Config with every default applied.
func Default() *Config {
	return &Config{
		Host:             DefaultHost,
		Port:             DefaultPort,
		Network:          DefaultNetwork,
		Security:         DefaultSecurity,
		HandshakeTimeout: DefaultHandshakeTimeout,
		IdleTimeout:      DefaultIdleTimeout,
		BreakerFailures:  DefaultBreakerFailures,
		BreakerReset:     DefaultBreakerReset,
	}
}

// Address returns the listen address.
func (c *Config) Address() string {
	return util.FormatAddr(c.Host, c.Port)
}

// ListenMode reports whether the process serves connections rather
// than dialing one.
func (c *Config) ListenMode() bool { return c.Connect == "" }

// ParsePort accepts a decimal port in 0-65535.
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range 0-65535", port)
	}
	return port, nil
}

// ParseDuration accepts a Go duration ("90s", "1m30s") or a bare
// number of seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.  The
// returned error is a *errors.ConfigError.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Network) {
	case "tcp", "kcp":
	default:
		return &ncerr.ConfigError{
			Field: "network", Value: c.Network,
			Message: "unknown network", Hint: "use tcp or kcp",
		}
	}

	security := strings.ToLower(c.Security)
	switch security {
	case "tls", "ssh", "none":
	default:
		return &ncerr.ConfigError{
			Field: "security", Value: c.Security,
			Message: "unknown protocol", Hint: "use tls, ssh or none",
		}
	}

	if c.HandshakeTimeout < 0 {
		return &ncerr.ConfigError{Field: "handshake-timeout", Value: c.HandshakeTimeout, Message: "must not be negative"}
	}
	if c.IdleTimeout < 0 {
		return &ncerr.ConfigError{Field: "idle-timeout", Value: c.IdleTimeout, Message: "must not be negative"}
	}
	if c.BreakerFailures < 0 {
		return &ncerr.ConfigError{Field: "breaker-failures", Value: c.BreakerFailures, Message: "must not be negative"}
	}

	if !c.ListenMode() {
		return c.validateConnect(security)
	}

	if c.Port < 0 || c.Port > 65535 {
		return &ncerr.ConfigError{Field: "port", Value: c.Port, Message: "out of range 0-65535"}
	}
	switch security {
	case "tls":
		if c.CertFile == "" || c.KeyFile == "" {
			return &ncerr.ConfigError{
				Field:   "cert",
				Message: "tls needs a certificate and a key",
				Hint:    "pass --cert and --key, or --security=none for plaintext",
			}
		}
	case "ssh":
		if c.HostKeyFile == "" {
			return &ncerr.ConfigError{
				Field:   "host-key",
				Message: "ssh needs a host key",
				Hint:    "generate one with: ssh-keygen -t ed25519 -f host_key",
			}
		}
	}
	return nil
}

func (c *Config) validateConnect(security string) error {
	if _, _, err := util.SplitAddr(c.Connect); err != nil {
		return &ncerr.ConfigError{
			Field: "connect", Value: c.Connect,
			Message: err.Error(), Hint: "use host:port",
		}
	}
	if security == "ssh" {
		return &ncerr.ConfigError{
			Field: "security", Value: c.Security,
			Message: "connect mode speaks tls or none",
			Hint:    "use an ssh client to reach an ssh listener",
		}
	}
	return nil
}
