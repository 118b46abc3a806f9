package config

import (
	"strconv"
	"time"

	ini "github.com/vaughan0/go-ini"

	ncerr "github.com/breezestudio/goahead/internal/errors"
)

// LoadFile overlays an INI file onto cfg.  Keys that are absent leave
// the current value alone.
//
//	[server]
//	host = 0.0.0.0
//	port = 4433
//	network = tcp
//	security = tls
//	echo = yes
//	verbose = 1
//	metrics_interval = 30s
//
//	[tls]
//	cert = server.crt
//	key = server.key
//
//	[ssh]
//	host_key = host_ed25519
//	password = hunter2
//	prompt_passphrase = no
//
//	[limits]
//	handshake_timeout = 10s
//	idle_timeout = 60s
//	breaker_failures = 20
//	breaker_reset = 10s
func LoadFile(path string, cfg *Config) error {
	f, err := ini.LoadFile(path)
	if err != nil {
		return &ncerr.ConfigError{Field: "config", Value: path, Message: err.Error()}
	}
	l := fileLoader{f: f}

	l.str("server", "host", &cfg.Host)
	l.port("server", "port", &cfg.Port)
	l.str("server", "network", &cfg.Network)
	l.str("server", "security", &cfg.Security)
	l.boolean("server", "echo", &cfg.Echo)
	l.integer("server", "verbose", &cfg.Verbose)
	l.duration("server", "metrics_interval", &cfg.MetricsInterval)

	l.str("tls", "cert", &cfg.CertFile)
	l.str("tls", "key", &cfg.KeyFile)

	l.str("ssh", "host_key", &cfg.HostKeyFile)
	l.str("ssh", "password", &cfg.SSHPassword)
	l.boolean("ssh", "prompt_passphrase", &cfg.PromptPassphrase)

	l.duration("limits", "handshake_timeout", &cfg.HandshakeTimeout)
	l.duration("limits", "idle_timeout", &cfg.IdleTimeout)
	l.integer("limits", "breaker_failures", &cfg.BreakerFailures)
	l.duration("limits", "breaker_reset", &cfg.BreakerReset)

	return l.err
}

// fileLoader keeps the first conversion error so the field setters can
// be called unconditionally.
type fileLoader struct {
	f   ini.File
	err error
}

func (l *fileLoader) get(section, key string) (string, bool) {
	if l.err != nil {
		return "", false
	}
	return l.f.Get(section, key)
}

func (l *fileLoader) fail(section, key, v, msg string) {
	l.err = &ncerr.ConfigError{Field: section + "." + key, Value: v, Message: msg}
}

func (l *fileLoader) str(section, key string, dst *string) {
	if v, ok := l.get(section, key); ok {
		*dst = v
	}
}

func (l *fileLoader) boolean(section, key string, dst *bool) {
	if v, ok := l.get(section, key); ok {
		*dst = parseBool(v)
	}
}

func (l *fileLoader) integer(section, key string, dst *int) {
	v, ok := l.get(section, key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		l.fail(section, key, v, "not a non-negative number")
		return
	}
	*dst = n
}

func (l *fileLoader) port(section, key string, dst *int) {
	v, ok := l.get(section, key)
	if !ok {
		return
	}
	n, err := ParsePort(v)
	if err != nil {
		l.fail(section, key, v, err.Error())
		return
	}
	*dst = n
}

func (l *fileLoader) duration(section, key string, dst *time.Duration) {
	v, ok := l.get(section, key)
	if !ok {
		return
	}
	d, err := ParseDuration(v)
	if err != nil {
		l.fail(section, key, v, err.Error())
		return
	}
	*dst = d
}
