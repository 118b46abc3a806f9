package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// Shared by the flag definitions, the INI loader and the environment
// loader.

const (
	DefaultHost     = "0.0.0.0"
	DefaultPort     = 4433
	DefaultNetwork  = "tcp"
	DefaultSecurity = "tls"

	// DefaultHandshakeTimeout bounds the time between accept and an
	// established session.
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultIdleTimeout closes connections with no readable event for
	// this long.
	DefaultIdleTimeout = 60 * time.Second

	// DefaultBreakerFailures consecutive failed handshakes make the
	// server refuse new connections for DefaultBreakerReset.
	DefaultBreakerFailures = 20
	DefaultBreakerReset    = 10 * time.Second

	// DefaultDialTimeout applies to connect mode.
	DefaultDialTimeout = 30 * time.Second
)
