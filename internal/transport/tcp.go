package transport

import (
	"context"
	"net"
	"time"
)

// DialOptions carries the settings shared by the plain dialers.
type DialOptions struct {
	Timeout time.Duration
}

// TCPDialer opens TCP connections.
type TCPDialer struct {
	Timeout time.Duration
}

// Dial connects to address.  network is passed to net.Dialer, so
// "tcp4" and "tcp6" work too.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	if network == "" || network == NetworkTCP {
		network = "tcp"
	}
	dialer := net.Dialer{Timeout: d.Timeout}
	return dialer.DialContext(ctx, network, address)
}

// Close is a no-op.
func (d *TCPDialer) Close() error { return nil }
