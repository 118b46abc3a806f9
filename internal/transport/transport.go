// Package transport opens the raw byte streams the server and client
// run over: TCP, or KCP (reliable UDP) through github.com/xtaci/kcp-go.
// Encryption is layered on top, by the secure package on the server
// side and by TLSDialer on the client side.
package transport

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/xtaci/kcp-go/v5"
)

// Network names understood by Listen and NewDialer.
const (
	NetworkTCP = "tcp"
	NetworkKCP = "kcp"
)

// KCP forward error correction shards.
const (
	kcpDataShards   = 10
	kcpParityShards = 3
)

// Dialer opens outbound connections.
type Dialer interface {
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases long-lived resources held by the dialer.
	Close() error
}

// Listen opens a listener on addr for the named network.
func Listen(network, addr string) (net.Listener, error) {
	switch strings.ToLower(network) {
	case NetworkTCP, "":
		return net.Listen("tcp", addr)
	case NetworkKCP:
		ln, err := kcp.ListenWithOptions(addr, nil, kcpDataShards, kcpParityShards)
		if err != nil {
			return nil, err
		}
		return ln, nil
	default:
		return nil, fmt.Errorf("unknown network %q (want tcp or kcp)", network)
	}
}

// NewDialer returns the plain dialer for network.
func NewDialer(network string, opts DialOptions) (Dialer, error) {
	switch strings.ToLower(network) {
	case NetworkTCP, "":
		return &TCPDialer{Timeout: opts.Timeout}, nil
	case NetworkKCP:
		return &KCPDialer{}, nil
	default:
		return nil, fmt.Errorf("unknown network %q (want tcp or kcp)", network)
	}
}
