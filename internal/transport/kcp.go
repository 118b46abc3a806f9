package transport

import (
	"context"
	"net"

	"github.com/xtaci/kcp-go/v5"
)

// KCPDialer opens KCP sessions over UDP.
type KCPDialer struct{}

// Dial connects to address.  KCP has no connection setup, so the call
// returns as soon as the local UDP socket exists; ctx is only checked
// before dialing.
func (d *KCPDialer) Dial(ctx context.Context, _ string, address string) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sess, err := kcp.DialWithOptions(address, nil, kcpDataShards, kcpParityShards)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Close is a no-op.
func (d *KCPDialer) Close() error { return nil }
