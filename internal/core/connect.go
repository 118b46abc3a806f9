package core

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/breezestudio/goahead/internal/capability"
	"github.com/breezestudio/goahead/internal/transport"
	"github.com/breezestudio/goahead/util"
)

// ConnectMode dials a goahead server and relays stdin and stdout over
// the connection.  It is the client used to talk to a listener by hand.
type ConnectMode struct {
	Dialer  transport.Dialer
	Network string
	Address string
	Logger  *util.Logger

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ConnectMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *ConnectMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run dials the address and relays until either side closes.  The
// dialer is closed when Run returns.
func (m *ConnectMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	m.Logger.Verbose("connecting to %s (%s)", m.Address, m.Network)

	conn, err := m.Dialer.Dial(ctx, m.Network, m.Address)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", m.Address, err)
	}
	defer conn.Close()

	m.Logger.Verbose("connected to %s", conn.RemoteAddr())
	return capability.Relay{}.Handle(ctx, conn, m.stdin(), m.stdout())
}
