package core

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/breezestudio/goahead/internal/capability"
	"github.com/breezestudio/goahead/internal/secure"
	"github.com/breezestudio/goahead/internal/transport"
	"github.com/breezestudio/goahead/util"
)

func TestConnectMode_TCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// Server: accept one conn, send greeting, close.
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("hello from server\n")) //nolint:errcheck
	}()

	output := &bytes.Buffer{}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	mode := &ConnectMode{
		Dialer:  &transport.TCPDialer{Timeout: 2 * time.Second},
		Network: "tcp",
		Address: ln.Addr().String(),
		Logger:  util.NewLogger(0),
		Stdin:   strings.NewReader(""),
		Stdout:  output,
	}
	require.NoError(t, mode.Run(ctx))
	require.Equal(t, "hello from server\n", output.String())
}

func TestConnectMode_DialError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	mode := &ConnectMode{
		Dialer:  &transport.TCPDialer{Timeout: time.Second},
		Network: "tcp",
		Address: addr,
		Stdin:   strings.NewReader(""),
		Stdout:  &bytes.Buffer{},
	}
	err = mode.Run(context.Background())
	require.ErrorContains(t, err, "connect to "+addr)
}

// TestConnectMode_EchoOverTLS runs both modes against each other: the
// client's stdin comes back on its stdout through a TLS listener.
func TestConnectMode_EchoOverTLS(t *testing.T) {
	cert, _, _ := testCertFiles(t, t.TempDir())
	server := &ListenMode{
		Acceptor:   secure.TLS{},
		Keys:       secure.NewKeys(secure.ServerTLSConfig(cert), nil),
		NewHandler: func() capability.LineHandler { return capability.NewEcho() },
	}
	addr, stop := serve(t, server)
	defer stop() //nolint:errcheck

	output := &bytes.Buffer{}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := &ConnectMode{
		Dialer:  transport.NewTLSDialer(&transport.TCPDialer{Timeout: time.Second}, "127.0.0.1", true),
		Network: "tcp",
		Address: addr,
		Stdin:   strings.NewReader("one\r\ntwo\nthree"),
		Stdout:  output,
	}
	require.NoError(t, client.Run(ctx))
	require.Equal(t, "one\ntwo\nthree\n", output.String())
}
