// Package secure provides the secure-session capability beneath the
// line framer: a handshake step (Acceptor) and a non-blocking record
// layer (Session), with TLS, SSH and plaintext backends.
//
// Every backend runs the blocking part of its protocol on a goroutine
// of its own and hands decrypted bytes to the event loop through a
// FIFO, posting a Readable event on the socket whenever new bytes or
// the end of the stream arrive.  Session.Read never blocks.
package secure

import (
	"fmt"
	"strings"

	"github.com/breezestudio/goahead/internal/socket"
)

// Session is the record layer of one connection.
type Session interface {
	// Read copies decrypted bytes into p.  It returns (0, nil) when
	// nothing is available yet and a non-nil error once the stream has
	// failed and every byte received before the failure was read.
	Read(p []byte) (int, error)

	// Write encrypts p into the session's write buffer.
	Write(p []byte) (int, error)

	// Flush pushes buffered writes to the transport.
	Flush() error

	// Close tears the session down and closes the transport.
	Close() error
}

// Acceptor advances or completes the server side of a handshake.
//
// existing is the partial session returned by an earlier call that
// failed with ErrHandshakePending; resuming is true exactly when it is
// non-nil.  A pending handshake returns the partial session together
// with ErrHandshakePending, and the session posts a Readable event when
// the handshake moves on.  Any other error is fatal to the connection.
type Acceptor interface {
	Accept(existing Session, sock *socket.Socket, keys *Keys, resuming bool) (Session, error)
}

// AcceptorFunc adapts a function to [Acceptor].
type AcceptorFunc func(existing Session, sock *socket.Socket, keys *Keys, resuming bool) (Session, error)

func (fn AcceptorFunc) Accept(existing Session, sock *socket.Socket, keys *Keys, resuming bool) (Session, error) {
	return fn(existing, sock, keys, resuming)
}

// Describer is implemented by sessions that can summarise the
// negotiated parameters for logs.
type Describer interface {
	Describe() string
}

// Protocol names accepted by ForName.
const (
	ProtoTLS   = "tls"
	ProtoSSH   = "ssh"
	ProtoPlain = "none"
)

// ForName returns the acceptor for a configured protocol name.
func ForName(name string) (Acceptor, error) {
	switch strings.ToLower(name) {
	case ProtoTLS:
		return TLS{}, nil
	case ProtoSSH:
		return SSH{}, nil
	case ProtoPlain, "plain", "":
		return Plain{}, nil
	default:
		return nil, fmt.Errorf("unknown security protocol %q (want tls, ssh or none)", name)
	}
}

func remoteAddr(sock *socket.Socket) string {
	if a := sock.RemoteAddr(); a != nil {
		return a.String()
	}
	return "unknown"
}
