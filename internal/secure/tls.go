package secure

import (
	"bufio"
	"crypto/tls"
	"fmt"

	ncerr "github.com/breezestudio/goahead/internal/errors"
	"github.com/breezestudio/goahead/internal/socket"
)

// TLS is the crypto/tls backend.  The handshake runs on the session's
// goroutine; Accept reports ErrHandshakePending until it has finished.
type TLS struct{}

type tlsSession struct {
	st   stream
	conn *tls.Conn
	w    *bufio.Writer
	addr string

	done chan struct{} // closed when the handshake has finished
	herr error         // handshake result, valid after done
}

// Accept starts the handshake on the first call and reports its
// progress on later calls.
func (TLS) Accept(existing Session, sock *socket.Socket, keys *Keys, resuming bool) (Session, error) {
	if resuming {
		s, ok := existing.(*tlsSession)
		if !ok {
			return nil, fmt.Errorf("tls: cannot resume a %T session", existing)
		}
		return s.progress()
	}

	addr := remoteAddr(sock)
	cfg, err := keys.TLSConfig()
	if err != nil {
		return nil, ncerr.WrapHandshake(ProtoTLS, addr, err)
	}

	s := &tlsSession{
		conn: tls.Server(sock, cfg),
		addr: addr,
		done: make(chan struct{}),
	}
	s.st.sock = sock
	s.w = bufio.NewWriter(s.conn)

	go s.run()
	return s.progress()
}

func (s *tlsSession) run() {
	s.herr = s.conn.Handshake()
	close(s.done)
	s.st.sock.Notify(socket.Readable)
	if s.herr != nil {
		return
	}
	s.st.pump(s.conn)
}

func (s *tlsSession) progress() (Session, error) {
	select {
	case <-s.done:
		if s.herr != nil {
			return nil, ncerr.WrapHandshake(ProtoTLS, s.addr, s.herr)
		}
		return s, nil
	default:
		return s, ncerr.ErrHandshakePending
	}
}

func (s *tlsSession) Read(p []byte) (int, error)  { return s.st.Read(p) }
func (s *tlsSession) Write(p []byte) (int, error) { return s.w.Write(p) }
func (s *tlsSession) Flush() error                { return s.w.Flush() }

// Close sends close_notify when the handshake has completed and closes
// the transport.
func (s *tlsSession) Close() error {
	return s.conn.Close()
}

func (s *tlsSession) Describe() string {
	select {
	case <-s.done:
	default:
		return "tls (handshaking)"
	}
	cs := s.conn.ConnectionState()
	d := tls.VersionName(cs.Version) + " " + tls.CipherSuiteName(cs.CipherSuite)
	if cs.ServerName != "" {
		d += " sni=" + cs.ServerName
	}
	return d
}
