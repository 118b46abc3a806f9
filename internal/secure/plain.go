package secure

import (
	"bufio"

	"github.com/breezestudio/goahead/internal/socket"
)

// Plain is the no-encryption backend.  Its handshake completes on the
// first call; it exists for local debugging and for tests of the
// layers above.
type Plain struct{}

type plainSession struct {
	st   stream
	sock *socket.Socket
	w    *bufio.Writer
}

// Accept starts reading the raw socket.
func (Plain) Accept(existing Session, sock *socket.Socket, _ *Keys, _ bool) (Session, error) {
	if existing != nil {
		return existing, nil
	}
	s := &plainSession{sock: sock, w: bufio.NewWriter(sock)}
	s.st.sock = sock
	go s.st.pump(sock)
	return s, nil
}

func (s *plainSession) Read(p []byte) (int, error)  { return s.st.Read(p) }
func (s *plainSession) Write(p []byte) (int, error) { return s.w.Write(p) }
func (s *plainSession) Flush() error                { return s.w.Flush() }
func (s *plainSession) Close() error                { return s.sock.Close() }
func (s *plainSession) Describe() string            { return "plaintext" }
