package secure

import (
	"bufio"
	"fmt"
	"io"

	"golang.org/x/crypto/ssh"

	ncerr "github.com/breezestudio/goahead/internal/errors"
	"github.com/breezestudio/goahead/internal/socket"
)

// SSH is the golang.org/x/crypto/ssh backend.  The handshake is
// complete once the client has authenticated and opened its first
// "session" channel; that channel carries the line stream.
type SSH struct{}

type sshSession struct {
	st   stream
	sock *socket.Socket
	addr string

	done chan struct{} // closed when the handshake has finished
	herr error
	sc   *ssh.ServerConn
	ch   ssh.Channel
	w    *bufio.Writer
	user string
}

// Accept starts the SSH server handshake on the first call and reports
// its progress on later calls.
func (SSH) Accept(existing Session, sock *socket.Socket, keys *Keys, resuming bool) (Session, error) {
	if resuming {
		s, ok := existing.(*sshSession)
		if !ok {
			return nil, fmt.Errorf("ssh: cannot resume a %T session", existing)
		}
		return s.progress()
	}

	addr := remoteAddr(sock)
	cfg, err := keys.SSHConfig()
	if err != nil {
		return nil, ncerr.WrapHandshake(ProtoSSH, addr, err)
	}

	s := &sshSession{sock: sock, addr: addr, done: make(chan struct{})}
	s.st.sock = sock

	go s.run(cfg)
	return s.progress()
}

func (s *sshSession) run(cfg *ssh.ServerConfig) {
	sc, chans, reqs, err := ssh.NewServerConn(s.sock, cfg)
	if err != nil {
		s.finish(err)
		return
	}
	go ssh.DiscardRequests(reqs)

	ch, err := acceptSessionChannel(chans)
	if err != nil {
		sc.Close()
		s.finish(err)
		return
	}

	s.sc = sc
	s.ch = ch
	s.w = bufio.NewWriter(ch)
	s.user = sc.User()
	s.finish(nil)
	s.st.pump(ch)
}

func (s *sshSession) finish(err error) {
	s.herr = err
	close(s.done)
	s.sock.Notify(socket.Readable)
}

// acceptSessionChannel accepts the first "session" channel and rejects
// everything else, including later session channels.
func acceptSessionChannel(chans <-chan ssh.NewChannel) (ssh.Channel, error) {
	for nc := range chans {
		if nc.ChannelType() != "session" {
			nc.Reject(ssh.UnknownChannelType, "only session channels are served") //nolint:errcheck
			continue
		}
		ch, reqs, err := nc.Accept()
		if err != nil {
			return nil, fmt.Errorf("accepting session channel: %w", err)
		}
		go serveChannelRequests(reqs)
		go func() {
			for extra := range chans {
				extra.Reject(ssh.ResourceShortage, "one session per connection") //nolint:errcheck
			}
		}()
		return ch, nil
	}
	return nil, fmt.Errorf("connection closed before a session channel was opened: %w", io.EOF)
}

// serveChannelRequests accepts the requests an interactive client sends
// before it starts writing lines.
func serveChannelRequests(reqs <-chan *ssh.Request) {
	for req := range reqs {
		switch req.Type {
		case "shell", "exec", "pty-req", "env", "window-change":
			req.Reply(true, nil) //nolint:errcheck
		default:
			req.Reply(false, nil) //nolint:errcheck
		}
	}
}

func (s *sshSession) progress() (Session, error) {
	select {
	case <-s.done:
		if s.herr != nil {
			return nil, ncerr.WrapHandshake(ProtoSSH, s.addr, s.herr)
		}
		return s, nil
	default:
		return s, ncerr.ErrHandshakePending
	}
}

func (s *sshSession) Read(p []byte) (int, error) { return s.st.Read(p) }

func (s *sshSession) Write(p []byte) (int, error) {
	if !s.established() {
		return 0, ncerr.ErrNotEstablished
	}
	return s.w.Write(p)
}

func (s *sshSession) Flush() error {
	if !s.established() {
		return ncerr.ErrNotEstablished
	}
	return s.w.Flush()
}

// Close closes the channel and the connection, or just the transport
// when the handshake never finished.
func (s *sshSession) Close() error {
	if !s.established() {
		return s.sock.Close()
	}
	s.ch.Close()
	return s.sc.Close()
}

func (s *sshSession) established() bool {
	select {
	case <-s.done:
		return s.herr == nil
	default:
		return false
	}
}

func (s *sshSession) Describe() string {
	if !s.established() {
		return "ssh (handshaking)"
	}
	return fmt.Sprintf("ssh user=%s client=%s", s.user, s.sc.ClientVersion())
}
