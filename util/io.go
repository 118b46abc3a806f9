package util

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
)

// DefaultBufSize is the scratch buffer size for network reads.  It
// holds one full TLS record (16 KiB) plus overhead.
const DefaultBufSize = 32 * 1024

// closeWriter is implemented by *net.TCPConn and *tls.Conn.
type closeWriter interface {
	CloseWrite() error
}

// BidirectionalCopy shuffles data between a network connection and a
// reader/writer pair (typically stdin/stdout) until the remote side
// reaches EOF or the context is cancelled.
func BidirectionalCopy(ctx context.Context, conn net.Conn, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	// network → writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := io.Copy(w, conn)
		errCh <- err
		cancel()
	}()

	// reader → network
	wg.Add(1)
	go func() {
		defer wg.Done()
		buf := GetBuf()
		defer PutBuf(buf)
		_, err := io.CopyBuffer(conn, r, *buf)
		// Half-close so the server sees end-of-stream and flushes any
		// dangling partial line, but keep reading its replies.
		if cw, ok := conn.(closeWriter); ok {
			cw.CloseWrite() //nolint:errcheck
		}
		errCh <- err
		if err != nil {
			cancel()
		}
	}()

	<-ctx.Done()
	conn.Close() // unblock any pending reads/writes
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil && !isHarmless(err) {
			return err
		}
	}
	return nil
}

// isHarmless returns true for errors that are expected during shutdown.
func isHarmless(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	// Writing to a tls.Conn after CloseWrite; crypto/tls does not
	// export this error.
	if strings.Contains(err.Error(), "tls: protocol is shutdown") {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}
