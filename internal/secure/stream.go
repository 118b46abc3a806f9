package secure

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/breezestudio/goahead/internal/socket"
	"github.com/breezestudio/goahead/util"
)

// stream is the FIFO between a backend's reader goroutine and the
// event loop.
type stream struct {
	sock *socket.Socket

	mu  sync.Mutex
	buf bytes.Buffer
	err error
}

// pump copies r into the FIFO until r fails.  io.EOF marks the socket
// at end-of-stream; any other error is kept for Read.
func (st *stream) pump(r io.Reader) {
	scratch := util.GetBuf()
	defer util.PutBuf(scratch)

	for {
		n, err := r.Read(*scratch)
		if n > 0 {
			st.mu.Lock()
			st.buf.Write((*scratch)[:n])
			st.mu.Unlock()
			st.sock.Notify(socket.Readable)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				st.sock.SetEOF()
			} else {
				st.fail(err)
			}
			st.sock.Notify(socket.Readable)
			return
		}
	}
}

// fail records the first stream error.
func (st *stream) fail(err error) {
	st.mu.Lock()
	if st.err == nil {
		st.err = err
	}
	st.mu.Unlock()
}

// Read drains buffered bytes first, then reports the stream error.
func (st *stream) Read(p []byte) (int, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.buf.Len() > 0 {
		return st.buf.Read(p)
	}
	if st.err != nil {
		return 0, st.err
	}
	return 0, nil
}
