package conn

// Status is the outcome of a ReadLine call.
type Status int

const (
	// StatusOK means a complete line was returned.  It may be empty.
	StatusOK Status = iota
	// StatusWouldBlock means no complete line is available yet.
	StatusWouldBlock
	// StatusEOF means the peer ended the stream and nothing is left.
	StatusEOF
	// StatusError means the session failed; the error is returned.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWouldBlock:
		return "would block"
	case StatusEOF:
		return "eof"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ReadLine returns the next newline-terminated line without its
// terminator.  Carriage returns are dropped wherever they appear.  A
// partial line is kept across calls until its newline arrives, and a
// partial line followed by end-of-stream is returned as if it had been
// terminated.
//
// On StatusError the partial line stays buffered.
func (c *Conn) ReadLine() (string, Status, error) {
	if err := c.usable(); err != nil {
		return "", StatusError, err
	}

	for {
		// EOF is sampled before the read: the session marks EOF only
		// after its last bytes are queued, so EOF plus an empty read
		// means the stream is drained.
		eof := c.sock.EOF()
		n, err := c.session.Read(c.one[:])
		if n == 0 && err != nil {
			c.metrics.RecordError(err.Error())
			return "", StatusError, err
		}

		b := c.one[0]
		if n == 0 {
			switch {
			case !eof:
				return "", StatusWouldBlock, nil
			case c.line.Len() == 0:
				return "", StatusEOF, nil
			}
			b = '\n'
		} else {
			c.metrics.BytesReceived(1)
		}

		switch b {
		case '\r':
		case '\n':
			line := c.line.String()
			c.line.Flush()
			c.metrics.LineRead()
			return line, StatusOK, nil
		default:
			c.line.AppendByte(b)
		}
	}
}
