// Package linebuf holds the bytes of the line currently being
// assembled on one connection.
//
// Storage comes from a shared bytebufferpool so that idle connections
// holding short partial lines stay cheap.  Bytes are append-only
// between flushes and are never reordered.
package linebuf

import "github.com/valyala/bytebufferpool"

// Buffer is a growable, flushable byte queue.  It is not safe for
// concurrent use; the connection that owns it touches it only from the
// event loop.
type Buffer struct {
	bb *bytebufferpool.ByteBuffer
}

// New returns an empty Buffer backed by pooled storage.
func New() *Buffer {
	return &Buffer{bb: bytebufferpool.Get()}
}

// AppendByte adds one byte to the end of the buffer.
func (b *Buffer) AppendByte(c byte) {
	if b.bb == nil {
		return
	}
	// ByteBuffer.WriteByte never fails.
	_ = b.bb.WriteByte(c)
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	if b.bb == nil {
		return 0
	}
	return b.bb.Len()
}

// Bytes returns a view of the buffered bytes.  The view is only valid
// until the next AppendByte, Flush or Release.
func (b *Buffer) Bytes() []byte {
	if b.bb == nil {
		return nil
	}
	return b.bb.B
}

// String returns an owned copy of the buffered bytes.
func (b *Buffer) String() string {
	if b.bb == nil {
		return ""
	}
	return string(b.bb.B)
}

// Flush discards all buffered bytes.  Flushing an empty buffer is a
// no-op.
func (b *Buffer) Flush() {
	if b.bb == nil {
		return
	}
	b.bb.Reset()
}

// Release returns the storage to the pool.  The Buffer stays usable as
// an always-empty buffer, so a late call from a released connection is
// harmless.
func (b *Buffer) Release() {
	if b.bb == nil {
		return
	}
	bytebufferpool.Put(b.bb)
	b.bb = nil
}

// Released reports whether Release has been called.
func (b *Buffer) Released() bool { return b.bb == nil }
