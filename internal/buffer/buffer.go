// Package buffer provides the byte sinks that hold a captured response body.
package buffer

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
)

// ErrBufferFull is returned when a write would grow the buffer past its limit.
var ErrBufferFull = errors.New("buffer is full")

// Buffer is a growable, resettable byte sink backed by a pooled byte slice. It has no
// text semantics.
type Buffer struct {
	bb    *bytebufferpool.ByteBuffer
	limit int
}

// New inits a buffer. A negative limit disables the size limit.
func New(limit int) *Buffer {
	return &Buffer{bb: bytebufferpool.Get(), limit: limit}
}

// Write appends p. If the limit would be exceeded nothing is written.
func (b *Buffer) Write(p []byte) (int, error) {
	if b.limit >= 0 && b.Len()+len(p) > b.limit {
		return 0, ErrBufferFull
	}

	return b.buf().Write(p)
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	if b.bb == nil {
		return 0
	}

	return b.bb.Len()
}

// Bytes returns a copy of the buffered bytes.
func (b *Buffer) Bytes() []byte {
	if b.bb == nil {
		return []byte{}
	}

	return append(make([]byte, 0, b.bb.Len()), b.bb.B...)
}

// WriteTo streams the buffered bytes to w without copying them first.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	if b.bb == nil {
		return 0, nil
	}

	n, err := b.bb.WriteTo(w)
	if err != nil {
		return n, errors.Wrap(err, "write buffered bytes")
	}

	return n, nil
}

// Reset empties the buffer but keeps the underlying memory.
func (b *Buffer) Reset() {
	if b.bb != nil {
		b.bb.Reset()
	}
}

// Free returns the memory to the pool. A later write acquires a fresh buffer.
func (b *Buffer) Free() {
	if b.bb == nil {
		return
	}

	bytebufferpool.Put(b.bb)
	b.bb = nil
}

func (b *Buffer) buf() *bytebufferpool.ByteBuffer {
	if b.bb == nil {
		b.bb = bytebufferpool.Get()
	}

	return b.bb
}
