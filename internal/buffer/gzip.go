package buffer

import (
	"bytes"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"
)

// ErrFinished is returned when writing to a sink whose stream was already finished.
var ErrFinished = errors.New("gzip stream already finished")

// GzipSink compresses everything written to it into a Buffer.
type GzipSink struct {
	buf      *Buffer
	zw       *gzip.Writer
	finished bool
}

// NewGzipSink starts a gzip stream that writes into buf.
func NewGzipSink(buf *Buffer, level int) (*GzipSink, error) {
	zw, err := gzip.NewWriterLevel(buf, level)
	if err != nil {
		return nil, errors.Wrapf(err, "init gzip writer with level %d", level)
	}

	return &GzipSink{buf: buf, zw: zw}, nil
}

// Write compresses p into the underlying buffer.
func (s *GzipSink) Write(p []byte) (int, error) {
	if s.finished {
		return 0, ErrFinished
	}

	n, err := s.zw.Write(p)
	if err != nil {
		return n, errors.Wrap(err, "gzip write")
	}

	return n, nil
}

// Finish flushes pending compressed bytes and writes the gzip trailer. It must be called
// before the buffer is read. Calling it more than once is a no-op.
func (s *GzipSink) Finish() error {
	if s.finished {
		return nil
	}

	s.finished = true
	if err := s.zw.Close(); err != nil {
		return errors.Wrap(err, "finish gzip stream")
	}

	return nil
}

// Finished reports whether the trailer has been written.
func (s *GzipSink) Finished() bool { return s.finished }

// Reset empties the buffer and starts a new gzip stream.
func (s *GzipSink) Reset() {
	s.buf.Reset()
	s.zw.Reset(s.buf)
	s.finished = false
}

// Len returns the number of compressed bytes in the buffer.
func (s *GzipSink) Len() int { return s.buf.Len() }

// Decompress inflates a complete gzip stream.
func Decompress(p []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(p))
	if err != nil {
		return nil, errors.Wrap(err, "init gzip reader")
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.Wrap(err, "inflate")
	}

	return out, nil
}
