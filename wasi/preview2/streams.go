package preview2

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/wippyai/wasm-host/resource"
)

// MaxReadSize caps a single stream read allocation.
const MaxReadSize = 1 << 20

// DefaultWriteBudget is what CheckWrite reports for unbounded sinks.
const DefaultWriteBudget = 64 * 1024

// StreamError is returned by stream operations once the stream has ended or
// the last operation failed.
type StreamError struct {
	Cause  error
	Closed bool
}

func (e *StreamError) Error() string {
	if e.Closed {
		return "stream closed"
	}
	if e.Cause != nil {
		return "stream error: " + e.Cause.Error()
	}
	return "stream error"
}

func (e *StreamError) Unwrap() error { return e.Cause }

// IsClosed reports whether err marks the end of a stream.
func IsClosed(err error) bool {
	var se *StreamError
	return errors.As(err, &se) && se.Closed
}

// InputStream is a readable byte stream resource.
type InputStream interface {
	resource.Resource
	// Read returns at most n bytes. End of stream is a closed StreamError.
	Read(n uint64) ([]byte, error)
}

// OutputStream is a writable byte stream resource.
type OutputStream interface {
	resource.Resource
	CheckWrite() (uint64, error)
	Write(p []byte) error
	Flush() error
}

// ClosedInputStream is always at end of stream.
type ClosedInputStream struct{}

func (ClosedInputStream) ResourceKind() resource.Kind { return resource.KindInputStream }

func (ClosedInputStream) Read(uint64) ([]byte, error) {
	return nil, &StreamError{Closed: true}
}

// SinkOutputStream accepts and discards everything.
type SinkOutputStream struct{}

func (SinkOutputStream) ResourceKind() resource.Kind  { return resource.KindOutputStream }
func (SinkOutputStream) CheckWrite() (uint64, error) { return DefaultWriteBudget, nil }
func (SinkOutputStream) Write([]byte) error          { return nil }
func (SinkOutputStream) Flush() error                { return nil }

// ReaderInputStream adapts an io.Reader. The reader is not closed by the
// stream; whoever supplied it keeps ownership.
type ReaderInputStream struct {
	r      io.Reader
	mu     sync.Mutex
	closed bool
}

func NewReaderInputStream(r io.Reader) *ReaderInputStream {
	return &ReaderInputStream{r: r}
}

func (s *ReaderInputStream) ResourceKind() resource.Kind { return resource.KindInputStream }

func (s *ReaderInputStream) Read(n uint64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, &StreamError{Closed: true}
	}
	if n == 0 {
		return []byte{}, nil
	}
	if n > MaxReadSize {
		n = MaxReadSize
	}

	buf := make([]byte, n)
	got, err := s.r.Read(buf)
	if err != nil {
		s.closed = true
		if got > 0 && errors.Is(err, io.EOF) {
			return buf[:got], nil
		}
		if errors.Is(err, io.EOF) {
			return nil, &StreamError{Closed: true}
		}
		return nil, &StreamError{Closed: true, Cause: err}
	}
	return buf[:got], nil
}

// WriterOutputStream adapts an io.Writer. Flush calls Flush or Sync on the
// writer when it has one.
type WriterOutputStream struct {
	w      io.Writer
	mu     sync.Mutex
	failed error
}

func NewWriterOutputStream(w io.Writer) *WriterOutputStream {
	return &WriterOutputStream{w: w}
}

func (s *WriterOutputStream) ResourceKind() resource.Kind { return resource.KindOutputStream }

func (s *WriterOutputStream) CheckWrite() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed != nil {
		return 0, &StreamError{Cause: s.failed}
	}
	return DefaultWriteBudget, nil
}

func (s *WriterOutputStream) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed != nil {
		return &StreamError{Cause: s.failed}
	}
	if _, err := s.w.Write(p); err != nil {
		s.failed = err
		return &StreamError{Cause: err}
	}
	return nil
}

func (s *WriterOutputStream) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	switch w := s.w.(type) {
	case interface{ Flush() error }:
		err = w.Flush()
	case interface{ Sync() error }:
		err = w.Sync()
	}
	if err != nil {
		return &StreamError{Cause: err}
	}
	return nil
}

// MemoryOutputStream captures everything written to it.
type MemoryOutputStream struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func NewMemoryOutputStream() *MemoryOutputStream {
	return &MemoryOutputStream{}
}

func (s *MemoryOutputStream) ResourceKind() resource.Kind  { return resource.KindOutputStream }
func (s *MemoryOutputStream) CheckWrite() (uint64, error) { return DefaultWriteBudget, nil }
func (s *MemoryOutputStream) Flush() error                { return nil }

func (s *MemoryOutputStream) Write(p []byte) error {
	s.mu.Lock()
	s.buf.Write(p)
	s.mu.Unlock()
	return nil
}

// Bytes returns a copy of the captured output.
func (s *MemoryOutputStream) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Clone(s.buf.Bytes())
}

func (s *MemoryOutputStream) String() string {
	return string(s.Bytes())
}
