package wasmbin

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrOverflow is returned when a LEB128 value exceeds its bit width.
var ErrOverflow = errors.New("leb128: overflow")

// ErrUnexpectedEnd is returned when the input ends inside a value.
var ErrUnexpectedEnd = errors.New("unexpected end of input")

// reader decodes the primitive encodings of the binary format from a byte
// slice, tracking the offset for error messages.
type reader struct {
	data []byte
	pos  int
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) eof() bool { return r.pos >= len(r.data) }

func (r *reader) errorf(format string, args ...any) error {
	return fmt.Errorf("offset %d: %s", r.pos, fmt.Sprintf(format, args...))
}

func (r *reader) wrap(err error) error {
	return fmt.Errorf("offset %d: %w", r.pos, err)
}

func (r *reader) byte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, r.wrap(ErrUnexpectedEnd)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || n > len(r.data)-r.pos {
		return nil, r.wrap(ErrUnexpectedEnd)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) skip(n int) error {
	_, err := r.bytes(n)
	return err
}

func (r *reader) u32() (uint32, error) {
	var result uint32
	var shift uint
	for {
		b, err := r.byte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, r.wrap(ErrOverflow)
		}
	}
}

func (r *reader) u64() (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.byte()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 70 {
			return 0, r.wrap(ErrOverflow)
		}
	}
}

// skipLEB skips a LEB128 value of either signedness.
func (r *reader) skipLEB() error {
	for i := 0; i < 10; i++ {
		b, err := r.byte()
		if err != nil {
			return err
		}
		if b&0x80 == 0 {
			return nil
		}
	}
	return r.wrap(ErrOverflow)
}

func (r *reader) name() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", r.errorf("name is not valid UTF-8")
	}
	return string(b), nil
}
