package snapshot

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"hash"
	"hash/crc32"
	"io"

	"github.com/wippyai/wasm-host/errors"
)

// Persisted form:
//
//	"WHSN" version:u8
//	count:uvarint { len:uvarint bytes }   memories
//	count:uvarint { len:uvarint bytes }   per-instance globals
//	crc32:u32le                           IEEE, over everything above
const (
	codecVersion = 1

	maxBuffers   = 1 << 20
	maxBufferLen = 1 << 32
)

var codecMagic = [4]byte{'W', 'H', 'S', 'N'}

// Encode writes s to w.
func (s *Snapshot) Encode(w io.Writer) error {
	crc := crc32.NewIEEE()
	bw := bufio.NewWriter(io.MultiWriter(w, crc))

	bw.Write(codecMagic[:])
	bw.WriteByte(codecVersion)
	writeBuffers(bw, s.memories)
	writeBuffers(bw, s.globals)
	if err := bw.Flush(); err != nil {
		return errors.Wrap(errors.PhaseSnapshot, errors.KindInvalidData, err, "write snapshot")
	}

	var sum [4]byte
	binary.LittleEndian.PutUint32(sum[:], crc.Sum32())
	if _, err := w.Write(sum[:]); err != nil {
		return errors.Wrap(errors.PhaseSnapshot, errors.KindInvalidData, err, "write checksum")
	}
	return nil
}

// bufio.Writer keeps the first error and reports it from Flush.
func writeBuffers(w *bufio.Writer, bufs [][]byte) {
	var n [binary.MaxVarintLen64]byte
	w.Write(n[:binary.PutUvarint(n[:], uint64(len(bufs)))])
	for _, b := range bufs {
		w.Write(n[:binary.PutUvarint(n[:], uint64(len(b)))])
		w.Write(b)
	}
}

type decoder struct {
	r   *bufio.Reader
	crc hash.Hash32
}

func (d *decoder) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	d.crc.Write(p[:n])
	return n, err
}

func (d *decoder) ReadByte() (byte, error) {
	b, err := d.r.ReadByte()
	if err == nil {
		d.crc.Write([]byte{b})
	}
	return b, err
}

// Decode reads a snapshot written by Encode.
func Decode(r io.Reader) (*Snapshot, error) {
	d := &decoder{r: bufio.NewReader(r), crc: crc32.NewIEEE()}

	var head [5]byte
	if _, err := io.ReadFull(d, head[:]); err != nil {
		return nil, decodeError("read header", err)
	}
	if !bytes.Equal(head[:4], codecMagic[:]) {
		return nil, errors.InvalidData(errors.PhaseSnapshot, "not a snapshot: bad magic")
	}
	if head[4] != codecVersion {
		return nil, errors.New(errors.PhaseSnapshot, errors.KindInvalidData).
			Resource("version").
			Expected("%d", codecVersion).
			Actual("%d", head[4]).
			Build()
	}

	memories, err := readBuffers(d, "memories")
	if err != nil {
		return nil, err
	}
	globals, err := readBuffers(d, "globals")
	if err != nil {
		return nil, err
	}
	for _, g := range globals {
		if len(g)%GlobalSize != 0 {
			return nil, errors.InvalidData(errors.PhaseSnapshot, "global buffer is not a whole number of globals")
		}
	}

	want := d.crc.Sum32()
	var sum [4]byte
	if _, err := io.ReadFull(d.r, sum[:]); err != nil {
		return nil, decodeError("read checksum", err)
	}
	if got := binary.LittleEndian.Uint32(sum[:]); got != want {
		return nil, errors.New(errors.PhaseSnapshot, errors.KindInvalidData).
			Resource("checksum").
			Expected("%08x", want).
			Actual("%08x", got).
			Build()
	}
	return &Snapshot{memories: memories, globals: globals}, nil
}

func readBuffers(d *decoder, what string) ([][]byte, error) {
	count, err := binary.ReadUvarint(d)
	if err != nil {
		return nil, decodeError("read "+what+" count", err)
	}
	if count > maxBuffers {
		return nil, errors.InvalidData(errors.PhaseSnapshot, what+" count out of range")
	}
	bufs := make([][]byte, 0, count)
	for range count {
		n, err := binary.ReadUvarint(d)
		if err != nil {
			return nil, decodeError("read "+what+" length", err)
		}
		if n > maxBufferLen {
			return nil, errors.InvalidData(errors.PhaseSnapshot, what+" length out of range")
		}
		// n is untrusted: the buffer grows only as bytes arrive.
		var b bytes.Buffer
		if _, err := io.CopyN(&b, d, int64(n)); err != nil {
			return nil, decodeError("read "+what, err)
		}
		bufs = append(bufs, b.Bytes())
	}
	return bufs, nil
}

func decodeError(detail string, err error) error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return errors.Wrap(errors.PhaseSnapshot, errors.KindInvalidData, err, detail)
}
