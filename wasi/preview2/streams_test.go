package preview2

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	wherrors "github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/resource"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

type flushCounter struct {
	bytes.Buffer
	flushes int
}

func (f *flushCounter) Flush() error {
	f.flushes++
	return nil
}

func TestReaderInputStream(t *testing.T) {
	s := NewReaderInputStream(strings.NewReader("hello world"))
	require.Equal(t, resource.KindInputStream, s.ResourceKind())

	got, err := s.Read(5)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))

	got, err = s.Read(0)
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = s.Read(100)
	require.NoError(t, err)
	require.Equal(t, " world", string(got))

	_, err = s.Read(1)
	require.True(t, IsClosed(err))
	_, err = s.Read(1)
	require.True(t, IsClosed(err))
}

func TestReaderInputStream_Error(t *testing.T) {
	s := NewReaderInputStream(iotestErrReader{})
	_, err := s.Read(4)
	require.True(t, IsClosed(err))
	require.ErrorContains(t, err, "stream closed")

	var se *StreamError
	require.True(t, errors.As(err, &se))
	require.EqualError(t, se.Cause, "boom")
}

type iotestErrReader struct{}

func (iotestErrReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestWriterOutputStream(t *testing.T) {
	w := &flushCounter{}
	s := NewWriterOutputStream(w)

	budget, err := s.CheckWrite()
	require.NoError(t, err)
	require.Equal(t, uint64(DefaultWriteBudget), budget)

	require.NoError(t, s.Write([]byte("abc")))
	require.NoError(t, s.Flush())
	require.Equal(t, "abc", w.String())
	require.Equal(t, 1, w.flushes)
}

func TestWriterOutputStream_FailureSticks(t *testing.T) {
	s := NewWriterOutputStream(failingWriter{})
	require.ErrorContains(t, s.Write([]byte("x")), "disk full")

	_, err := s.CheckWrite()
	require.Error(t, err)
	require.False(t, IsClosed(err))
}

func TestMemoryOutputStream(t *testing.T) {
	s := NewMemoryOutputStream()
	require.NoError(t, s.Write([]byte("a")))
	require.NoError(t, s.Write([]byte("b")))

	b := s.Bytes()
	b[0] = 'z'
	require.Equal(t, "ab", s.String())
}

func TestSinkAndClosed(t *testing.T) {
	require.NoError(t, SinkOutputStream{}.Write(bytes.Repeat([]byte{1}, 1<<16)))
	require.NoError(t, SinkOutputStream{}.Flush())

	_, err := ClosedInputStream{}.Read(1)
	require.True(t, IsClosed(err))
	require.False(t, IsClosed(errors.New("other")))
}

func TestDir_Perms(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("alpha"), 0o644))

	ro, err := OpenDir(root, DirPermsRead, FilePermsRead)
	require.NoError(t, err)
	defer ro.Drop()
	require.Equal(t, "read", ro.Perms().String())
	require.Equal(t, "read", ro.FilePerms().String())

	f, err := ro.OpenFile("a.txt", false, false)
	require.NoError(t, err)
	data, err := f.ReadAt(16, 0)
	require.NoError(t, err)
	require.Equal(t, "alpha", string(data))
	require.NoError(t, f.Close())

	_, err = ro.OpenFile("a.txt", true, false)
	require.ErrorContains(t, err, "not writable")
	_, err = ro.OpenFile("new.txt", false, true)
	require.ErrorContains(t, err, "not mutable")
	_, err = ro.OpenFile("missing.txt", false, false)
	require.Error(t, err)

	entries, err := ro.ReadDir("")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "a.txt", entries[0].Name())

	rw, err := OpenDir(root, DirPermsAll, FilePermsAll)
	require.NoError(t, err)
	defer rw.Drop()
	require.Equal(t, "read|mutate", rw.Perms().String())

	nf, err := rw.OpenFile("new.txt", true, true)
	require.NoError(t, err)
	_, err = nf.WriteAt([]byte("beta"), 0)
	require.NoError(t, err)
	require.NoError(t, nf.Close())

	content, err := os.ReadFile(filepath.Join(root, "new.txt"))
	require.NoError(t, err)
	require.Equal(t, "beta", string(content))
}

func TestDir_Escape(t *testing.T) {
	d, err := OpenDir(t.TempDir(), DirPermsAll, FilePermsAll)
	require.NoError(t, err)
	defer d.Drop()

	_, err = d.OpenFile("../outside.txt", true, true)
	require.Error(t, err)
	_, err = d.OpenFile("/etc/passwd", false, false)
	require.Error(t, err)
}

func TestDir_NoPerms(t *testing.T) {
	d, err := OpenDir(t.TempDir(), 0, 0)
	require.NoError(t, err)
	defer d.Drop()

	require.Equal(t, "none", d.Perms().String())
	_, err = d.ReadDir(".")
	require.ErrorContains(t, err, "not readable")
}

func TestOpenDir_Missing(t *testing.T) {
	_, err := OpenDir(filepath.Join(t.TempDir(), "nope"), DirPermsRead, FilePermsRead)
	require.Error(t, err)
}

func TestTimerPollable(t *testing.T) {
	p := NewTimerPollable(time.Now().Add(-time.Second))
	require.True(t, p.Ready())
	require.NoError(t, p.Block(t.Context()))

	far := NewTimerPollable(time.Now().Add(time.Hour))
	require.False(t, far.Ready())
	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, far.Block(ctx))
}

func TestInsecureRNG_Deterministic(t *testing.T) {
	a := NewInsecureRNG(Seed128{Hi: 1, Lo: 2})
	b := NewInsecureRNG(Seed128{Hi: 1, Lo: 2})

	require.Equal(t, a.Uint64(), b.Uint64())

	ba := make([]byte, 13)
	bb := make([]byte, 13)
	_, _ = a.Read(ba)
	_, _ = b.Read(bb)
	require.Equal(t, ba, bb)

	s := Seed128{Hi: 0xAB, Lo: 0xCD}
	require.Equal(t, "00000000000000ab00000000000000cd", s.String())
}

func TestDir_CheckHostPath(t *testing.T) {
	parent := t.TempDir()
	host := filepath.Join(parent, "d")
	require.NoError(t, os.Mkdir(host, 0o755))

	d, err := OpenDir(host, DirPermsAll, FilePermsAll)
	require.NoError(t, err)
	defer d.Drop()
	require.NoError(t, d.CheckHostPath())

	require.NoError(t, os.Rename(host, filepath.Join(parent, "e")))
	require.Error(t, d.CheckHostPath())

	require.NoError(t, os.Mkdir(host, 0o755))
	err = d.CheckHostPath()
	require.ErrorIs(t, err, wherrors.ErrAccessDenied)
}
