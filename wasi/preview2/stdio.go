package preview2

import (
	"io"
	"os"

	"golang.org/x/term"

	"github.com/wippyai/wasm-host/resource"
)

// IsATTY records whether a stdio stream is attached to a terminal.
type IsATTY uint8

const (
	IsATTYNo IsATTY = iota
	IsATTYYes
)

func (a IsATTY) String() string {
	if a == IsATTYYes {
		return "yes"
	}
	return "no"
}

// StdioInput is the guest-facing record for stdin after build.
type StdioInput struct {
	Handle resource.Handle
	IsATTY IsATTY
}

// StdioOutput is the guest-facing record for stdout or stderr after build.
type StdioOutput struct {
	Handle resource.Handle
	IsATTY IsATTY
}

// Stdin returns an input stream reading the host's standard input.
func Stdin() *ReaderInputStream {
	return NewReaderInputStream(fileOnly{os.Stdin})
}

// Stdout returns an output stream writing to the host's standard output.
func Stdout() *WriterOutputStream {
	return NewWriterOutputStream(fileOnly{os.Stdout})
}

// Stderr returns an output stream writing to the host's standard error.
func Stderr() *WriterOutputStream {
	return NewWriterOutputStream(fileOnly{os.Stderr})
}

// fileOnly hides Close and Sync so streams over process stdio never close
// or fsync them.
type fileOnly struct {
	f *os.File
}

func (f fileOnly) Read(p []byte) (int, error)  { return f.f.Read(p) }
func (f fileOnly) Write(p []byte) (int, error) { return f.f.Write(p) }

var (
	_ io.Reader = fileOnly{}
	_ io.Writer = fileOnly{}
)

func detectTTY(f *os.File) IsATTY {
	if term.IsTerminal(int(f.Fd())) {
		return IsATTYYes
	}
	return IsATTYNo
}
