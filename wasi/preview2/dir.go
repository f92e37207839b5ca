package preview2

import (
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/resource"
)

// DirPerms are the operations permitted on a preopened directory itself.
type DirPerms uint8

const (
	DirPermsRead DirPerms = 1 << iota
	DirPermsMutate

	DirPermsAll = DirPermsRead | DirPermsMutate
)

func (p DirPerms) Has(want DirPerms) bool { return p&want == want }

func (p DirPerms) String() string {
	return permString(p.Has(DirPermsRead), p.Has(DirPermsMutate), "read", "mutate")
}

// FilePerms are the operations permitted on files opened beneath a
// preopened directory.
type FilePerms uint8

const (
	FilePermsRead FilePerms = 1 << iota
	FilePermsWrite

	FilePermsAll = FilePermsRead | FilePermsWrite
)

func (p FilePerms) Has(want FilePerms) bool { return p&want == want }

func (p FilePerms) String() string {
	return permString(p.Has(FilePermsRead), p.Has(FilePermsWrite), "read", "write")
}

func permString(a, b bool, an, bn string) string {
	var parts []string
	if a {
		parts = append(parts, an)
	}
	if b {
		parts = append(parts, bn)
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Dir is a directory capability. Every path resolved through it stays
// inside its root.
type Dir struct {
	root      *os.Root
	perms     DirPerms
	filePerms FilePerms
	closeOnce sync.Once
}

// NewDir wraps an already opened root. The Dir takes ownership of root.
func NewDir(root *os.Root, perms DirPerms, filePerms FilePerms) *Dir {
	return &Dir{root: root, perms: perms, filePerms: filePerms}
}

// OpenDir opens hostPath as a directory capability.
func OpenDir(hostPath string, perms DirPerms, filePerms FilePerms) (*Dir, error) {
	root, err := os.OpenRoot(hostPath)
	if err != nil {
		return nil, errors.New(errors.PhaseBuild, errors.KindNotFound).
			Resource(hostPath).
			Detail("open directory").
			Cause(err).
			Build()
	}
	return NewDir(root, perms, filePerms), nil
}

func (d *Dir) ResourceKind() resource.Kind { return resource.KindDirectory }

func (d *Dir) Perms() DirPerms      { return d.perms }
func (d *Dir) FilePerms() FilePerms { return d.filePerms }
func (d *Dir) Root() *os.Root       { return d.root }

// Name returns the host path the directory was opened from.
func (d *Dir) Name() string { return d.root.Name() }

// CheckHostPath reports an error unless the host path the directory was
// opened from still names the same directory.
func (d *Dir) CheckHostPath() error {
	granted, err := d.root.Stat(".")
	if err != nil {
		return errors.Wrap(errors.PhaseHost, errors.KindClosed, err, "stat granted directory")
	}
	current, err := os.Stat(d.Name())
	if err != nil || !os.SameFile(granted, current) {
		return errors.New(errors.PhaseHost, errors.KindAccessDenied).
			Resource(d.Name()).
			Detail("host path no longer names the granted directory").
			Cause(err).
			Build()
	}
	return nil
}

// Drop closes the underlying root.
func (d *Dir) Drop() {
	d.closeOnce.Do(func() { _ = d.root.Close() })
}

// ReadDir lists the entries of the directory at name, relative to the root.
func (d *Dir) ReadDir(name string) ([]fs.DirEntry, error) {
	if !d.perms.Has(DirPermsRead) {
		return nil, errors.AccessDenied(errors.PhaseHost, name, "directory not readable")
	}
	if name == "" {
		name = "."
	}
	entries, err := fs.ReadDir(d.root.FS(), name)
	if err != nil {
		return nil, errors.Context(errors.PhaseHost, name, err)
	}
	return entries, nil
}

// OpenFile opens path beneath the directory. Reading needs FilePermsRead,
// writing needs FilePermsWrite and creating a file needs DirPermsMutate.
func (d *Dir) OpenFile(path string, write, create bool) (*File, error) {
	flag := os.O_RDONLY
	if write {
		if !d.filePerms.Has(FilePermsWrite) {
			return nil, errors.AccessDenied(errors.PhaseHost, path, "file not writable")
		}
		flag = os.O_RDWR
		if !d.filePerms.Has(FilePermsRead) {
			flag = os.O_WRONLY
		}
	} else if !d.filePerms.Has(FilePermsRead) {
		return nil, errors.AccessDenied(errors.PhaseHost, path, "file not readable")
	}
	if create {
		if !d.perms.Has(DirPermsMutate) {
			return nil, errors.AccessDenied(errors.PhaseHost, path, "directory not mutable")
		}
		flag |= os.O_CREATE
	}

	f, err := d.root.OpenFile(path, flag, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.PhaseHost, errors.KindNotFound).Resource(path).Cause(err).Build()
		}
		return nil, errors.Context(errors.PhaseHost, path, err)
	}
	return &File{f: f, path: path, perms: d.filePerms}, nil
}

// File is an open file beneath a Dir.
type File struct {
	f     *os.File
	path  string
	perms FilePerms
}

func (f *File) ResourceKind() resource.Kind { return resource.KindFile }

func (f *File) Path() string     { return f.path }
func (f *File) Perms() FilePerms { return f.perms }
func (f *File) Close() error     { return f.f.Close() }

func (f *File) Stat() (fs.FileInfo, error) {
	return f.f.Stat()
}

// ReadAt reads up to n bytes at offset. A short read at end of file is not an
// error.
func (f *File) ReadAt(n uint64, offset int64) ([]byte, error) {
	if n > MaxReadSize {
		n = MaxReadSize
	}
	buf := make([]byte, n)
	got, err := f.f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, errors.Context(errors.PhaseHost, f.path, err)
	}
	return buf[:got], nil
}

// WriteAt writes p at offset.
func (f *File) WriteAt(p []byte, offset int64) (int, error) {
	n, err := f.f.WriteAt(p, offset)
	if err != nil {
		return n, errors.Context(errors.PhaseHost, f.path, err)
	}
	return n, nil
}
