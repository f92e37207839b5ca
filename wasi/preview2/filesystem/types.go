package filesystem

import (
	"context"

	"github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/resource"
	"github.com/wippyai/wasm-host/wasi/preview2"
)

// OpenFlags select how OpenAt opens a path.
type OpenFlags uint8

const (
	OpenWrite OpenFlags = 1 << iota
	OpenCreate
)

// DescriptorStat is the subset of descriptor-stat the host reports.
type DescriptorStat struct {
	Size  uint64
	IsDir bool
}

type TypesHost struct {
	view preview2.View
}

func NewTypesHost(view preview2.View) *TypesHost {
	return &TypesHost{view: view}
}

func (h *TypesHost) Namespace() string {
	return "wasi:filesystem/types@0.2.3"
}

func (h *TypesHost) dir(self resource.Handle) (*preview2.Dir, error) {
	return resource.GetAs[*preview2.Dir](h.view.Table(), self, resource.KindDirectory)
}

func (h *TypesHost) file(self resource.Handle) (*preview2.File, error) {
	return resource.GetAs[*preview2.File](h.view.Table(), self, resource.KindFile)
}

// OpenAt opens path beneath the directory descriptor self and returns a new
// file descriptor.
func (h *TypesHost) OpenAt(_ context.Context, self resource.Handle, path string, flags OpenFlags) (resource.Handle, error) {
	dir, err := h.dir(self)
	if err != nil {
		return 0, err
	}
	f, err := dir.OpenFile(path, flags&OpenWrite != 0, flags&OpenCreate != 0)
	if err != nil {
		return 0, err
	}
	handle, err := h.view.Table().Push(f)
	if err != nil {
		_ = f.Close()
		return 0, err
	}
	return handle, nil
}

func (h *TypesHost) Read(_ context.Context, self resource.Handle, length, offset uint64) ([]byte, bool, error) {
	f, err := h.file(self)
	if err != nil {
		return nil, false, err
	}
	if !f.Perms().Has(preview2.FilePermsRead) {
		return nil, false, errors.AccessDenied(errors.PhaseHost, f.Path(), "file not readable")
	}
	data, err := f.ReadAt(length, int64(offset))
	if err != nil {
		return nil, false, err
	}
	return data, uint64(len(data)) < length, nil
}

func (h *TypesHost) Write(_ context.Context, self resource.Handle, buf []byte, offset uint64) (uint64, error) {
	f, err := h.file(self)
	if err != nil {
		return 0, err
	}
	if !f.Perms().Has(preview2.FilePermsWrite) {
		return 0, errors.AccessDenied(errors.PhaseHost, f.Path(), "file not writable")
	}
	n, err := f.WriteAt(buf, int64(offset))
	return uint64(n), err
}

// Stat accepts either a directory or a file descriptor.
func (h *TypesHost) Stat(_ context.Context, self resource.Handle) (DescriptorStat, error) {
	if dir, err := h.dir(self); err == nil {
		info, err := dir.Root().Stat(".")
		if err != nil {
			return DescriptorStat{}, errors.Context(errors.PhaseHost, dir.Name(), err)
		}
		return DescriptorStat{Size: uint64(info.Size()), IsDir: true}, nil
	}
	f, err := h.file(self)
	if err != nil {
		return DescriptorStat{}, err
	}
	info, err := f.Stat()
	if err != nil {
		return DescriptorStat{}, errors.Context(errors.PhaseHost, f.Path(), err)
	}
	return DescriptorStat{Size: uint64(info.Size()), IsDir: info.IsDir()}, nil
}

// ReadDirectory lists entry names of the directory descriptor self.
func (h *TypesHost) ReadDirectory(_ context.Context, self resource.Handle) ([]string, error) {
	dir, err := h.dir(self)
	if err != nil {
		return nil, err
	}
	entries, err := dir.ReadDir(".")
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

// DropDescriptor removes a file descriptor and closes the file. Preopened
// directories stay owned by the table.
func (h *TypesHost) DropDescriptor(_ context.Context, self resource.Handle) error {
	f, err := resource.RemoveAs[*preview2.File](h.view.Table(), self, resource.KindFile)
	if err != nil {
		return err
	}
	return f.Close()
}
