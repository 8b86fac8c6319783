package engine

import (
	"os"
	"path/filepath"
)

// file wraps an *os.File with the length bookkeeping and safety-check
// convention the rest of this package relies on: every read/write goes
// through an explicit position, never the file's implicit cursor.
type file struct {
	handle     *os.File
	name       string
	length     int64
	readOnly   bool
	isTemp     bool
}

// createFile creates a new file, refusing to overwrite an existing one
// when safety is true.
func createFile(name string, safety bool) (*file, *Error) {
	if safety {
		if _, err := os.Stat(name); err == nil {
			return nil, newError(KindFileCreate, "%s: file already exists", name)
		}
	}
	h, err := os.OpenFile(name, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return nil, newError(KindFileCreate, "%s: %v", name, err)
	}
	return &file{handle: h, name: name}, nil
}

// openFile opens an existing file read-write, or read-only when readOnly
// is true.
func openFile(name string, readOnly bool) (*file, *Error) {
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}
	h, err := os.OpenFile(name, flag, 0644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newError(KindFileNotFound, "%s", name)
		}
		return nil, newError(KindFileRead, "%s: %v", name, err)
	}
	info, err := h.Stat()
	if err != nil {
		h.Close()
		return nil, newError(KindFileRead, "%s: %v", name, err)
	}
	return &file{handle: h, name: name, length: info.Size(), readOnly: readOnly}, nil
}

func (f *file) close() *Error {
	if f == nil || f.handle == nil {
		return nil
	}
	err := f.handle.Close()
	f.handle = nil
	if f.isTemp {
		os.Remove(f.name)
	}
	if err != nil {
		return newError(KindFileWrite, "%s: %v", f.name, err)
	}
	return nil
}

func (f *file) readAt(pos int64, buf []byte) (int, *Error) {
	n, err := f.handle.ReadAt(buf, pos)
	if err != nil && n == 0 {
		return 0, newError(KindFileRead, "%s: %v", f.name, err)
	}
	return n, nil
}

func (f *file) writeAt(pos int64, buf []byte) *Error {
	if f.readOnly {
		return newError(KindFileWrite, "%s: file is read-only", f.name)
	}
	n, err := f.handle.WriteAt(buf, pos)
	if err != nil || n != len(buf) {
		return newError(KindFileWrite, "%s: %v", f.name, err)
	}
	if pos+int64(len(buf)) > f.length {
		f.length = pos + int64(len(buf))
	}
	return nil
}

func (f *file) flush() *Error {
	if err := f.handle.Sync(); err != nil {
		return newError(KindFileWrite, "%s: %v", f.name, err)
	}
	return nil
}

func (f *file) truncate(size int64) *Error {
	if f.readOnly {
		return newError(KindFileWrite, "%s: file is read-only", f.name)
	}
	if err := f.handle.Truncate(size); err != nil {
		return newError(KindFileWrite, "%s: %v", f.name, err)
	}
	f.length = size
	return nil
}

// withExtension appends ext to base when base has no extension of its
// own, the default for DBF and XDX paths given without one.
func withExtension(base, ext string) string {
	if filepath.Ext(base) == "" {
		return base + "." + ext
	}
	return base
}
