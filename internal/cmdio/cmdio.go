// Package cmdio models the endpoints a command's standard streams can be
// wired to: an inherited process stream, a pipe end, an open file, or the
// null device. Every Handle has exactly one owner at a time; Dup shares
// the underlying file behind a reference count so that two logical
// streams can point at one sink without double-closing it.
package cmdio

import (
	"errors"
	"io"
	"os"
	"sync/atomic"
)

// Kind identifies what a Handle is backed by.
type Kind int

const (
	// KindInherit is a stream inherited from the current process
	// (os.Stdin, os.Stdout or os.Stderr). Closing it is a no-op.
	KindInherit Kind = iota
	// KindPipe is one end of an OS pipe.
	KindPipe
	// KindFile is an opened regular file.
	KindFile
	// KindNull is the null device.
	KindNull
)

// Handle is a single stream endpoint. The zero value is not usable;
// construct handles with the New* functions.
type Handle struct {
	file   *os.File
	kind   Kind
	refs   *atomic.Int32
	closed bool
}

var errClosed = errors.New("cmdio: handle already closed")

func newHandle(f *os.File, kind Kind) *Handle {
	refs := new(atomic.Int32)
	refs.Store(1)
	return &Handle{file: f, kind: kind, refs: refs}
}

// NewInherit wraps a process-level stream. The handle never closes f.
func NewInherit(f *os.File) *Handle {
	return newHandle(f, KindInherit)
}

// NewFile takes ownership of an opened file.
func NewFile(f *os.File) *Handle {
	return newHandle(f, KindFile)
}

// NewPipe allocates an OS pipe and returns its read and write ends.
func NewPipe() (r, w *Handle, err error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, nil, err
	}
	return newHandle(pr, KindPipe), newHandle(pw, KindPipe), nil
}

// NewNull opens the null device for reading or writing.
func NewNull(write bool) (*Handle, error) {
	flag := os.O_RDONLY
	if write {
		flag = os.O_WRONLY
	}
	f, err := os.OpenFile(os.DevNull, flag, 0)
	if err != nil {
		return nil, err
	}
	return newHandle(f, KindNull), nil
}

// Kind reports what the handle is backed by.
func (h *Handle) Kind() Kind { return h.kind }

// File exposes the underlying file for process wiring. os/exec duplicates
// the descriptor on spawn, so the caller may Close the handle afterwards.
func (h *Handle) File() *os.File { return h.file }

// Dup returns a second handle referencing the same underlying file.
// The file is released only once, when the last reference is closed.
func (h *Handle) Dup() *Handle {
	h.refs.Add(1)
	return &Handle{file: h.file, kind: h.kind, refs: h.refs}
}

// Close releases this reference. The underlying file is closed when no
// references remain, except for inherited streams which are never closed.
// Closing an already-closed handle is a no-op.
func (h *Handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	if h.refs.Add(-1) > 0 {
		return nil
	}
	if h.kind == KindInherit {
		return nil
	}
	return h.file.Close()
}

// Read implements io.Reader.
func (h *Handle) Read(p []byte) (int, error) {
	if h.closed {
		return 0, errClosed
	}
	return h.file.Read(p)
}

// Write implements io.Writer.
func (h *Handle) Write(p []byte) (int, error) {
	if h.closed {
		return 0, errClosed
	}
	return h.file.Write(p)
}

var (
	_ io.ReadCloser  = (*Handle)(nil)
	_ io.WriteCloser = (*Handle)(nil)
)
