package fuse2

import (
	"errors"
	"io/fs"
	"syscall"
)

// errnoer and explicitErrnoer are implemented by pkg/errors.Error.
type errnoer interface {
	ErrnoValue() syscall.Errno
}

type explicitErrnoer interface {
	ExplicitErrno() syscall.Errno
}

// Errno returns the error number an error is reported as: an errno set
// explicitly on a structured error, then the wrapped syscall.Errno if
// there is one, the default errno of a structured error, the matching
// errno for the io/fs sentinels, and EIO for everything else. A nil
// error maps to 0.
func Errno(err error) syscall.Errno {
	if err == nil {
		return 0
	}

	var explicit explicitErrnoer
	if errors.As(err, &explicit) {
		if n := explicit.ExplicitErrno(); n != 0 {
			return n
		}
	}

	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 {
		return errno
	}

	var e errnoer
	if errors.As(err, &e) {
		if n := e.ErrnoValue(); n != 0 {
			return n
		}
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return syscall.ENOENT
	case errors.Is(err, fs.ErrExist):
		return syscall.EEXIST
	case errors.Is(err, fs.ErrPermission):
		return syscall.EACCES
	case errors.Is(err, fs.ErrInvalid):
		return syscall.EINVAL
	case errors.Is(err, fs.ErrClosed):
		return syscall.EBADF
	}
	return syscall.EIO
}

// status converts an error into the native return convention.
func status(err error) int {
	return -int(Errno(err))
}

// count converts a byte count result into the native return convention.
func count(n int, err error) int {
	if err != nil {
		return status(err)
	}
	if n < 0 {
		return -int(syscall.EIO)
	}
	return n
}
