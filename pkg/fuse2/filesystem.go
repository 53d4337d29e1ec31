package fuse2

import (
	"syscall"
	"time"
)

// ErrNotSupported is returned by the FilesystemBase defaults for
// operations that have no meaningful default.
var ErrNotSupported error = syscall.ENOSYS

// Filesystem is the set of operations every mounted file system answers.
// Paths are absolute, rooted at "/", and passed exactly as the kernel
// sent them.
//
// Optional operations are expressed as separate interfaces (Opener,
// Writer, Creator, ...). Embed FilesystemBase to get the default
// behavior for all of them.
//
// Unless the implementation also implements Concurrent, calls are
// serialized by the adapter.
type Filesystem interface {
	Getattr(req *Request, path string) (FileAttr, error)
	// Readdir pushes entries into fill starting after offset off and
	// returns nil once fill rejects an entry or the listing is complete.
	Readdir(req *Request, path string, off uint64, fill DirFiller, fi FileInfo) error
	// Read fills buf from offset off and returns the number of bytes
	// read. Reads past the end of the file return 0.
	Read(req *Request, path string, off uint64, buf []byte, fi FileInfo) (int, error)
}

type Opener interface {
	Open(req *Request, path string, fi *FileInfo) error
}

type Releaser interface {
	Release(req *Request, path string, fi FileInfo) error
}

type DirOpener interface {
	OpenDir(req *Request, path string, fi *FileInfo) error
}

type DirReleaser interface {
	ReleaseDir(req *Request, path string, fi FileInfo) error
}

type Writer interface {
	Write(req *Request, path string, off uint64, data []byte, fi FileInfo) (int, error)
}

type Creator interface {
	Create(req *Request, path string, mode uint32, fi *FileInfo) error
}

type Unlinker interface {
	Unlink(req *Request, path string) error
}

type Rmdirer interface {
	Rmdir(req *Request, path string) error
}

type Mkdirer interface {
	Mkdir(req *Request, path string, mode uint32) error
}

type Mknoder interface {
	Mknod(req *Request, path string, mode uint32, dev uint64) error
}

// Chowner changes ownership. A value of ^uint32(0) leaves the id unchanged.
type Chowner interface {
	Chown(req *Request, path string, uid, gid uint32) error
}

type Chmoder interface {
	Chmod(req *Request, path string, mode uint32) error
}

type Utimenser interface {
	Utimens(req *Request, path string, atime, mtime time.Time) error
}

type Linker interface {
	Link(req *Request, oldpath, newpath string) error
}

type Symlinker interface {
	Symlink(req *Request, target, linkpath string) error
}

type Readlinker interface {
	Readlink(req *Request, path string) (string, error)
}

type Renamer interface {
	Rename(req *Request, oldpath, newpath string) error
}

type Truncater interface {
	Truncate(req *Request, path string, size uint64) error
}

type Statfser interface {
	Statfs(req *Request, path string) (Statfs, error)
}

type Flusher interface {
	Flush(req *Request, path string, fi FileInfo) error
}

type Fsyncer interface {
	Fsync(req *Request, path string, datasync bool, fi FileInfo) error
}

type DirFsyncer interface {
	FsyncDir(req *Request, path string, datasync bool, fi FileInfo) error
}

// Accesser checks permissions; mask is a combination of R_OK, W_OK and X_OK.
type Accesser interface {
	Access(req *Request, path string, mask uint32) error
}

// Initer is called once before any other operation.
type Initer interface {
	Init(req *Request)
}

// Destroyer is called once after the last operation.
type Destroyer interface {
	Destroy()
}

// Concurrent marks a Filesystem that synchronizes its own state. The
// adapter then dispatches calls without holding its per-mount lock.
type Concurrent interface {
	Concurrent()
}

// FilesystemBase implements every optional operation. Open, OpenDir,
// Release, ReleaseDir, Flush, Init and Destroy succeed without doing
// anything and Statfs reports all-zero statistics; everything else
// returns ErrNotSupported.
type FilesystemBase struct{}

func (FilesystemBase) Open(*Request, string, *FileInfo) error      { return nil }
func (FilesystemBase) Release(*Request, string, FileInfo) error    { return nil }
func (FilesystemBase) OpenDir(*Request, string, *FileInfo) error   { return nil }
func (FilesystemBase) ReleaseDir(*Request, string, FileInfo) error { return nil }
func (FilesystemBase) Flush(*Request, string, FileInfo) error      { return nil }
func (FilesystemBase) Init(*Request)                               {}
func (FilesystemBase) Destroy()                                    {}
func (FilesystemBase) Statfs(*Request, string) (Statfs, error)     { return Statfs{}, nil }

func (FilesystemBase) Unlink(*Request, string) error                   { return ErrNotSupported }
func (FilesystemBase) Rmdir(*Request, string) error                    { return ErrNotSupported }
func (FilesystemBase) Mkdir(*Request, string, uint32) error            { return ErrNotSupported }
func (FilesystemBase) Mknod(*Request, string, uint32, uint64) error    { return ErrNotSupported }
func (FilesystemBase) Chown(*Request, string, uint32, uint32) error    { return ErrNotSupported }
func (FilesystemBase) Chmod(*Request, string, uint32) error            { return ErrNotSupported }
func (FilesystemBase) Link(*Request, string, string) error             { return ErrNotSupported }
func (FilesystemBase) Symlink(*Request, string, string) error          { return ErrNotSupported }
func (FilesystemBase) Rename(*Request, string, string) error           { return ErrNotSupported }
func (FilesystemBase) Truncate(*Request, string, uint64) error         { return ErrNotSupported }
func (FilesystemBase) Access(*Request, string, uint32) error           { return ErrNotSupported }
func (FilesystemBase) Fsync(*Request, string, bool, FileInfo) error    { return ErrNotSupported }
func (FilesystemBase) FsyncDir(*Request, string, bool, FileInfo) error { return ErrNotSupported }
func (FilesystemBase) Readlink(*Request, string) (string, error)       { return "", ErrNotSupported }

func (FilesystemBase) Create(*Request, string, uint32, *FileInfo) error {
	return ErrNotSupported
}

func (FilesystemBase) Write(*Request, string, uint64, []byte, FileInfo) (int, error) {
	return 0, ErrNotSupported
}

func (FilesystemBase) Utimens(*Request, string, time.Time, time.Time) error {
	return ErrNotSupported
}
