package fuse2

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/objectfs/fuse2go/internal/native"
	"github.com/objectfs/fuse2go/pkg/errors"
	"github.com/objectfs/fuse2go/pkg/utils"
)

type lifecycle int32

const (
	stateUnmounted lifecycle = iota
	stateInitializing
	stateServing
	stateDestroying
	stateDestroyed
)

func (s lifecycle) String() string {
	switch s {
	case stateUnmounted:
		return "unmounted"
	case stateInitializing:
		return "initializing"
	case stateServing:
		return "serving"
	case stateDestroying:
		return "destroying"
	case stateDestroyed:
		return "destroyed"
	}
	return fmt.Sprintf("lifecycle(%d)", int32(s))
}

type nopLocker struct{}

func (nopLocker) Lock()   {}
func (nopLocker) Unlock() {}

// mount is the per-mount private data handed to the runtime.
type mount struct {
	id      string
	fs      Filesystem
	log     *utils.StructuredLogger
	metrics MetricsRecorder
	debug   bool

	// life is held shared by operations and exclusively by init and
	// destroy, so the hooks never overlap an operation.
	life  sync.RWMutex
	state atomic.Int32

	// guard serializes calls into fs unless it is Concurrent.
	guard sync.Locker
}

func newMount(id string, fsys Filesystem, log *utils.StructuredLogger, metrics MetricsRecorder, verbose bool) *mount {
	m := &mount{
		id:      id,
		fs:      fsys,
		log:     log.WithComponent("fuse2").WithField("mount_id", id),
		metrics: metrics,
		debug:   verbose,
		guard:   &sync.Mutex{},
	}
	if _, ok := fsys.(Concurrent); ok {
		m.guard = nopLocker{}
	}
	return m
}

func (m *mount) lifecycle() lifecycle {
	return lifecycle(m.state.Load())
}

// operations builds the slot table. Operations with a no-op default are
// always registered; the others only when fs implements them, so the
// runtime reports ENOSYS for the rest.
func (m *mount) operations() *native.Operations {
	ops := &native.Operations{
		Getattr:    opGetattr,
		Readdir:    opReaddir,
		Read:       opRead,
		Open:       opOpen,
		Release:    opRelease,
		Opendir:    opOpendir,
		Releasedir: opReleasedir,
		Flush:      opFlush,
		Statfs:     opStatfs,
		Init:       opInit,
		Destroy:    opDestroy,
	}

	fsys := m.fs
	if _, ok := fsys.(Readlinker); ok {
		ops.Readlink = opReadlink
	}
	if _, ok := fsys.(Mknoder); ok {
		ops.Mknod = opMknod
	}
	if _, ok := fsys.(Mkdirer); ok {
		ops.Mkdir = opMkdir
	}
	if _, ok := fsys.(Unlinker); ok {
		ops.Unlink = opUnlink
	}
	if _, ok := fsys.(Rmdirer); ok {
		ops.Rmdir = opRmdir
	}
	if _, ok := fsys.(Symlinker); ok {
		ops.Symlink = opSymlink
	}
	if _, ok := fsys.(Renamer); ok {
		ops.Rename = opRename
	}
	if _, ok := fsys.(Linker); ok {
		ops.Link = opLink
	}
	if _, ok := fsys.(Chmoder); ok {
		ops.Chmod = opChmod
	}
	if _, ok := fsys.(Chowner); ok {
		ops.Chown = opChown
	}
	if _, ok := fsys.(Truncater); ok {
		ops.Truncate = opTruncate
	}
	if _, ok := fsys.(Writer); ok {
		ops.Write = opWrite
	}
	if _, ok := fsys.(Fsyncer); ok {
		ops.Fsync = opFsync
	}
	if _, ok := fsys.(DirFsyncer); ok {
		ops.Fsyncdir = opFsyncdir
	}
	if _, ok := fsys.(Accesser); ok {
		ops.Access = opAccess
	}
	if _, ok := fsys.(Creator); ok {
		ops.Create = opCreate
	}
	if _, ok := fsys.(Utimenser); ok {
		ops.Utimens = opUtimens
	}
	return ops
}

func (m *mount) record(op string, start time.Time, rc int) {
	if m.metrics == nil {
		return
	}
	var size int64
	if rc > 0 {
		size = int64(rc)
	}
	m.metrics.RecordOperation(op, time.Since(start), size, rc >= 0)
	if rc < 0 {
		m.metrics.RecordError(op, syscall.Errno(-rc))
	}
}

func (m *mount) trace(op, path string, start time.Time, rc int) {
	switch {
	case rc == -int(syscall.EIO):
		m.log.Warn("operation failed", map[string]interface{}{
			"op": op, "path": path, "errno": syscall.Errno(-rc).Error(),
		})
	case m.debug:
		fields := map[string]interface{}{"op": op, "path": path, "duration": time.Since(start).String()}
		if rc < 0 {
			fields["errno"] = syscall.Errno(-rc).Error()
		} else {
			fields["result"] = rc
		}
		m.log.Debug("operation", fields)
	}
}

// dispatch is the shape shared by every path operation: resolve the
// mount, check it is serving, take the guard, decode the path, run fn.
// A panic in fn is reported as EIO.
func dispatch(ctx *native.Context, op string, rawPath []byte, fn func(m *mount, req *Request, path string) int) (rc int) {
	start := time.Now()
	m, req, err := request(ctx)
	if err != nil {
		return status(err)
	}
	path := native.GoString(rawPath)

	defer func() {
		if r := recover(); r != nil {
			perr := errors.NewError(errors.ErrCodePanicRecovered, fmt.Sprint(r)).
				WithComponent("fuse2").
				WithOperation(op).
				WithPath(path).
				WithStack()
			m.log.Error("filesystem panicked", map[string]interface{}{
				"op": op, "path": path, "panic": fmt.Sprint(r), "stack": perr.Stack,
			})
			rc = status(perr)
		}
		m.trace(op, path, start, rc)
		m.record(op, start, rc)
	}()

	m.life.RLock()
	defer m.life.RUnlock()
	if s := m.lifecycle(); s != stateServing {
		m.log.Warn("operation outside serving state", map[string]interface{}{"op": op, "state": s.String()})
		return -int(syscall.EIO)
	}

	m.guard.Lock()
	defer m.guard.Unlock()
	return fn(m, req, path)
}

func opGetattr(ctx *native.Context, path []byte, st *native.Stat) int {
	return dispatch(ctx, "getattr", path, func(m *mount, req *Request, p string) int {
		attr, err := m.fs.Getattr(req, p)
		if err != nil {
			return status(err)
		}
		if err := fillStat(st, &attr); err != nil {
			m.log.Error("cannot translate attributes", map[string]interface{}{"path": p, "error": err.Error()})
			return status(err)
		}
		return 0
	})
}

func opReaddir(ctx *native.Context, path []byte, fill native.FillDir, off int64, ffi *native.FileInfo) int {
	return dispatch(ctx, "readdir", path, func(m *mount, req *Request, p string) int {
		if off < 0 {
			return -int(syscall.EINVAL)
		}
		filler := newDirFiller(fill)
		err := m.fs.Readdir(req, p, uint64(off), filler, decodeFileInfo(ffi))
		if filler.err != nil {
			return status(filler.err)
		}
		return status(err)
	})
}

func opRead(ctx *native.Context, path []byte, buf []byte, off int64, ffi *native.FileInfo) int {
	return dispatch(ctx, "read", path, func(m *mount, req *Request, p string) int {
		if off < 0 {
			return -int(syscall.EINVAL)
		}
		n, err := m.fs.Read(req, p, uint64(off), buf, decodeFileInfo(ffi))
		if err == nil && n > len(buf) {
			return -int(syscall.EIO)
		}
		return count(n, err)
	})
}

func opWrite(ctx *native.Context, path []byte, data []byte, off int64, ffi *native.FileInfo) int {
	return dispatch(ctx, "write", path, func(m *mount, req *Request, p string) int {
		w, ok := m.fs.(Writer)
		if !ok {
			return -int(syscall.ENOSYS)
		}
		if off < 0 {
			return -int(syscall.EINVAL)
		}
		n, err := w.Write(req, p, uint64(off), data, decodeFileInfo(ffi))
		if err == nil && n > len(data) {
			return -int(syscall.EIO)
		}
		return count(n, err)
	})
}

func opOpen(ctx *native.Context, path []byte, ffi *native.FileInfo) int {
	return dispatch(ctx, "open", path, func(m *mount, req *Request, p string) int {
		fi := decodeFileInfo(ffi)
		if o, ok := m.fs.(Opener); ok {
			if err := o.Open(req, p, &fi); err != nil {
				return status(err)
			}
		}
		encodeFileInfo(&fi, ffi)
		return 0
	})
}

func opOpendir(ctx *native.Context, path []byte, ffi *native.FileInfo) int {
	return dispatch(ctx, "opendir", path, func(m *mount, req *Request, p string) int {
		fi := decodeFileInfo(ffi)
		if o, ok := m.fs.(DirOpener); ok {
			if err := o.OpenDir(req, p, &fi); err != nil {
				return status(err)
			}
		}
		encodeFileInfo(&fi, ffi)
		return 0
	})
}

func opCreate(ctx *native.Context, path []byte, mode uint32, ffi *native.FileInfo) int {
	return dispatch(ctx, "create", path, func(m *mount, req *Request, p string) int {
		c, ok := m.fs.(Creator)
		if !ok {
			return -int(syscall.ENOSYS)
		}
		fi := decodeFileInfo(ffi)
		if err := c.Create(req, p, mode, &fi); err != nil {
			return status(err)
		}
		encodeFileInfo(&fi, ffi)
		return 0
	})
}

func opRelease(ctx *native.Context, path []byte, ffi *native.FileInfo) int {
	return dispatch(ctx, "release", path, func(m *mount, req *Request, p string) int {
		if r, ok := m.fs.(Releaser); ok {
			return status(r.Release(req, p, decodeFileInfo(ffi)))
		}
		return 0
	})
}

func opReleasedir(ctx *native.Context, path []byte, ffi *native.FileInfo) int {
	return dispatch(ctx, "releasedir", path, func(m *mount, req *Request, p string) int {
		if r, ok := m.fs.(DirReleaser); ok {
			return status(r.ReleaseDir(req, p, decodeFileInfo(ffi)))
		}
		return 0
	})
}

func opFlush(ctx *native.Context, path []byte, ffi *native.FileInfo) int {
	return dispatch(ctx, "flush", path, func(m *mount, req *Request, p string) int {
		if f, ok := m.fs.(Flusher); ok {
			return status(f.Flush(req, p, decodeFileInfo(ffi)))
		}
		return 0
	})
}

func opFsync(ctx *native.Context, path []byte, datasync int32, ffi *native.FileInfo) int {
	return dispatch(ctx, "fsync", path, func(m *mount, req *Request, p string) int {
		f, ok := m.fs.(Fsyncer)
		if !ok {
			return -int(syscall.ENOSYS)
		}
		return status(f.Fsync(req, p, datasync != 0, decodeFileInfo(ffi)))
	})
}

func opFsyncdir(ctx *native.Context, path []byte, datasync int32, ffi *native.FileInfo) int {
	return dispatch(ctx, "fsyncdir", path, func(m *mount, req *Request, p string) int {
		f, ok := m.fs.(DirFsyncer)
		if !ok {
			return -int(syscall.ENOSYS)
		}
		return status(f.FsyncDir(req, p, datasync != 0, decodeFileInfo(ffi)))
	})
}

func opStatfs(ctx *native.Context, path []byte, st *native.Statvfs) int {
	return dispatch(ctx, "statfs", path, func(m *mount, req *Request, p string) int {
		var s Statfs
		if sf, ok := m.fs.(Statfser); ok {
			var err error
			if s, err = sf.Statfs(req, p); err != nil {
				return status(err)
			}
		}
		fillStatvfs(st, &s)
		return 0
	})
}

func opReadlink(ctx *native.Context, path []byte, buf []byte) int {
	return dispatch(ctx, "readlink", path, func(m *mount, req *Request, p string) int {
		rl, ok := m.fs.(Readlinker)
		if !ok {
			return -int(syscall.ENOSYS)
		}
		if len(buf) == 0 {
			return -int(syscall.EINVAL)
		}
		target, err := rl.Readlink(req, p)
		if err != nil {
			return status(err)
		}
		n := copy(buf[:len(buf)-1], target)
		buf[n] = 0
		return 0
	})
}

func opMknod(ctx *native.Context, path []byte, mode uint32, dev uint64) int {
	return dispatch(ctx, "mknod", path, func(m *mount, req *Request, p string) int {
		mk, ok := m.fs.(Mknoder)
		if !ok {
			return -int(syscall.ENOSYS)
		}
		return status(mk.Mknod(req, p, mode, dev))
	})
}

func opMkdir(ctx *native.Context, path []byte, mode uint32) int {
	return dispatch(ctx, "mkdir", path, func(m *mount, req *Request, p string) int {
		mk, ok := m.fs.(Mkdirer)
		if !ok {
			return -int(syscall.ENOSYS)
		}
		return status(mk.Mkdir(req, p, mode))
	})
}

func opUnlink(ctx *native.Context, path []byte) int {
	return dispatch(ctx, "unlink", path, func(m *mount, req *Request, p string) int {
		u, ok := m.fs.(Unlinker)
		if !ok {
			return -int(syscall.ENOSYS)
		}
		return status(u.Unlink(req, p))
	})
}

func opRmdir(ctx *native.Context, path []byte) int {
	return dispatch(ctx, "rmdir", path, func(m *mount, req *Request, p string) int {
		r, ok := m.fs.(Rmdirer)
		if !ok {
			return -int(syscall.ENOSYS)
		}
		return status(r.Rmdir(req, p))
	})
}

func opSymlink(ctx *native.Context, target []byte, linkpath []byte) int {
	return dispatch(ctx, "symlink", linkpath, func(m *mount, req *Request, p string) int {
		s, ok := m.fs.(Symlinker)
		if !ok {
			return -int(syscall.ENOSYS)
		}
		return status(s.Symlink(req, native.GoString(target), p))
	})
}

func opRename(ctx *native.Context, oldpath []byte, newpath []byte) int {
	return dispatch(ctx, "rename", oldpath, func(m *mount, req *Request, p string) int {
		r, ok := m.fs.(Renamer)
		if !ok {
			return -int(syscall.ENOSYS)
		}
		return status(r.Rename(req, p, native.GoString(newpath)))
	})
}

func opLink(ctx *native.Context, oldpath []byte, newpath []byte) int {
	return dispatch(ctx, "link", oldpath, func(m *mount, req *Request, p string) int {
		l, ok := m.fs.(Linker)
		if !ok {
			return -int(syscall.ENOSYS)
		}
		return status(l.Link(req, p, native.GoString(newpath)))
	})
}

func opChmod(ctx *native.Context, path []byte, mode uint32) int {
	return dispatch(ctx, "chmod", path, func(m *mount, req *Request, p string) int {
		c, ok := m.fs.(Chmoder)
		if !ok {
			return -int(syscall.ENOSYS)
		}
		return status(c.Chmod(req, p, mode))
	})
}

func opChown(ctx *native.Context, path []byte, uid uint32, gid uint32) int {
	return dispatch(ctx, "chown", path, func(m *mount, req *Request, p string) int {
		c, ok := m.fs.(Chowner)
		if !ok {
			return -int(syscall.ENOSYS)
		}
		return status(c.Chown(req, p, uid, gid))
	})
}

func opTruncate(ctx *native.Context, path []byte, size int64) int {
	return dispatch(ctx, "truncate", path, func(m *mount, req *Request, p string) int {
		t, ok := m.fs.(Truncater)
		if !ok {
			return -int(syscall.ENOSYS)
		}
		if size < 0 {
			return -int(syscall.EINVAL)
		}
		return status(t.Truncate(req, p, uint64(size)))
	})
}

func opUtimens(ctx *native.Context, path []byte, tv *[2]native.Timespec) int {
	return dispatch(ctx, "utimens", path, func(m *mount, req *Request, p string) int {
		u, ok := m.fs.(Utimenser)
		if !ok {
			return -int(syscall.ENOSYS)
		}
		atime, mtime, err := utimensTimes(tv, func() (FileAttr, error) {
			return m.fs.Getattr(req, p)
		})
		if err != nil {
			return status(err)
		}
		return status(u.Utimens(req, p, atime, mtime))
	})
}

func opAccess(ctx *native.Context, path []byte, mask int32) int {
	return dispatch(ctx, "access", path, func(m *mount, req *Request, p string) int {
		a, ok := m.fs.(Accesser)
		if !ok {
			return -int(syscall.ENOSYS)
		}
		if mask < 0 {
			return -int(syscall.EINVAL)
		}
		return status(a.Access(req, p, uint32(mask)))
	})
}

// opInit moves the mount from unmounted to serving, running the Init
// hook in between. It returns the private data unchanged. A destroyed
// mount is never initialized again.
func opInit(ctx *native.Context, _ *native.ConnInfo) native.Handle {
	m, req, err := request(ctx)
	if err != nil {
		return 0
	}

	m.life.Lock()
	defer m.life.Unlock()
	if !m.state.CompareAndSwap(int32(stateUnmounted), int32(stateInitializing)) {
		m.log.Error("init outside unmounted state", map[string]interface{}{"state": m.lifecycle().String()})
		return ctx.PrivateData
	}
	defer m.state.Store(int32(stateServing))

	m.hook("init", func() {
		if i, ok := m.fs.(Initer); ok {
			i.Init(req)
		}
	})
	m.log.Info("filesystem initialized")
	return ctx.PrivateData
}

// opDestroy runs the Destroy hook once no operation is in flight.
func opDestroy(ctx *native.Context, _ native.Handle) {
	m, _, err := request(ctx)
	if err != nil {
		return
	}

	m.life.Lock()
	defer m.life.Unlock()
	if !m.state.CompareAndSwap(int32(stateServing), int32(stateDestroying)) {
		m.log.Error("destroy outside serving state", map[string]interface{}{"state": m.lifecycle().String()})
		return
	}
	defer m.state.Store(int32(stateDestroyed))

	m.hook("destroy", func() {
		if d, ok := m.fs.(Destroyer); ok {
			d.Destroy()
		}
	})
	m.log.Info("filesystem destroyed")
}

func (m *mount) hook(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("filesystem panicked", map[string]interface{}{
				"op": name, "panic": fmt.Sprint(r), "stack": string(debug.Stack()),
			})
		}
	}()
	m.guard.Lock()
	defer m.guard.Unlock()
	fn()
}
