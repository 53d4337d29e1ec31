package fuse

import (
	"sync"
	"syscall"

	"github.com/objectfs/fuse2go/internal/native"
	"github.com/objectfs/fuse2go/pkg/utils"
)

// session drives one operation table for the lifetime of a mount. It
// owns the private data handle and the behavior libfuse provides on top
// of the table: defaults for missing slots, the uid, gid and umask
// overrides, and buffered directory listings.
type session struct {
	ops  *native.Operations
	args *Args
	log  *utils.StructuredLogger

	// overrides is false when the kernel library applies uid, gid and
	// umask itself.
	overrides bool

	mu          sync.RWMutex
	priv        native.Handle
	initialized bool
	destroyed   bool
}

func newSession(ops *native.Operations, args *Args, userData native.Handle, log *utils.StructuredLogger) *session {
	return &session{
		ops:       ops,
		args:      args,
		log:       log,
		overrides: true,
		priv:      userData,
	}
}

// pathMax bounds the readlink buffer, PATH_MAX plus the terminator.
const pathMax = 4096 + 1

func errno(e syscall.Errno) int { return -int(e) }

func (s *session) context(uid, gid, pid, umask uint32) *native.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &native.Context{
		Uid:         uid,
		Gid:         gid,
		Pid:         int32(pid),
		PrivateData: s.priv,
		Umask:       umask,
	}
}

// init runs the init slot once. The handle it returns becomes the
// private data of every later request; a zero handle is ignored and the
// user data stays in place.
func (s *session) init(ctx *native.Context, conn *native.ConnInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return
	}
	s.initialized = true
	if s.ops.Init == nil {
		return
	}

	ctx.PrivateData = s.priv
	h := s.ops.Init(ctx, conn)
	if h == 0 {
		s.log.Warn("init returned no private data, keeping user data")
		return
	}
	s.priv = h
}

// destroy runs the destroy slot once, and only after init.
func (s *session) destroy(ctx *native.Context) {
	s.mu.Lock()
	if !s.initialized || s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	priv := s.priv
	s.mu.Unlock()

	if s.ops.Destroy != nil {
		ctx.PrivateData = priv
		s.ops.Destroy(ctx, priv)
	}
}

func cpath(p string) ([]byte, int) {
	b, err := native.CString(p)
	if err != nil {
		return nil, errno(syscall.EINVAL)
	}
	return b, 0
}

func (s *session) getattr(ctx *native.Context, p string, st *native.Stat) int {
	if s.ops.Getattr == nil {
		return errno(syscall.ENOSYS)
	}
	b, rc := cpath(p)
	if rc != 0 {
		return rc
	}
	*st = native.Stat{}
	if rc := s.ops.Getattr(ctx, b, st); rc != 0 {
		return rc
	}
	s.override(st)
	return 0
}

func (s *session) override(st *native.Stat) {
	if !s.overrides {
		return
	}
	if s.args.SetUid {
		st.Uid = s.args.Uid
	}
	if s.args.SetGid {
		st.Gid = s.args.Gid
	}
	if s.args.SetUmask {
		st.Mode = st.Mode&native.S_IFMT | 0o777&^s.args.Umask
	}
}

func (s *session) open(ctx *native.Context, p string, fi *native.FileInfo) int {
	if s.args.DirectIO {
		fi.SetDirectIO(1)
	}
	if s.args.KernelCache {
		fi.SetKeepCache(1)
	}
	if s.ops.Open == nil {
		return 0
	}
	b, rc := cpath(p)
	if rc != 0 {
		return rc
	}
	return s.ops.Open(ctx, b, fi)
}

func (s *session) create(ctx *native.Context, p string, mode uint32, fi *native.FileInfo) int {
	if s.ops.Create == nil {
		return errno(syscall.ENOSYS)
	}
	if s.args.DirectIO {
		fi.SetDirectIO(1)
	}
	if s.args.KernelCache {
		fi.SetKeepCache(1)
	}
	b, rc := cpath(p)
	if rc != 0 {
		return rc
	}
	return s.ops.Create(ctx, b, mode, fi)
}

func (s *session) release(ctx *native.Context, p string, fi *native.FileInfo) int {
	if s.ops.Release == nil {
		return 0
	}
	b, rc := cpath(p)
	if rc != 0 {
		return rc
	}
	return s.ops.Release(ctx, b, fi)
}

func (s *session) opendir(ctx *native.Context, p string, fi *native.FileInfo) int {
	if s.ops.Opendir == nil {
		return 0
	}
	b, rc := cpath(p)
	if rc != 0 {
		return rc
	}
	return s.ops.Opendir(ctx, b, fi)
}

func (s *session) releasedir(ctx *native.Context, p string, fi *native.FileInfo) int {
	if s.ops.Releasedir == nil {
		return 0
	}
	b, rc := cpath(p)
	if rc != 0 {
		return rc
	}
	return s.ops.Releasedir(ctx, b, fi)
}

// statfs answers with the libfuse defaults when the slot is missing.
func (s *session) statfs(ctx *native.Context, p string, st *native.Statvfs) int {
	*st = native.Statvfs{Namemax: 255, Bsize: 512}
	if s.ops.Statfs == nil {
		return 0
	}
	b, rc := cpath(p)
	if rc != 0 {
		return rc
	}
	return s.ops.Statfs(ctx, b, st)
}

// loadDir fills dh with the complete listing of its directory. Entry
// offsets passed by the file system are ignored; the stream is served
// from the buffer by index. A failed reload keeps the previous listing.
func (s *session) loadDir(ctx *native.Context, dh *dirHandle) int {
	if s.ops.Readdir == nil {
		return errno(syscall.ENOSYS)
	}
	b, rc := cpath(dh.path)
	if rc != 0 {
		return rc
	}

	var entries []dirEntry
	fill := func(name []byte, st *native.Stat, _ int64) int {
		e := dirEntry{name: native.GoString(name)}
		if st != nil {
			e.mode = st.Mode
			if s.args.UseIno {
				e.ino = st.Ino
			}
		}
		entries = append(entries, e)
		return 0
	}

	fi := &native.FileInfo{Fh: dh.fh, Flags: int32(dh.flags)}
	if rc := s.ops.Readdir(ctx, b, fill, 0, fi); rc != 0 {
		return rc
	}
	dh.entries = entries
	dh.loaded = true
	return 0
}

func withPath(p string, fn func([]byte) int) int {
	b, rc := cpath(p)
	if rc != 0 {
		return rc
	}
	return fn(b)
}
