//go:build linux && !cgofuse

package fuse

import (
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	gofuse "github.com/hanwen/go-fuse/v2/fuse"

	"github.com/objectfs/fuse2go/internal/native"
	"github.com/objectfs/fuse2go/pkg/utils"
)

// Main mounts the operation table with the go-fuse protocol server and
// serves requests until the file system is unmounted or the process
// receives SIGINT, SIGTERM or SIGHUP. It returns 0 after a clean
// unmount and 1 when the arguments are invalid or the mount fails.
func Main(argv [][]byte, ops *native.Operations, userData native.Handle) int {
	log := logger()

	args, err := ParseArgs(argv)
	if err != nil {
		log.Error("invalid arguments", map[string]interface{}{"error": err.Error()})
		return 1
	}
	if ops == nil {
		log.Error("no operations table")
		return 1
	}
	if args.Debug {
		log.SetComponentLevel("fuse", utils.DEBUG)
	}
	if !args.Foreground {
		log.Debug("daemon mode is not available, serving in the foreground")
	}
	if err := validateMountPoint(args.MountPoint, log); err != nil {
		log.Error("cannot mount", map[string]interface{}{"error": err.Error()})
		return 1
	}

	raw := newRawFS(newSession(ops, args, userData, log))
	server, err := gofuse.NewServer(raw, args.MountPoint, mountOptions(args))
	if err != nil {
		log.Error("mount failed", map[string]interface{}{
			"mountpoint": args.MountPoint,
			"error":      err.Error(),
		})
		return 1
	}

	stop := unmountOnSignal(server, log)
	defer stop()

	log.Debug("serving", map[string]interface{}{
		"mountpoint": args.MountPoint,
		"operations": ops.Registered(),
	})
	server.Serve()
	return 0
}

func mountOptions(a *Args) *gofuse.MountOptions {
	opts := &gofuse.MountOptions{
		FsName:             a.FsName,
		Name:               a.Subtype,
		Debug:              a.Debug,
		SingleThreaded:     a.SingleThreaded,
		DisableReadDirPlus: true,
		MaxBackground:      12,
	}
	if opts.FsName == "" {
		opts.FsName = a.Program
	}
	if opts.Name == "" {
		opts.Name = filepath.Base(a.Program)
	}
	for _, o := range a.Options {
		switch o {
		case "allow_other":
			opts.AllowOther = true
		case "debug":
		default:
			opts.Options = append(opts.Options, o)
		}
	}
	return opts
}

func unmountOnSignal(server *gofuse.Server, log *utils.StructuredLogger) func() {
	sigs := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		select {
		case sig := <-sigs:
			log.Info("unmounting on signal", map[string]interface{}{"signal": sig.String()})
			if err := server.Unmount(); err != nil {
				log.Error("unmount failed", map[string]interface{}{"error": err.Error()})
			}
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

// rawFS serves kernel requests by resolving node ids to paths and
// calling the session's operation table.
type rawFS struct {
	gofuse.RawFileSystem

	s     *session
	nodes *nodeTable
	dirs  *dirTable
}

func newRawFS(s *session) *rawFS {
	return &rawFS{
		RawFileSystem: gofuse.NewDefaultRawFileSystem(),
		s:             s,
		nodes:         newNodeTable(),
		dirs:          newDirTable(),
	}
}

func (r *rawFS) String() string { return filepath.Base(r.s.args.Program) }

func status(rc int) gofuse.Status {
	if rc < 0 {
		return gofuse.Status(-rc)
	}
	return gofuse.OK
}

func (r *rawFS) ctx(h *gofuse.InHeader) *native.Context {
	return r.s.context(h.Uid, h.Gid, h.Pid, 0)
}

func (r *rawFS) Init(server *gofuse.Server) {
	k := server.KernelSettings()
	r.s.init(r.s.context(0, 0, 0, 0), &native.ConnInfo{
		ProtoMajor:   k.Major,
		ProtoMinor:   k.Minor,
		MaxReadahead: k.MaxReadAhead,
		Capable:      k.Flags,
	})
}

func (r *rawFS) OnUnmount() {
	r.s.destroy(r.s.context(0, 0, 0, 0))
}

func clamp32[T int64 | uint64](v T) uint32 {
	if v < 0 {
		return 0
	}
	if uint64(v) > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

func (r *rawFS) fillAttr(id uint64, st *native.Stat, a *gofuse.Attr) {
	a.Ino = id
	if r.s.args.UseIno {
		a.Ino = st.Ino
	}
	a.Size = uint64(st.Size)
	a.Blocks = uint64(st.Blocks)
	a.Atime = uint64(st.Atim.Sec)
	a.Atimensec = uint32(st.Atim.Nsec)
	a.Mtime = uint64(st.Mtim.Sec)
	a.Mtimensec = uint32(st.Mtim.Nsec)
	a.Ctime = uint64(st.Ctim.Sec)
	a.Ctimensec = uint32(st.Ctim.Nsec)
	a.Mode = st.Mode
	a.Nlink = clamp32(uint64(st.Nlink))
	a.Owner = gofuse.Owner{Uid: st.Uid, Gid: st.Gid}
	a.Rdev = clamp32(uint64(st.Rdev))
	a.Blksize = clamp32(int64(st.Blksize))
}

// entry answers a request that produces a new name, taking a node
// reference for it.
func (r *rawFS) entry(ctx *native.Context, p string, out *gofuse.EntryOut) gofuse.Status {
	var st native.Stat
	if rc := r.s.getattr(ctx, p, &st); rc != 0 {
		return status(rc)
	}
	out.NodeId = r.nodes.lookup(p)
	r.fillAttr(out.NodeId, &st, &out.Attr)
	out.SetEntryTimeout(r.s.args.EntryTimeout)
	out.SetAttrTimeout(r.s.args.AttrTimeout)
	return gofuse.OK
}

func (r *rawFS) Lookup(cancel <-chan struct{}, h *gofuse.InHeader, name string, out *gofuse.EntryOut) gofuse.Status {
	p, ok := r.nodes.child(h.NodeId, name)
	if !ok {
		return gofuse.ENOENT
	}
	return r.entry(r.ctx(h), p, out)
}

func (r *rawFS) Forget(nodeid, nlookup uint64) {
	r.nodes.forget(nodeid, nlookup)
}

func (r *rawFS) GetAttr(cancel <-chan struct{}, in *gofuse.GetAttrIn, out *gofuse.AttrOut) gofuse.Status {
	p, ok := r.nodes.path(in.NodeId)
	if !ok {
		return gofuse.ENOENT
	}
	var st native.Stat
	if rc := r.s.getattr(r.ctx(&in.InHeader), p, &st); rc != 0 {
		return status(rc)
	}
	r.fillAttr(in.NodeId, &st, &out.Attr)
	out.SetTimeout(r.s.args.AttrTimeout)
	return gofuse.OK
}

func utimeField(valid, set, now uint32, sec uint64, nsec uint32) native.Timespec {
	switch {
	case valid&set == 0:
		return native.Timespec{Nsec: native.UtimeOmit}
	case valid&now != 0:
		return native.Timespec{Nsec: native.UtimeNow}
	}
	return native.Timespec{Sec: int64(sec), Nsec: int64(nsec)}
}

// SetAttr applies the changes in the order libfuse does: mode, owner,
// size, times. The first failure ends the request.
func (r *rawFS) SetAttr(cancel <-chan struct{}, in *gofuse.SetAttrIn, out *gofuse.AttrOut) gofuse.Status {
	p, ok := r.nodes.path(in.NodeId)
	if !ok {
		return gofuse.ENOENT
	}
	ctx := r.ctx(&in.InHeader)
	ops := r.s.ops

	if mode, ok := in.GetMode(); ok {
		if ops.Chmod == nil {
			return gofuse.ENOSYS
		}
		if rc := withPath(p, func(b []byte) int { return ops.Chmod(ctx, b, mode) }); rc != 0 {
			return status(rc)
		}
	}

	uid, uidSet := in.GetUID()
	gid, gidSet := in.GetGID()
	if uidSet || gidSet {
		if ops.Chown == nil {
			return gofuse.ENOSYS
		}
		if rc := withPath(p, func(b []byte) int { return ops.Chown(ctx, b, uid, gid) }); rc != 0 {
			return status(rc)
		}
	}

	if size, ok := in.GetSize(); ok {
		if ops.Truncate == nil {
			return gofuse.ENOSYS
		}
		if size > math.MaxInt64 {
			return gofuse.Status(syscall.EFBIG)
		}
		if rc := withPath(p, func(b []byte) int { return ops.Truncate(ctx, b, int64(size)) }); rc != 0 {
			return status(rc)
		}
	}

	if in.Valid&(gofuse.FATTR_ATIME|gofuse.FATTR_MTIME) != 0 {
		if ops.Utimens == nil {
			return gofuse.ENOSYS
		}
		tv := [2]native.Timespec{
			utimeField(in.Valid, gofuse.FATTR_ATIME, gofuse.FATTR_ATIME_NOW, in.Atime, in.Atimensec),
			utimeField(in.Valid, gofuse.FATTR_MTIME, gofuse.FATTR_MTIME_NOW, in.Mtime, in.Mtimensec),
		}
		if rc := withPath(p, func(b []byte) int { return ops.Utimens(ctx, b, &tv) }); rc != 0 {
			return status(rc)
		}
	}

	var st native.Stat
	if rc := r.s.getattr(ctx, p, &st); rc != 0 {
		return status(rc)
	}
	r.fillAttr(in.NodeId, &st, &out.Attr)
	out.SetTimeout(r.s.args.AttrTimeout)
	return gofuse.OK
}

func (r *rawFS) Readlink(cancel <-chan struct{}, h *gofuse.InHeader) ([]byte, gofuse.Status) {
	p, ok := r.nodes.path(h.NodeId)
	if !ok {
		return nil, gofuse.ENOENT
	}
	if r.s.ops.Readlink == nil {
		return nil, gofuse.ENOSYS
	}
	ctx := r.ctx(h)
	buf := make([]byte, pathMax)
	if rc := withPath(p, func(b []byte) int { return r.s.ops.Readlink(ctx, b, buf) }); rc != 0 {
		return nil, status(rc)
	}
	return []byte(native.GoString(buf)), gofuse.OK
}

func (r *rawFS) Mknod(cancel <-chan struct{}, in *gofuse.MknodIn, name string, out *gofuse.EntryOut) gofuse.Status {
	p, ok := r.nodes.child(in.NodeId, name)
	if !ok {
		return gofuse.ENOENT
	}
	if r.s.ops.Mknod == nil {
		return gofuse.ENOSYS
	}
	ctx := r.s.context(in.Uid, in.Gid, in.Pid, in.Umask)
	if rc := withPath(p, func(b []byte) int { return r.s.ops.Mknod(ctx, b, in.Mode, uint64(in.Rdev)) }); rc != 0 {
		return status(rc)
	}
	return r.entry(ctx, p, out)
}

func (r *rawFS) Mkdir(cancel <-chan struct{}, in *gofuse.MkdirIn, name string, out *gofuse.EntryOut) gofuse.Status {
	p, ok := r.nodes.child(in.NodeId, name)
	if !ok {
		return gofuse.ENOENT
	}
	if r.s.ops.Mkdir == nil {
		return gofuse.ENOSYS
	}
	ctx := r.s.context(in.Uid, in.Gid, in.Pid, in.Umask)
	if rc := withPath(p, func(b []byte) int { return r.s.ops.Mkdir(ctx, b, in.Mode) }); rc != 0 {
		return status(rc)
	}
	return r.entry(ctx, p, out)
}

func (r *rawFS) remove(h *gofuse.InHeader, name string, slot func(*native.Context, []byte) int) gofuse.Status {
	p, ok := r.nodes.child(h.NodeId, name)
	if !ok {
		return gofuse.ENOENT
	}
	if slot == nil {
		return gofuse.ENOSYS
	}
	ctx := r.ctx(h)
	if rc := withPath(p, func(b []byte) int { return slot(ctx, b) }); rc != 0 {
		return status(rc)
	}
	r.nodes.remove(p)
	return gofuse.OK
}

func (r *rawFS) Unlink(cancel <-chan struct{}, h *gofuse.InHeader, name string) gofuse.Status {
	return r.remove(h, name, r.s.ops.Unlink)
}

func (r *rawFS) Rmdir(cancel <-chan struct{}, h *gofuse.InHeader, name string) gofuse.Status {
	return r.remove(h, name, r.s.ops.Rmdir)
}

func (r *rawFS) Rename(cancel <-chan struct{}, in *gofuse.RenameIn, oldName, newName string) gofuse.Status {
	if in.Flags != 0 {
		return gofuse.EINVAL
	}
	oldPath, ok := r.nodes.child(in.NodeId, oldName)
	if !ok {
		return gofuse.ENOENT
	}
	newPath, ok := r.nodes.child(in.Newdir, newName)
	if !ok {
		return gofuse.ENOENT
	}
	if r.s.ops.Rename == nil {
		return gofuse.ENOSYS
	}
	ctx := r.ctx(&in.InHeader)
	rc := withPath(oldPath, func(o []byte) int {
		return withPath(newPath, func(n []byte) int { return r.s.ops.Rename(ctx, o, n) })
	})
	if rc != 0 {
		return status(rc)
	}
	r.nodes.rename(oldPath, newPath)
	return gofuse.OK
}

func (r *rawFS) Link(cancel <-chan struct{}, in *gofuse.LinkIn, name string, out *gofuse.EntryOut) gofuse.Status {
	oldPath, ok := r.nodes.path(in.Oldnodeid)
	if !ok {
		return gofuse.ENOENT
	}
	newPath, ok := r.nodes.child(in.NodeId, name)
	if !ok {
		return gofuse.ENOENT
	}
	if r.s.ops.Link == nil {
		return gofuse.ENOSYS
	}
	ctx := r.ctx(&in.InHeader)
	rc := withPath(oldPath, func(o []byte) int {
		return withPath(newPath, func(n []byte) int { return r.s.ops.Link(ctx, o, n) })
	})
	if rc != 0 {
		return status(rc)
	}
	return r.entry(ctx, newPath, out)
}

func (r *rawFS) Symlink(cancel <-chan struct{}, h *gofuse.InHeader, target, name string, out *gofuse.EntryOut) gofuse.Status {
	linkPath, ok := r.nodes.child(h.NodeId, name)
	if !ok {
		return gofuse.ENOENT
	}
	if r.s.ops.Symlink == nil {
		return gofuse.ENOSYS
	}
	ctx := r.ctx(h)
	rc := withPath(target, func(t []byte) int {
		return withPath(linkPath, func(l []byte) int { return r.s.ops.Symlink(ctx, t, l) })
	})
	if rc != 0 {
		return status(rc)
	}
	return r.entry(ctx, linkPath, out)
}

func (r *rawFS) Access(cancel <-chan struct{}, in *gofuse.AccessIn) gofuse.Status {
	p, ok := r.nodes.path(in.NodeId)
	if !ok {
		return gofuse.ENOENT
	}
	if r.s.ops.Access == nil {
		return gofuse.ENOSYS
	}
	ctx := r.ctx(&in.InHeader)
	return status(withPath(p, func(b []byte) int { return r.s.ops.Access(ctx, b, int32(in.Mask)) }))
}

func openFlags(fi *native.FileInfo) uint32 {
	var flags uint32
	if fi.DirectIO() != 0 {
		flags |= gofuse.FOPEN_DIRECT_IO
	}
	if fi.KeepCache() != 0 {
		flags |= gofuse.FOPEN_KEEP_CACHE
	}
	if fi.Nonseekable() != 0 {
		flags |= gofuse.FOPEN_NONSEEKABLE
	}
	return flags
}

func (r *rawFS) Create(cancel <-chan struct{}, in *gofuse.CreateIn, name string, out *gofuse.CreateOut) gofuse.Status {
	p, ok := r.nodes.child(in.NodeId, name)
	if !ok {
		return gofuse.ENOENT
	}
	ctx := r.s.context(in.Uid, in.Gid, in.Pid, in.Umask)
	fi := &native.FileInfo{Flags: int32(in.Flags)}
	if rc := r.s.create(ctx, p, in.Mode, fi); rc != 0 {
		return status(rc)
	}
	if code := r.entry(ctx, p, &out.EntryOut); !code.Ok() {
		r.s.release(ctx, p, fi)
		return code
	}
	out.OpenOut = gofuse.OpenOut{Fh: fi.Fh, OpenFlags: openFlags(fi)}
	return gofuse.OK
}

func (r *rawFS) Open(cancel <-chan struct{}, in *gofuse.OpenIn, out *gofuse.OpenOut) gofuse.Status {
	p, ok := r.nodes.path(in.NodeId)
	if !ok {
		return gofuse.ENOENT
	}
	fi := &native.FileInfo{Flags: int32(in.Flags)}
	if rc := r.s.open(r.ctx(&in.InHeader), p, fi); rc != 0 {
		return status(rc)
	}
	out.Fh = fi.Fh
	out.OpenFlags = openFlags(fi)
	return gofuse.OK
}

// handlePath resolves the path of an open node. Nodes whose name is gone
// still reach the file system, with an empty path.
func (r *rawFS) handlePath(id uint64) string {
	p, _ := r.nodes.path(id)
	return p
}

func (r *rawFS) Read(cancel <-chan struct{}, in *gofuse.ReadIn, buf []byte) (gofuse.ReadResult, gofuse.Status) {
	if r.s.ops.Read == nil {
		return nil, gofuse.ENOSYS
	}
	if in.Offset > math.MaxInt64 {
		return nil, gofuse.EINVAL
	}
	if int(in.Size) < len(buf) {
		buf = buf[:in.Size]
	}
	ctx := r.ctx(&in.InHeader)
	fi := &native.FileInfo{Fh: in.Fh, Flags: int32(in.Flags), LockOwner: in.LockOwner}
	n := withPath(r.handlePath(in.NodeId), func(b []byte) int {
		return r.s.ops.Read(ctx, b, buf, int64(in.Offset), fi)
	})
	if n < 0 {
		return nil, status(n)
	}
	if n > len(buf) {
		return nil, gofuse.EIO
	}
	return gofuse.ReadResultData(buf[:n]), gofuse.OK
}

func (r *rawFS) Write(cancel <-chan struct{}, in *gofuse.WriteIn, data []byte) (uint32, gofuse.Status) {
	if r.s.ops.Write == nil {
		return 0, gofuse.ENOSYS
	}
	if in.Offset > math.MaxInt64 {
		return 0, gofuse.EINVAL
	}
	ctx := r.ctx(&in.InHeader)
	fi := &native.FileInfo{Fh: in.Fh, Flags: int32(in.Flags), LockOwner: in.LockOwner}
	n := withPath(r.handlePath(in.NodeId), func(b []byte) int {
		return r.s.ops.Write(ctx, b, data, int64(in.Offset), fi)
	})
	if n < 0 {
		return 0, status(n)
	}
	if n > len(data) {
		return 0, gofuse.EIO
	}
	return uint32(n), gofuse.OK
}

func (r *rawFS) Release(cancel <-chan struct{}, in *gofuse.ReleaseIn) {
	fi := &native.FileInfo{Fh: in.Fh, Flags: int32(in.Flags), LockOwner: in.LockOwner}
	if in.ReleaseFlags&gofuse.FUSE_RELEASE_FLUSH != 0 {
		fi.SetFlush(1)
	}
	if in.ReleaseFlags&gofuse.FUSE_RELEASE_FLOCK_UNLOCK != 0 {
		fi.SetFlockRelease(1)
	}
	if rc := r.s.release(r.ctx(&in.InHeader), r.handlePath(in.NodeId), fi); rc != 0 {
		r.s.log.Debug("release failed", map[string]interface{}{"fh": in.Fh, "errno": -rc})
	}
}

func (r *rawFS) Flush(cancel <-chan struct{}, in *gofuse.FlushIn) gofuse.Status {
	if r.s.ops.Flush == nil {
		return gofuse.ENOSYS
	}
	ctx := r.ctx(&in.InHeader)
	fi := &native.FileInfo{Fh: in.Fh, LockOwner: in.LockOwner}
	fi.SetFlush(1)
	return status(withPath(r.handlePath(in.NodeId), func(b []byte) int {
		return r.s.ops.Flush(ctx, b, fi)
	}))
}

func (r *rawFS) Fsync(cancel <-chan struct{}, in *gofuse.FsyncIn) gofuse.Status {
	if r.s.ops.Fsync == nil {
		return gofuse.ENOSYS
	}
	ctx := r.ctx(&in.InHeader)
	fi := &native.FileInfo{Fh: in.Fh}
	return status(withPath(r.handlePath(in.NodeId), func(b []byte) int {
		return r.s.ops.Fsync(ctx, b, int32(in.FsyncFlags&1), fi)
	}))
}

func (r *rawFS) OpenDir(cancel <-chan struct{}, in *gofuse.OpenIn, out *gofuse.OpenOut) gofuse.Status {
	p, ok := r.nodes.path(in.NodeId)
	if !ok {
		return gofuse.ENOENT
	}
	fi := &native.FileInfo{Flags: int32(in.Flags)}
	if rc := r.s.opendir(r.ctx(&in.InHeader), p, fi); rc != 0 {
		return status(rc)
	}
	out.Fh = r.dirs.add(&dirHandle{fh: fi.Fh, path: p, flags: in.Flags})
	return gofuse.OK
}

// ReadDir lists the directory once per stream, when the kernel asks for
// offset zero, and pages through the buffer afterwards.
func (r *rawFS) ReadDir(cancel <-chan struct{}, in *gofuse.ReadIn, out *gofuse.DirEntryList) gofuse.Status {
	dh, ok := r.dirs.get(in.Fh)
	if !ok {
		return gofuse.EBADF
	}
	dh.mu.Lock()
	defer dh.mu.Unlock()

	if !dh.loaded || in.Offset == 0 {
		if rc := r.s.loadDir(r.ctx(&in.InHeader), dh); rc != 0 {
			return status(rc)
		}
	}

	for i := in.Offset; i < uint64(len(dh.entries)); i++ {
		e := dh.entries[i]
		ino := e.ino
		if ino == 0 && r.s.args.ReaddirIno {
			ino = r.nodes.ino(joinPath(dh.path, e.name))
		}
		if !out.AddDirEntry(gofuse.DirEntry{Name: e.name, Mode: e.mode, Ino: ino, Off: i + 1}) {
			break
		}
	}
	return gofuse.OK
}

func (r *rawFS) ReleaseDir(in *gofuse.ReleaseIn) {
	dh, ok := r.dirs.release(in.Fh)
	if !ok {
		return
	}
	fi := &native.FileInfo{Fh: dh.fh, Flags: int32(dh.flags)}
	if rc := r.s.releasedir(r.ctx(&in.InHeader), dh.path, fi); rc != 0 {
		r.s.log.Debug("releasedir failed", map[string]interface{}{"path": dh.path, "errno": -rc})
	}
}

func (r *rawFS) FsyncDir(cancel <-chan struct{}, in *gofuse.FsyncIn) gofuse.Status {
	dh, ok := r.dirs.get(in.Fh)
	if !ok {
		return gofuse.EBADF
	}
	if r.s.ops.Fsyncdir == nil {
		return gofuse.ENOSYS
	}
	ctx := r.ctx(&in.InHeader)
	fi := &native.FileInfo{Fh: dh.fh, Flags: int32(dh.flags)}
	return status(withPath(dh.path, func(b []byte) int {
		return r.s.ops.Fsyncdir(ctx, b, int32(in.FsyncFlags&1), fi)
	}))
}

func (r *rawFS) StatFs(cancel <-chan struct{}, h *gofuse.InHeader, out *gofuse.StatfsOut) gofuse.Status {
	p, ok := r.nodes.path(h.NodeId)
	if !ok {
		p = "/"
	}
	var st native.Statvfs
	if rc := r.s.statfs(r.ctx(h), p, &st); rc != 0 {
		return status(rc)
	}
	out.Blocks = st.Blocks
	out.Bfree = st.Bfree
	out.Bavail = st.Bavail
	out.Files = st.Files
	out.Ffree = st.Ffree
	out.Bsize = clamp32(st.Bsize)
	out.NameLen = clamp32(st.Namemax)
	out.Frsize = clamp32(st.Frsize)
	return gofuse.OK
}
