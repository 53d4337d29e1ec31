//go:build cgofuse

package fuse

import (
	"syscall"

	cgofuse "github.com/winfsp/cgofuse/fuse"

	"github.com/objectfs/fuse2go/internal/native"
	"github.com/objectfs/fuse2go/pkg/utils"
)

// Main mounts the operation table through libfuse via cgofuse. libfuse
// parses the arguments itself, including the uid, gid and umask
// overrides, and installs its own signal handlers.
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
	if err := validateMountPoint(args.MountPoint, log); err != nil {
		log.Error("cannot mount", map[string]interface{}{"error": err.Error()})
		return 1
	}

	s := newSession(ops, args, userData, log)
	s.overrides = false

	host := cgofuse.NewFileSystemHost(&hostFS{s: s})
	if !host.Mount(args.MountPoint, args.rest) {
		log.Error("mount failed", map[string]interface{}{"mountpoint": args.MountPoint})
		return 1
	}
	return 0
}

// hostFS adapts the operation table to cgofuse's path interface.
// cgofuse has no extended opendir, so directory open hints stay local.
type hostFS struct {
	cgofuse.FileSystemBase
	s *session
}

var _ cgofuse.FileSystemOpenEx = (*hostFS)(nil)

func (h *hostFS) ctx() *native.Context {
	uid, gid, pid := cgofuse.Getcontext()
	return h.s.context(uid, gid, uint32(pid), 0)
}

func enosys() int { return errno(syscall.ENOSYS) }

func (h *hostFS) Init() {
	h.s.init(h.ctx(), &native.ConnInfo{})
}

func (h *hostFS) Destroy() {
	h.s.destroy(h.ctx())
}

func toHostStat(st *native.Stat, out *cgofuse.Stat_t) {
	*out = cgofuse.Stat_t{
		Dev:     st.Dev,
		Ino:     st.Ino,
		Mode:    st.Mode,
		Nlink:   uint32(st.Nlink),
		Uid:     st.Uid,
		Gid:     st.Gid,
		Rdev:    uint64(st.Rdev),
		Size:    st.Size,
		Atim:    cgofuse.Timespec{Sec: st.Atim.Sec, Nsec: st.Atim.Nsec},
		Mtim:    cgofuse.Timespec{Sec: st.Mtim.Sec, Nsec: st.Mtim.Nsec},
		Ctim:    cgofuse.Timespec{Sec: st.Ctim.Sec, Nsec: st.Ctim.Nsec},
		Blksize: int64(st.Blksize),
		Blocks:  st.Blocks,
	}
	if native.HasBirthtime {
		out.Birthtim = cgofuse.Timespec{Sec: st.Birthtim.Sec, Nsec: st.Birthtim.Nsec}
	}
	if native.HasFlags {
		out.Flags = st.Flags
	}
}

func (h *hostFS) Getattr(path string, stat *cgofuse.Stat_t, fh uint64) int {
	var st native.Stat
	if rc := h.s.getattr(h.ctx(), path, &st); rc != 0 {
		return rc
	}
	toHostStat(&st, stat)
	return 0
}

func (h *hostFS) Statfs(path string, stat *cgofuse.Statfs_t) int {
	var st native.Statvfs
	if rc := h.s.statfs(h.ctx(), path, &st); rc != 0 {
		return rc
	}
	*stat = cgofuse.Statfs_t{
		Bsize:   st.Bsize,
		Frsize:  st.Frsize,
		Blocks:  st.Blocks,
		Bfree:   st.Bfree,
		Bavail:  st.Bavail,
		Files:   st.Files,
		Ffree:   st.Ffree,
		Favail:  st.Favail,
		Fsid:    st.Fsid,
		Flag:    st.Flag,
		Namemax: st.Namemax,
	}
	return 0
}

func (h *hostFS) Readlink(path string) (int, string) {
	if h.s.ops.Readlink == nil {
		return enosys(), ""
	}
	ctx := h.ctx()
	buf := make([]byte, pathMax)
	if rc := withPath(path, func(b []byte) int { return h.s.ops.Readlink(ctx, b, buf) }); rc != 0 {
		return rc, ""
	}
	return 0, native.GoString(buf)
}

func (h *hostFS) Mknod(path string, mode uint32, dev uint64) int {
	if h.s.ops.Mknod == nil {
		return enosys()
	}
	ctx := h.ctx()
	return withPath(path, func(b []byte) int { return h.s.ops.Mknod(ctx, b, mode, dev) })
}

func (h *hostFS) Mkdir(path string, mode uint32) int {
	if h.s.ops.Mkdir == nil {
		return enosys()
	}
	ctx := h.ctx()
	return withPath(path, func(b []byte) int { return h.s.ops.Mkdir(ctx, b, mode) })
}

func (h *hostFS) Unlink(path string) int {
	if h.s.ops.Unlink == nil {
		return enosys()
	}
	ctx := h.ctx()
	return withPath(path, func(b []byte) int { return h.s.ops.Unlink(ctx, b) })
}

func (h *hostFS) Rmdir(path string) int {
	if h.s.ops.Rmdir == nil {
		return enosys()
	}
	ctx := h.ctx()
	return withPath(path, func(b []byte) int { return h.s.ops.Rmdir(ctx, b) })
}

func (h *hostFS) Symlink(target string, newpath string) int {
	if h.s.ops.Symlink == nil {
		return enosys()
	}
	ctx := h.ctx()
	return withPath(target, func(t []byte) int {
		return withPath(newpath, func(l []byte) int { return h.s.ops.Symlink(ctx, t, l) })
	})
}

func (h *hostFS) Rename(oldpath string, newpath string) int {
	if h.s.ops.Rename == nil {
		return enosys()
	}
	ctx := h.ctx()
	return withPath(oldpath, func(o []byte) int {
		return withPath(newpath, func(n []byte) int { return h.s.ops.Rename(ctx, o, n) })
	})
}

func (h *hostFS) Link(oldpath string, newpath string) int {
	if h.s.ops.Link == nil {
		return enosys()
	}
	ctx := h.ctx()
	return withPath(oldpath, func(o []byte) int {
		return withPath(newpath, func(n []byte) int { return h.s.ops.Link(ctx, o, n) })
	})
}

func (h *hostFS) Chmod(path string, mode uint32) int {
	if h.s.ops.Chmod == nil {
		return enosys()
	}
	ctx := h.ctx()
	return withPath(path, func(b []byte) int { return h.s.ops.Chmod(ctx, b, mode) })
}

func (h *hostFS) Chown(path string, uid uint32, gid uint32) int {
	if h.s.ops.Chown == nil {
		return enosys()
	}
	ctx := h.ctx()
	return withPath(path, func(b []byte) int { return h.s.ops.Chown(ctx, b, uid, gid) })
}

func (h *hostFS) Truncate(path string, size int64, fh uint64) int {
	if h.s.ops.Truncate == nil {
		return enosys()
	}
	ctx := h.ctx()
	return withPath(path, func(b []byte) int { return h.s.ops.Truncate(ctx, b, size) })
}

func (h *hostFS) Utimens(path string, tmsp []cgofuse.Timespec) int {
	if h.s.ops.Utimens == nil {
		return enosys()
	}
	ctx := h.ctx()
	var tv *[2]native.Timespec
	if len(tmsp) >= 2 {
		tv = &[2]native.Timespec{
			{Sec: tmsp[0].Sec, Nsec: tmsp[0].Nsec},
			{Sec: tmsp[1].Sec, Nsec: tmsp[1].Nsec},
		}
	}
	return withPath(path, func(b []byte) int { return h.s.ops.Utimens(ctx, b, tv) })
}

func (h *hostFS) Access(path string, mask uint32) int {
	if h.s.ops.Access == nil {
		return enosys()
	}
	ctx := h.ctx()
	return withPath(path, func(b []byte) int { return h.s.ops.Access(ctx, b, int32(mask)) })
}

func (h *hostFS) Create(path string, flags int, mode uint32) (int, uint64) {
	fi := &native.FileInfo{Flags: int32(flags)}
	if rc := h.s.create(h.ctx(), path, mode, fi); rc != 0 {
		return rc, ^uint64(0)
	}
	return 0, fi.Fh
}

func (h *hostFS) Open(path string, flags int) (int, uint64) {
	fi := &native.FileInfo{Flags: int32(flags)}
	if rc := h.s.open(h.ctx(), path, fi); rc != 0 {
		return rc, ^uint64(0)
	}
	return 0, fi.Fh
}

// OpenEx and CreateEx are preferred by cgofuse over Open and Create;
// they carry the open hints back to libfuse.
func (h *hostFS) OpenEx(path string, fi *cgofuse.FileInfo_t) int {
	nfi := &native.FileInfo{Flags: int32(fi.Flags)}
	if rc := h.s.open(h.ctx(), path, nfi); rc != 0 {
		return rc
	}
	toHostFileInfo(nfi, fi)
	return 0
}

func (h *hostFS) CreateEx(path string, mode uint32, fi *cgofuse.FileInfo_t) int {
	nfi := &native.FileInfo{Flags: int32(fi.Flags)}
	if rc := h.s.create(h.ctx(), path, mode, nfi); rc != 0 {
		return rc
	}
	toHostFileInfo(nfi, fi)
	return 0
}

func toHostFileInfo(fi *native.FileInfo, out *cgofuse.FileInfo_t) {
	out.Fh = fi.Fh
	out.DirectIo = fi.DirectIO() != 0
	out.KeepCache = fi.KeepCache() != 0
	out.NonSeekable = fi.Nonseekable() != 0
}

func (h *hostFS) Read(path string, buff []byte, ofst int64, fh uint64) int {
	if h.s.ops.Read == nil {
		return enosys()
	}
	ctx := h.ctx()
	fi := &native.FileInfo{Fh: fh}
	return withPath(path, func(b []byte) int { return h.s.ops.Read(ctx, b, buff, ofst, fi) })
}

func (h *hostFS) Write(path string, buff []byte, ofst int64, fh uint64) int {
	if h.s.ops.Write == nil {
		return enosys()
	}
	ctx := h.ctx()
	fi := &native.FileInfo{Fh: fh}
	return withPath(path, func(b []byte) int { return h.s.ops.Write(ctx, b, buff, ofst, fi) })
}

func (h *hostFS) Flush(path string, fh uint64) int {
	if h.s.ops.Flush == nil {
		return enosys()
	}
	ctx := h.ctx()
	fi := &native.FileInfo{Fh: fh}
	fi.SetFlush(1)
	return withPath(path, func(b []byte) int { return h.s.ops.Flush(ctx, b, fi) })
}

func (h *hostFS) Release(path string, fh uint64) int {
	return h.s.release(h.ctx(), path, &native.FileInfo{Fh: fh})
}

func datasync(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func (h *hostFS) Fsync(path string, ds bool, fh uint64) int {
	if h.s.ops.Fsync == nil {
		return enosys()
	}
	ctx := h.ctx()
	fi := &native.FileInfo{Fh: fh}
	return withPath(path, func(b []byte) int { return h.s.ops.Fsync(ctx, b, datasync(ds), fi) })
}

func (h *hostFS) Opendir(path string) (int, uint64) {
	fi := &native.FileInfo{}
	if rc := h.s.opendir(h.ctx(), path, fi); rc != 0 {
		return rc, ^uint64(0)
	}
	return 0, fi.Fh
}

// Readdir hands entries straight to libfuse, which does its own
// buffering.
func (h *hostFS) Readdir(path string, fill func(name string, stat *cgofuse.Stat_t, ofst int64) bool, ofst int64, fh uint64) int {
	if h.s.ops.Readdir == nil {
		return enosys()
	}
	ctx := h.ctx()
	fi := &native.FileInfo{Fh: fh}
	nfill := func(name []byte, st *native.Stat, off int64) int {
		var hst *cgofuse.Stat_t
		if st != nil {
			hst = &cgofuse.Stat_t{}
			toHostStat(st, hst)
		}
		if !fill(native.GoString(name), hst, off) {
			return 1
		}
		return 0
	}
	return withPath(path, func(b []byte) int { return h.s.ops.Readdir(ctx, b, nfill, ofst, fi) })
}

func (h *hostFS) Releasedir(path string, fh uint64) int {
	return h.s.releasedir(h.ctx(), path, &native.FileInfo{Fh: fh})
}

func (h *hostFS) Fsyncdir(path string, ds bool, fh uint64) int {
	if h.s.ops.Fsyncdir == nil {
		return enosys()
	}
	ctx := h.ctx()
	fi := &native.FileInfo{Fh: fh}
	return withPath(path, func(b []byte) int { return h.s.ops.Fsyncdir(ctx, b, datasync(ds), fi) })
}
