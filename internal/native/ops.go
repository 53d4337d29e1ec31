package native

// Operations mirrors struct fuse_operations. A nil slot means the
// operation is not implemented; runtimes answer it with -ENOSYS (or the
// libfuse default for open, opendir, release, releasedir and flush).
//
// Every slot receives the request context explicitly where libfuse
// would use fuse_get_context. Paths are NUL-terminated. Slots return 0
// or a negated errno; read, write and readlink-style calls return a byte
// count on success.
type Operations struct {
	Getattr    func(ctx *Context, path []byte, st *Stat) int
	Readlink   func(ctx *Context, path []byte, buf []byte) int
	Mknod      func(ctx *Context, path []byte, mode uint32, dev uint64) int
	Mkdir      func(ctx *Context, path []byte, mode uint32) int
	Unlink     func(ctx *Context, path []byte) int
	Rmdir      func(ctx *Context, path []byte) int
	Symlink    func(ctx *Context, target []byte, linkpath []byte) int
	Rename     func(ctx *Context, oldpath []byte, newpath []byte) int
	Link       func(ctx *Context, oldpath []byte, newpath []byte) int
	Chmod      func(ctx *Context, path []byte, mode uint32) int
	Chown      func(ctx *Context, path []byte, uid uint32, gid uint32) int
	Truncate   func(ctx *Context, path []byte, size int64) int
	Open       func(ctx *Context, path []byte, fi *FileInfo) int
	Read       func(ctx *Context, path []byte, buf []byte, off int64, fi *FileInfo) int
	Write      func(ctx *Context, path []byte, data []byte, off int64, fi *FileInfo) int
	Statfs     func(ctx *Context, path []byte, st *Statvfs) int
	Flush      func(ctx *Context, path []byte, fi *FileInfo) int
	Release    func(ctx *Context, path []byte, fi *FileInfo) int
	Fsync      func(ctx *Context, path []byte, datasync int32, fi *FileInfo) int
	Opendir    func(ctx *Context, path []byte, fi *FileInfo) int
	Readdir    func(ctx *Context, path []byte, fill FillDir, off int64, fi *FileInfo) int
	Releasedir func(ctx *Context, path []byte, fi *FileInfo) int
	Fsyncdir   func(ctx *Context, path []byte, datasync int32, fi *FileInfo) int
	Init       func(ctx *Context, conn *ConnInfo) Handle
	Destroy    func(ctx *Context, data Handle)
	Access     func(ctx *Context, path []byte, mask int32) int
	Create     func(ctx *Context, path []byte, mode uint32, fi *FileInfo) int
	// Utimens receives nil when both times are to be set to now.
	Utimens func(ctx *Context, path []byte, tv *[2]Timespec) int
}

// Registered returns the names of the non-nil slots in table order.
func (o *Operations) Registered() []string {
	slots := []struct {
		name string
		set  bool
	}{
		{"getattr", o.Getattr != nil},
		{"readlink", o.Readlink != nil},
		{"mknod", o.Mknod != nil},
		{"mkdir", o.Mkdir != nil},
		{"unlink", o.Unlink != nil},
		{"rmdir", o.Rmdir != nil},
		{"symlink", o.Symlink != nil},
		{"rename", o.Rename != nil},
		{"link", o.Link != nil},
		{"chmod", o.Chmod != nil},
		{"chown", o.Chown != nil},
		{"truncate", o.Truncate != nil},
		{"open", o.Open != nil},
		{"read", o.Read != nil},
		{"write", o.Write != nil},
		{"statfs", o.Statfs != nil},
		{"flush", o.Flush != nil},
		{"release", o.Release != nil},
		{"fsync", o.Fsync != nil},
		{"opendir", o.Opendir != nil},
		{"readdir", o.Readdir != nil},
		{"releasedir", o.Releasedir != nil},
		{"fsyncdir", o.Fsyncdir != nil},
		{"init", o.Init != nil},
		{"destroy", o.Destroy != nil},
		{"access", o.Access != nil},
		{"create", o.Create != nil},
		{"utimens", o.Utimens != nil},
	}

	var names []string
	for _, s := range slots {
		if s.set {
			names = append(names, s.name)
		}
	}
	return names
}

// MainFunc mirrors fuse_main_real: parse argv, mount, serve until
// unmounted and return 0, or return non-zero on failure. userData becomes
// Context.PrivateData for the init call.
type MainFunc func(argv [][]byte, ops *Operations, userData Handle) int
