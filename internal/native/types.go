// Package native declares the callback table, entry point and data
// structures of the high-level FUSE interface (libfuse 2, API version 26)
// as Go types. It is the boundary between the kernel runtimes in
// internal/fuse and the safe adapter in pkg/fuse2: runtimes fill these
// structures and call the slots, the adapter implements the slots.
package native

import "golang.org/x/sys/unix"

// Timespec mirrors struct timespec.
type Timespec struct {
	Sec  int64
	Nsec int64
}

// Markers for utimens timestamps.
const (
	UtimeNow  = unix.UTIME_NOW
	UtimeOmit = unix.UTIME_OMIT
)

// File type bits of Stat.Mode.
const (
	S_IFMT   = unix.S_IFMT
	S_IFREG  = unix.S_IFREG
	S_IFDIR  = unix.S_IFDIR
	S_IFIFO  = unix.S_IFIFO
	S_IFSOCK = unix.S_IFSOCK
	S_IFCHR  = unix.S_IFCHR
	S_IFBLK  = unix.S_IFBLK
	S_IFLNK  = unix.S_IFLNK
)

// Stat mirrors struct stat. Field widths follow the build platform, so
// values coming from wider Go types have to be narrowed before they are
// stored. Birthtim and Flags are only meaningful when HasBirthtime and
// HasFlags are set.
type Stat struct {
	Dev      uint64
	Ino      uint64
	Nlink    NlinkT
	Mode     uint32
	Uid      uint32
	Gid      uint32
	Rdev     DevT
	Size     int64
	Blksize  BlksizeT
	Blocks   int64
	Atim     Timespec
	Mtim     Timespec
	Ctim     Timespec
	Birthtim Timespec
	Flags    uint32
}

// Statvfs mirrors struct statvfs.
type Statvfs struct {
	Bsize   uint64
	Frsize  uint64
	Blocks  uint64
	Bfree   uint64
	Bavail  uint64
	Files   uint64
	Ffree   uint64
	Favail  uint64
	Fsid    uint64
	Flag    uint64
	Namemax uint64
}

// Context mirrors struct fuse_context. A runtime builds one per request;
// PrivateData is the value returned by the init slot (or the user data
// passed to Main when there is no init slot).
type Context struct {
	Uid         uint32
	Gid         uint32
	Pid         int32
	PrivateData Handle
	Umask       uint32
}

// ConnInfo mirrors struct fuse_conn_info as passed to init.
type ConnInfo struct {
	ProtoMajor   uint32
	ProtoMinor   uint32
	AsyncRead    uint32
	MaxWrite     uint32
	MaxReadahead uint32
	Capable      uint32
	Want         uint32
}

// FillDir mirrors fuse_fill_dir_t. It returns 1 when the reply buffer is
// full and 0 when the entry was added.
type FillDir func(name []byte, st *Stat, off int64) int
