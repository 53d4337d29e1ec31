package fuse2

import (
	"fmt"
	"time"
)

// FileType is the kind of a file system object.
type FileType int

const (
	RegularFile FileType = iota
	Directory
	NamedPipe
	Socket
	CharDevice
	BlockDevice
	Symlink
)

func (t FileType) String() string {
	switch t {
	case RegularFile:
		return "file"
	case Directory:
		return "dir"
	case NamedPipe:
		return "fifo"
	case Socket:
		return "socket"
	case CharDevice:
		return "chardev"
	case BlockDevice:
		return "blockdev"
	case Symlink:
		return "symlink"
	default:
		return fmt.Sprintf("FileType(%d)", int(t))
	}
}

// FileAttr is the result of a getattr call. Start from NewFileAttr and
// set the fields that differ.
type FileAttr struct {
	Ino    uint64
	Size   uint64
	Blocks uint64

	// Times are reported as given; NewFileAttr starts them at the epoch.
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
	Btime time.Time

	Kind    FileType
	Perm    uint16
	Uid     uint32
	Gid     uint32
	Rdev    uint32
	Blksize uint32
	Flags   uint32
	Nlink   uint32
}

// NewFileAttr returns the attributes of a minimal regular file: no
// permissions, one link, 512 byte blocks, epoch timestamps.
func NewFileAttr() FileAttr {
	epoch := time.Unix(0, 0)
	return FileAttr{
		Atime:   epoch,
		Mtime:   epoch,
		Ctime:   epoch,
		Btime:   epoch,
		Kind:    RegularFile,
		Blksize: 512,
		Nlink:   1,
	}
}

// FileInfo is the per-handle state shared by open, read, write and
// release. Changes made by Open, OpenDir and Create are kept for the
// lifetime of the handle.
type FileInfo struct {
	Fh    uint64
	Flags int

	DirectIO    bool
	KeepCache   bool
	NonSeekable bool

	// Flush is set on release when the handle should be flushed.
	Flush bool
}

// Statfs holds volume statistics.
type Statfs struct {
	Bsize  uint32
	Frsize uint32
	Blocks uint64
	Bfree  uint64
	Bavail uint64
	Files  uint64
	Ffree  uint64
	Favail uint64
}

// Request identifies the process that issued the current call.
type Request struct {
	Uid   uint32
	Gid   uint32
	Pid   int
	Umask uint32
}
