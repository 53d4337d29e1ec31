package fuse2

import (
	"fmt"

	"github.com/objectfs/fuse2go/internal/native"
	"github.com/objectfs/fuse2go/pkg/errors"
)

type integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// narrow stores v in *dst if it is representable there.
func narrow[D, S integer](dst *D, v S) bool {
	d := D(v)
	if S(d) != v || (d < 0) != (v < 0) {
		return false
	}
	*dst = d
	return true
}

func modeOf(kind FileType) (uint32, bool) {
	switch kind {
	case RegularFile:
		return native.S_IFREG, true
	case Directory:
		return native.S_IFDIR, true
	case NamedPipe:
		return native.S_IFIFO, true
	case Socket:
		return native.S_IFSOCK, true
	case CharDevice:
		return native.S_IFCHR, true
	case BlockDevice:
		return native.S_IFBLK, true
	case Symlink:
		return native.S_IFLNK, true
	}
	return 0, false
}

func kindOf(mode uint32) FileType {
	switch mode & native.S_IFMT {
	case native.S_IFDIR:
		return Directory
	case native.S_IFIFO:
		return NamedPipe
	case native.S_IFSOCK:
		return Socket
	case native.S_IFCHR:
		return CharDevice
	case native.S_IFBLK:
		return BlockDevice
	case native.S_IFLNK:
		return Symlink
	default:
		return RegularFile
	}
}

func overflow(field string, v any) error {
	return errors.NewError(errors.ErrCodeValueOverflow, fmt.Sprintf("%s %v does not fit native stat", field, v)).
		WithComponent("fuse2").
		WithOperation("getattr").
		WithDetail("field", field).
		WithDetail("value", v)
}

// fillStat writes every field of attr into st, including zero values.
func fillStat(st *native.Stat, attr *FileAttr) error {
	kind, ok := modeOf(attr.Kind)
	if !ok {
		return errors.NewError(errors.ErrCodeTranslationFailed, fmt.Sprintf("unknown file type %v", attr.Kind)).
			WithComponent("fuse2").
			WithOperation("getattr")
	}

	*st = native.Stat{}
	st.Mode = kind | uint32(attr.Perm)&0o7777
	st.Ino = attr.Ino
	st.Uid = attr.Uid
	st.Gid = attr.Gid

	if !narrow(&st.Size, attr.Size) {
		return overflow("size", attr.Size)
	}
	if !narrow(&st.Blocks, attr.Blocks) {
		return overflow("blocks", attr.Blocks)
	}
	if !narrow(&st.Nlink, attr.Nlink) {
		return overflow("nlink", attr.Nlink)
	}
	if !narrow(&st.Rdev, attr.Rdev) {
		return overflow("rdev", attr.Rdev)
	}
	if !narrow(&st.Blksize, attr.Blksize) {
		return overflow("blksize", attr.Blksize)
	}

	st.Atim = timeToTimespec(attr.Atime)
	st.Mtim = timeToTimespec(attr.Mtime)
	st.Ctim = timeToTimespec(attr.Ctime)
	if native.HasBirthtime {
		st.Birthtim = timeToTimespec(attr.Btime)
	}
	if native.HasFlags {
		st.Flags = attr.Flags
	}
	return nil
}

// statToFileAttr is the inverse of fillStat for values that fit.
func statToFileAttr(st *native.Stat) FileAttr {
	attr := FileAttr{
		Ino:     st.Ino,
		Size:    uint64(st.Size),
		Blocks:  uint64(st.Blocks),
		Atime:   timespecToTime(st.Atim),
		Mtime:   timespecToTime(st.Mtim),
		Ctime:   timespecToTime(st.Ctim),
		Btime:   epoch,
		Kind:    kindOf(st.Mode),
		Perm:    uint16(st.Mode & 0o7777),
		Uid:     st.Uid,
		Gid:     st.Gid,
		Rdev:    uint32(st.Rdev),
		Blksize: uint32(st.Blksize),
		Nlink:   uint32(st.Nlink),
	}
	if native.HasBirthtime {
		attr.Btime = timespecToTime(st.Birthtim)
	}
	if native.HasFlags {
		attr.Flags = st.Flags
	}
	return attr
}

func fillStatvfs(st *native.Statvfs, s *Statfs) {
	*st = native.Statvfs{
		Bsize:  uint64(s.Bsize),
		Frsize: uint64(s.Frsize),
		Blocks: s.Blocks,
		Bfree:  s.Bfree,
		Bavail: s.Bavail,
		Files:  s.Files,
		Ffree:  s.Ffree,
		Favail: s.Favail,
	}
}
