package native

// FileInfo mirrors struct fuse_file_info. The single-bit flags share one
// 32-bit word in declaration order: direct_io, keep_cache, flush,
// nonseekable, flock_release, then 27 bits of padding.
type FileInfo struct {
	Flags     int32
	FhOld     uint64
	Writepage int32
	bitfield  uint32
	Fh        uint64
	LockOwner uint64
}

const (
	bitDirectIO = iota
	bitKeepCache
	bitFlush
	bitNonseekable
	bitFlockRelease
)

func (fi *FileInfo) bit(n uint) uint32 {
	return (fi.bitfield >> n) & 1
}

func (fi *FileInfo) setBit(n uint, v uint32) {
	fi.bitfield = fi.bitfield&^(1<<n) | (v&1)<<n
}

func (fi *FileInfo) DirectIO() uint32         { return fi.bit(bitDirectIO) }
func (fi *FileInfo) SetDirectIO(v uint32)     { fi.setBit(bitDirectIO, v) }
func (fi *FileInfo) KeepCache() uint32        { return fi.bit(bitKeepCache) }
func (fi *FileInfo) SetKeepCache(v uint32)    { fi.setBit(bitKeepCache, v) }
func (fi *FileInfo) Flush() uint32            { return fi.bit(bitFlush) }
func (fi *FileInfo) SetFlush(v uint32)        { fi.setBit(bitFlush, v) }
func (fi *FileInfo) Nonseekable() uint32      { return fi.bit(bitNonseekable) }
func (fi *FileInfo) SetNonseekable(v uint32)  { fi.setBit(bitNonseekable, v) }
func (fi *FileInfo) FlockRelease() uint32     { return fi.bit(bitFlockRelease) }
func (fi *FileInfo) SetFlockRelease(v uint32) { fi.setBit(bitFlockRelease, v) }

// Bits returns the raw flag word.
func (fi *FileInfo) Bits() uint32 { return fi.bitfield }
