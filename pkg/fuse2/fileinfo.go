package fuse2

import "github.com/objectfs/fuse2go/internal/native"

func decodeFileInfo(ffi *native.FileInfo) FileInfo {
	if ffi == nil {
		return FileInfo{}
	}
	return FileInfo{
		Fh:          ffi.Fh,
		Flags:       int(ffi.Flags),
		DirectIO:    ffi.DirectIO() != 0,
		KeepCache:   ffi.KeepCache() != 0,
		NonSeekable: ffi.Nonseekable() != 0,
		Flush:       ffi.Flush() != 0,
	}
}

// encodeFileInfo writes the handle and hints back. Flags are owned by
// the kernel and are not written.
func encodeFileInfo(fi *FileInfo, ffi *native.FileInfo) {
	if ffi == nil {
		return
	}
	ffi.Fh = fi.Fh
	ffi.SetDirectIO(b2u(fi.DirectIO))
	ffi.SetKeepCache(b2u(fi.KeepCache))
	ffi.SetNonseekable(b2u(fi.NonSeekable))
	ffi.SetFlush(b2u(fi.Flush))
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
