// Package fuse2 serves a user-space file system through the high-level
// FUSE interface.
//
// A file system implements Filesystem (getattr, readdir and read) and
// any of the optional operation interfaces such as Opener, Writer or
// Renamer. Embedding FilesystemBase provides the default behavior for
// every optional operation. Mount then blocks until the file system is
// unmounted:
//
//	err := fuse2.Mount("/mnt/hello", &helloFS{}, fuse2.Foreground, fuse2.Ro)
//
// Errors returned by operations are reported to the kernel as error
// numbers: a wrapped syscall.Errno is used as is, io/fs sentinel errors
// map to their usual numbers, and anything else becomes EIO.
package fuse2
