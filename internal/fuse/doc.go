/*
Package fuse runs a native operation table against the kernel. It plays
the part of libfuse's fuse_main_real for the adapter in pkg/fuse2: Main
parses the argument vector, mounts, serves requests by calling the slots
of the table and returns when the file system is unmounted.

# Runtimes

Two implementations are selected with build constraints:

	linux, default        github.com/hanwen/go-fuse/v2 raw protocol server
	-tags cgofuse          github.com/winfsp/cgofuse on top of libfuse

On other platforms without the cgofuse tag Main logs an error and
returns 1.

The go-fuse runtime reproduces the parts of the libfuse high-level
library the table relies on:

  - node ids are mapped to paths, with lookup counts, forget and subtree
    renames
  - getattr answers lookups; setattr is split into chmod, chown,
    truncate and utimens, in that order
  - readdir output is buffered per open directory and paged to the
    kernel by index
  - open, opendir, release and releasedir succeed when their slot is
    missing, statfs reports libfuse's defaults, every other missing slot
    answers ENOSYS
  - the uid=, gid=, umask=, use_ino, readdir_ino, kernel_cache,
    direct_io, entry_timeout= and attr_timeout= library options

Files are removed immediately on unlink, as with hard_remove. The runtime
never daemonizes; -f is accepted and implied.

# Arguments

	prog [-f] [-d] [-s] [-o opt[,opt...]]... mountpoint

Help and version flags are rejected. Unknown -o options are handed to the
kernel mount unchanged.
*/
package fuse
