package fuse

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/objectfs/fuse2go/pkg/errors"
	"github.com/objectfs/fuse2go/pkg/utils"
)

var runtimeLogger atomic.Pointer[utils.StructuredLogger]

// SetLogger sets the logger used by Main. A nil logger restores the
// default, which writes warnings and errors to stderr.
func SetLogger(l *utils.StructuredLogger) {
	if l != nil {
		l = l.WithComponent("fuse")
	}
	runtimeLogger.Store(l)
}

func logger() *utils.StructuredLogger {
	if l := runtimeLogger.Load(); l != nil {
		return l
	}
	cfg := utils.DefaultStructuredLoggerConfig()
	cfg.Level = utils.WARN
	l, err := utils.NewStructuredLogger(cfg)
	if err != nil {
		return utils.NewNopLogger()
	}
	l = l.WithComponent("fuse")
	runtimeLogger.CompareAndSwap(nil, l)
	return runtimeLogger.Load()
}

func mountError(code errors.ErrorCode, msg, mountpoint string) *errors.Error {
	return errors.NewError(code, msg).
		WithComponent("fuse").
		WithOperation("mount").
		WithPath(mountpoint)
}

// validateMountPoint checks that mountpoint is an existing directory that
// is not already a FUSE mount. A non-empty directory only draws a warning.
func validateMountPoint(mountpoint string, log *utils.StructuredLogger) error {
	if mountpoint == "" {
		return mountError(errors.ErrCodeInvalidConfig, "mount point cannot be empty", mountpoint)
	}

	info, err := os.Stat(mountpoint)
	if err != nil {
		if os.IsNotExist(err) {
			return mountError(errors.ErrCodeFileNotFound, "mount point does not exist", mountpoint).WithCause(err)
		}
		return mountError(errors.ErrCodeMountFailed, "cannot access mount point", mountpoint).WithCause(err)
	}
	if !info.IsDir() {
		return mountError(errors.ErrCodeInvalidConfig, "mount point is not a directory", mountpoint)
	}

	entries, err := os.ReadDir(mountpoint)
	if err != nil {
		return mountError(errors.ErrCodeMountFailed, "cannot read mount point directory", mountpoint).WithCause(err)
	}
	if len(entries) > 0 {
		log.Warn("mount point is not empty", map[string]interface{}{"mountpoint": mountpoint})
	}

	if isMounted(mountpoint) {
		return mountError(errors.ErrCodeMountFailed, "mount point is already mounted", mountpoint)
	}
	return nil
}

// isMounted reports whether /proc/mounts lists a FUSE file system at
// mountpoint. It returns false where /proc/mounts cannot be read.
func isMounted(mountpoint string) bool {
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return false
	}
	defer f.Close()

	abs, err := filepath.Abs(mountpoint)
	if err != nil {
		return false
	}
	return mountsContain(bufio.NewScanner(f), abs)
}

func mountsContain(sc *bufio.Scanner, mountpoint string) bool {
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		if unescapeMount(fields[1]) == mountpoint && strings.HasPrefix(fields[2], "fuse") {
			return true
		}
	}
	return false
}

// unescapeMount undoes the octal escapes /proc/mounts uses for blanks.
func unescapeMount(s string) string {
	r := strings.NewReplacer(`\040`, " ", `\011`, "\t", `\012`, "\n", `\134`, `\`)
	return r.Replace(s)
}
