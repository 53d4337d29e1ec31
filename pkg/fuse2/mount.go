package fuse2

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/objectfs/fuse2go/internal/fuse"
	"github.com/objectfs/fuse2go/internal/native"
	"github.com/objectfs/fuse2go/pkg/errors"
	"github.com/objectfs/fuse2go/pkg/utils"
)

// MetricsRecorder receives one record per dispatched operation.
type MetricsRecorder interface {
	RecordOperation(operation string, duration time.Duration, size int64, success bool)
	RecordError(operation string, err error)
}

// Mounter mounts file systems. The zero value logs to stderr at INFO,
// records no metrics and uses the platform FUSE runtime.
type Mounter struct {
	Logger  *utils.StructuredLogger
	Metrics MetricsRecorder

	// Program is passed as argv[0]. Defaults to the executable name.
	Program string

	// Main replaces the FUSE runtime entry point.
	Main native.MainFunc
}

// Mount serves fsys at mountpoint until it is unmounted, using the
// default Mounter.
func Mount(mountpoint string, fsys Filesystem, opts ...MountOption) error {
	return (&Mounter{}).Mount(mountpoint, fsys, opts...)
}

// Mount serves fsys at mountpoint with the given options and blocks
// until the file system is unmounted. Any failure reported by the
// runtime is returned as an EIO error with code MOUNT_FAILED.
func (mt *Mounter) Mount(mountpoint string, fsys Filesystem, opts ...MountOption) error {
	if fsys == nil {
		return errors.NewError(errors.ErrCodeInvalidConfig, "filesystem is nil").
			WithComponent("fuse2").
			WithOperation("mount")
	}

	argv, err := buildArgv(mt.program(), mountpoint, opts)
	if err != nil {
		return err
	}

	log := mt.Logger
	if log == nil {
		log, err = utils.NewStructuredLogger(nil)
		if err != nil {
			return err
		}
	}

	debug := false
	for _, o := range opts {
		if o.kind == optDebug {
			debug = true
		}
	}

	id := uuid.NewString()
	m := newMount(id, fsys, log, mt.Metrics, debug)
	ops := m.operations()

	h := native.NewHandle(m)
	defer h.Delete()

	rendered := make([]string, 0, len(opts))
	for _, o := range opts {
		rendered = append(rendered, o.Render())
	}
	m.log.Info("mounting filesystem", map[string]interface{}{
		"mountpoint": mountpoint,
		"options":    strings.Join(rendered, " "),
		"operations": strings.Join(ops.Registered(), ","),
	})

	fuseMain := mt.Main
	if fuseMain == nil {
		fuse.SetLogger(log)
		fuseMain = fuse.Main
	}

	if rc := fuseMain(argv, ops, h); rc != 0 {
		return errors.NewError(errors.ErrCodeMountFailed, fmt.Sprintf("fuse main returned %d", rc)).
			WithComponent("fuse2").
			WithOperation("mount").
			WithPath(mountpoint).
			WithErrno(syscall.EIO)
	}

	m.log.Info("filesystem unmounted", map[string]interface{}{"mountpoint": mountpoint})
	return nil
}

func (mt *Mounter) program() string {
	if mt.Program != "" {
		return mt.Program
	}
	if len(os.Args) > 0 && os.Args[0] != "" {
		return filepath.Base(os.Args[0])
	}
	return "fuse2go"
}
