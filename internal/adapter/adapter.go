package adapter

import (
	"context"
	"sync"
	"time"

	"github.com/objectfs/fuse2go/internal/config"
	"github.com/objectfs/fuse2go/internal/metrics"
	"github.com/objectfs/fuse2go/internal/native"
	"github.com/objectfs/fuse2go/pkg/errors"
	"github.com/objectfs/fuse2go/pkg/fuse2"
	"github.com/objectfs/fuse2go/pkg/utils"
)

// Adapter mounts one file system as described by a configuration: it
// owns the logger, the metrics collector and the mount options.
type Adapter struct {
	config  *config.Configuration
	fs      fuse2.Filesystem
	opts    []fuse2.MountOption
	log     *utils.StructuredLogger
	metrics *metrics.Collector
	main    native.MainFunc

	mu      sync.Mutex
	running bool
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithLogger replaces the logger built from the configuration.
func WithLogger(l *utils.StructuredLogger) Option {
	return func(a *Adapter) { a.log = l }
}

// WithMain replaces the FUSE runtime entry point.
func WithMain(fn native.MainFunc) Option {
	return func(a *Adapter) { a.main = fn }
}

// New validates cfg and prepares the components of a mount.
func New(cfg *config.Configuration, fsys fuse2.Filesystem, opts ...Option) (*Adapter, error) {
	if cfg == nil {
		return nil, errors.NewError(errors.ErrCodeMissingConfig, "configuration is nil").
			WithComponent("adapter")
	}
	if fsys == nil {
		return nil, errors.NewError(errors.ErrCodeInvalidConfig, "filesystem is nil").
			WithComponent("adapter")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Adapter{config: cfg, fs: fsys}
	for _, o := range opts {
		o(a)
	}

	mountOpts, err := cfg.MountOptions()
	if err != nil {
		return nil, err
	}
	a.opts = mountOpts

	if a.log == nil {
		lc, err := cfg.LoggerConfig()
		if err != nil {
			return nil, err
		}
		if a.log, err = utils.NewStructuredLogger(lc); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidConfig, "failed to create logger").
				WithComponent("adapter")
		}
	}

	m := cfg.Monitoring.Metrics
	a.metrics, err = metrics.NewCollector(&metrics.Config{
		Enabled:   m.Enabled,
		Address:   m.Address,
		Path:      m.Path,
		Namespace: m.Namespace,
		Labels:    map[string]string{"mountpoint": cfg.Mount.MountPoint},
	}, a.log)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidConfig, "failed to create metrics collector").
			WithComponent("adapter")
	}

	return a, nil
}

// Metrics returns the collector fed by the mount.
func (a *Adapter) Metrics() *metrics.Collector {
	return a.metrics
}

// Run starts the metrics endpoint, mounts the file system and blocks
// until it is unmounted. The endpoint stops when Run returns or ctx is
// done.
func (a *Adapter) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return errors.NewError(errors.ErrCodeAlreadyStarted, "adapter is already running").
			WithComponent("adapter")
	}
	a.running = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := a.metrics.Start(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidConfig, "failed to start metrics endpoint").
			WithComponent("adapter")
	}
	defer func() {
		stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = a.metrics.Stop(stopCtx)
	}()

	mounter := &fuse2.Mounter{
		Logger:  a.log,
		Metrics: a.metrics,
		Program: a.config.Mount.Program,
		Main:    a.main,
	}

	a.metrics.MountStarted()
	defer a.metrics.MountStopped()

	start := time.Now()
	err := mounter.Mount(a.config.Mount.MountPoint, a.fs, a.opts...)
	fields := map[string]interface{}{
		"mountpoint": a.config.Mount.MountPoint,
		"uptime":     time.Since(start).Truncate(time.Millisecond).String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		if fe, ok := err.(*errors.Error); ok {
			fields["diagnostic"] = fe.DetailedDiagnostic()
		}
		a.log.Error("mount failed", fields)
		return err
	}
	a.log.Info("mount finished", fields)
	return nil
}

// Close releases the logger's output.
func (a *Adapter) Close() error {
	return a.log.Close()
}
