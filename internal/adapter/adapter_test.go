package adapter

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"

	"github.com/objectfs/fuse2go/internal/config"
	"github.com/objectfs/fuse2go/internal/hellofs"
	"github.com/objectfs/fuse2go/internal/native"
	fserrors "github.com/objectfs/fuse2go/pkg/errors"
	"github.com/objectfs/fuse2go/pkg/fuse2"
	"github.com/objectfs/fuse2go/pkg/utils"
)

func testConfig() *config.Configuration {
	cfg := config.NewDefault()
	cfg.Mount.MountPoint = "/mnt/hello"
	cfg.Mount.Program = "hellofs"
	cfg.Mount.ReadOnly = true
	return cfg
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("valid configuration", func(t *testing.T) {
		a, err := New(testConfig(), hellofs.New("", ""), WithLogger(utils.NewNopLogger()))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if len(a.opts) != 2 {
			t.Errorf("opts = %v, want -f -oro", a.opts)
		}
		if a.Metrics() == nil {
			t.Error("Metrics() is nil")
		}
	})

	t.Run("nil configuration", func(t *testing.T) {
		if _, err := New(nil, hellofs.New("", "")); err == nil {
			t.Error("New(nil) error = nil")
		}
	})

	t.Run("nil filesystem", func(t *testing.T) {
		if _, err := New(testConfig(), nil); err == nil {
			t.Error("New(cfg, nil) error = nil")
		}
	})

	t.Run("invalid configuration", func(t *testing.T) {
		cfg := testConfig()
		cfg.Mount.MountPoint = ""
		_, err := New(cfg, hellofs.New("", ""))
		if fuse2.Errno(err) != syscall.EINVAL {
			t.Errorf("New() errno = %v, want EINVAL (err %v)", fuse2.Errno(err), err)
		}
	})

	t.Run("logger from configuration", func(t *testing.T) {
		a, err := New(testConfig(), hellofs.New("", ""))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if err := a.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
}

func TestRun(t *testing.T) {
	t.Parallel()

	var argv []string
	var st native.Stat
	var rc int
	kernel := func(args [][]byte, ops *native.Operations, h native.Handle) int {
		argv = native.GoStrings(args)
		ctx := &native.Context{PrivateData: h}
		ops.Init(ctx, &native.ConnInfo{})
		rc = ops.Getattr(ctx, native.MustCString("/test"), &st)
		ops.Getattr(ctx, native.MustCString("/missing"), &st)
		ops.Destroy(ctx, h)
		return 0
	}

	a, err := New(testConfig(), hellofs.New("", ""), WithLogger(utils.NewNopLogger()), WithMain(kernel))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"hellofs", "-f", "-oro", "/mnt/hello"}
	if len(argv) != len(want) {
		t.Fatalf("argv = %q, want %q", argv, want)
	}
	for i := range want {
		if argv[i] != want[i] {
			t.Errorf("argv[%d] = %q, want %q", i, argv[i], want[i])
		}
	}
	if rc != 0 {
		t.Errorf("getattr = %d, want 0", rc)
	}

	got := a.Metrics().GetMetrics()["getattr"]
	if got.Count != 2 || got.Errors != 1 {
		t.Errorf("getattr metrics = %+v, want 2 calls with 1 error", got)
	}
}

func TestRunMountFailure(t *testing.T) {
	t.Parallel()

	a, err := New(testConfig(), hellofs.New("", ""),
		WithLogger(utils.NewNopLogger()),
		WithMain(func([][]byte, *native.Operations, native.Handle) int { return 1 }))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	err = a.Run(context.Background())
	var fe *fserrors.Error
	if !errors.As(err, &fe) || fe.Code != fserrors.ErrCodeMountFailed {
		t.Errorf("Run() error = %v, want MOUNT_FAILED", err)
	}
}

func TestRunTwice(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	kernel := func(_ [][]byte, ops *native.Operations, h native.Handle) int {
		close(entered)
		<-release
		return 0
	}
	a, err := New(testConfig(), hellofs.New("", ""), WithLogger(utils.NewNopLogger()), WithMain(kernel))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.Run(context.Background()); err != nil {
			t.Errorf("first Run() error = %v", err)
		}
	}()
	<-entered

	err = a.Run(context.Background())
	var fe *fserrors.Error
	if !errors.As(err, &fe) || fe.Code != fserrors.ErrCodeAlreadyStarted {
		t.Errorf("second Run() error = %v, want ALREADY_STARTED", err)
	}
	close(release)
	wg.Wait()
}
