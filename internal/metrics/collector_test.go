package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testConfig() *Config {
	return &Config{
		Enabled:   true,
		Address:   "127.0.0.1:0",
		Path:      "/metrics",
		Namespace: "fuse2go",
		Subsystem: "test",
	}
}

func TestNewCollector(t *testing.T) {
	t.Parallel()

	t.Run("with valid config", func(t *testing.T) {
		config := testConfig()
		collector, err := NewCollector(config, nil)
		if err != nil {
			t.Fatalf("NewCollector() error = %v, want nil", err)
		}
		if collector.config != config {
			t.Error("collector.config does not match input config")
		}
		if collector.Registry() == nil {
			t.Error("collector.registry is nil")
		}
	})

	t.Run("with nil config uses defaults", func(t *testing.T) {
		collector, err := NewCollector(nil, nil)
		if err != nil {
			t.Fatalf("NewCollector(nil) error = %v, want nil", err)
		}
		if collector.config.Address != ":9090" {
			t.Errorf("default address = %q, want %q", collector.config.Address, ":9090")
		}
		if collector.config.Namespace != "fuse2go" {
			t.Errorf("default namespace = %q, want %q", collector.config.Namespace, "fuse2go")
		}
	})

	t.Run("disabled collector drops records", func(t *testing.T) {
		collector, err := NewCollector(&Config{Enabled: false}, nil)
		if err != nil {
			t.Fatalf("NewCollector() error = %v", err)
		}
		if collector.Registry() != nil {
			t.Error("disabled collector has a registry")
		}
		collector.RecordOperation("read", time.Millisecond, 10, true)
		collector.RecordError("read", syscall.EIO)
		collector.MountStarted()
		if err := collector.Start(context.Background()); err != nil {
			t.Errorf("Start() on disabled collector error = %v", err)
		}
		if got := collector.GetMetrics()["read"].Count; got != 1 {
			t.Errorf("internal count = %d, want 1", got)
		}
	})
}

func TestRecordOperation(t *testing.T) {
	t.Parallel()

	collector, err := NewCollector(testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}

	collector.RecordOperation("read", 2*time.Millisecond, 4096, true)
	collector.RecordOperation("read", 4*time.Millisecond, 0, true)
	collector.RecordOperation("getattr", time.Millisecond, 0, false)
	collector.RecordError("getattr", syscall.ENOENT)
	collector.RecordError("getattr", fmt.Errorf("opaque"))
	collector.RecordError("getattr", nil)

	if got := testutil.ToFloat64(collector.operationCounter.WithLabelValues("read", "success")); got != 2 {
		t.Errorf("read successes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.operationCounter.WithLabelValues("getattr", "error")); got != 1 {
		t.Errorf("getattr errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.errorCounter.WithLabelValues("getattr", "ENOENT")); got != 1 {
		t.Errorf("ENOENT count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.errorCounter.WithLabelValues("getattr", "other")); got != 1 {
		t.Errorf("other count = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(collector.operationSize); n != 1 {
		t.Errorf("size series = %d, want 1 (zero sizes are not observed)", n)
	}

	read := collector.GetMetrics()["read"]
	if read.Count != 2 || read.TotalSize != 4096 || read.Errors != 0 {
		t.Errorf("read metrics = %+v", read)
	}
	if read.AvgDuration != 3*time.Millisecond {
		t.Errorf("read avg duration = %v, want 3ms", read.AvgDuration)
	}

	collector.ResetMetrics()
	if len(collector.GetMetrics()) != 0 {
		t.Error("ResetMetrics() kept operations")
	}
}

func TestErrnoLabel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{syscall.ENOENT, "ENOENT"},
		{fmt.Errorf("wrapped: %w", syscall.EACCES), "EACCES"},
		{syscall.Errno(4000), "4000"},
		{fmt.Errorf("plain"), "other"},
	}
	for _, tc := range cases {
		if got := errnoLabel(tc.err); got != tc.want {
			t.Errorf("errnoLabel(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestActiveMounts(t *testing.T) {
	t.Parallel()

	collector, err := NewCollector(testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	collector.MountStarted()
	collector.MountStarted()
	collector.MountStopped()
	if got := testutil.ToFloat64(collector.activeMounts); got != 1 {
		t.Errorf("active mounts = %v, want 1", got)
	}
}

func TestServeMetrics(t *testing.T) {
	t.Parallel()

	collector, err := NewCollector(testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := collector.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() { _ = collector.Stop(context.Background()) }()

	collector.RecordOperation("readdir", time.Millisecond, 0, true)

	base := "http://" + collector.Addr().String()
	get := func(path string) string {
		t.Helper()
		resp, err := http.Get(base + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("GET %s read error = %v", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d", path, resp.StatusCode)
		}
		return string(body)
	}

	if body := get("/metrics"); !strings.Contains(body, `fuse2go_test_operations_total{operation="readdir",status="success"} 1`) {
		t.Errorf("/metrics missing readdir counter:\n%s", body)
	}
	if body := get("/health"); !strings.Contains(body, "healthy") {
		t.Errorf("/health = %q", body)
	}
	if body := get("/debug/operations"); !strings.Contains(body, "readdir") {
		t.Errorf("/debug/operations = %q", body)
	}
}
