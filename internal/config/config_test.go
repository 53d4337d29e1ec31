package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/objectfs/fuse2go/pkg/fuse2"
	"github.com/objectfs/fuse2go/pkg/utils"
)

func validConfig() *Configuration {
	cfg := NewDefault()
	cfg.Mount.MountPoint = "/mnt/hello"
	return cfg
}

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()

	if cfg.Global.LogLevel != "INFO" {
		t.Errorf("Expected LogLevel to be INFO, got %s", cfg.Global.LogLevel)
	}
	if !cfg.Mount.Foreground {
		t.Error("Expected Foreground to be enabled by default")
	}
	if cfg.Monitoring.Metrics.Enabled {
		t.Error("Expected metrics to be disabled by default")
	}
	if cfg.Monitoring.Metrics.Path != "/metrics" {
		t.Errorf("Expected metrics path /metrics, got %s", cfg.Monitoring.Metrics.Path)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  func() *Configuration
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			config: validConfig,
		},
		{
			name: "missing mount point",
			config: func() *Configuration {
				return NewDefault()
			},
			wantErr: true,
			errMsg:  "mount_point is required",
		},
		{
			name: "invalid log level",
			config: func() *Configuration {
				cfg := validConfig()
				cfg.Global.LogLevel = "INVALID"
				return cfg
			},
			wantErr: true,
			errMsg:  "invalid log_level",
		},
		{
			name: "invalid log format",
			config: func() *Configuration {
				cfg := validConfig()
				cfg.Global.LogFormat = "xml"
				return cfg
			},
			wantErr: true,
			errMsg:  "invalid log_format",
		},
		{
			name: "read only with rw",
			config: func() *Configuration {
				cfg := validConfig()
				cfg.Mount.ReadOnly = true
				cfg.Mount.Options = []string{"-orw"}
				return cfg
			},
			wantErr: true,
			errMsg:  "conflicts",
		},
		{
			name: "bad umask",
			config: func() *Configuration {
				cfg := validConfig()
				cfg.Mount.Umask = "0988"
				return cfg
			},
			wantErr: true,
			errMsg:  "umask",
		},
		{
			name: "option without dash",
			config: func() *Configuration {
				cfg := validConfig()
				cfg.Mount.Options = []string{"allow_other"}
				return cfg
			},
			wantErr: true,
			errMsg:  "invalid mount option",
		},
		{
			name: "metrics path",
			config: func() *Configuration {
				cfg := validConfig()
				cfg.Monitoring.Metrics.Enabled = true
				cfg.Monitoring.Metrics.Path = "metrics"
				return cfg
			},
			wantErr: true,
			errMsg:  "monitoring.metrics.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config().Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err != nil && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, want error containing %v", err, tt.errMsg)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")

	configContent := `
global:
  log_level: DEBUG
  log_format: json

mount:
  mount_point: /mnt/hello
  allow_other: true
  read_only: true
  uid: 1000
  umask: "022"
  options:
    - -ofsname=hello

filesystem:
  file_name: greeting
  content: "hi there\n"
`
	if err := os.WriteFile(configFile, []byte(configContent), 0600); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	cfg := NewDefault()
	if err := cfg.LoadFromFile(configFile); err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Global.LogLevel != "DEBUG" || cfg.Global.LogFormat != "json" {
		t.Errorf("Global = %+v", cfg.Global)
	}
	if cfg.Mount.MountPoint != "/mnt/hello" || !cfg.Mount.AllowOther || !cfg.Mount.ReadOnly {
		t.Errorf("Mount = %+v", cfg.Mount)
	}
	if !cfg.Mount.Foreground {
		t.Error("Expected default Foreground to survive a partial file")
	}
	if cfg.Mount.Uid == nil || *cfg.Mount.Uid != 1000 {
		t.Errorf("Expected uid 1000, got %v", cfg.Mount.Uid)
	}
	if cfg.Mount.Gid != nil {
		t.Errorf("Expected no gid, got %d", *cfg.Mount.Gid)
	}
	if cfg.Filesystem.FileName != "greeting" || cfg.Filesystem.Content != "hi there\n" {
		t.Errorf("Filesystem = %+v", cfg.Filesystem)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadFromFileNonExistent(t *testing.T) {
	cfg := NewDefault()
	if err := cfg.LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error when loading non-existent config file")
	}
}

func TestLoadFromEnv(t *testing.T) {
	testEnvVars := map[string]string{
		"FUSE2GO_LOG_LEVEL":       "ERROR",
		"FUSE2GO_MOUNT_POINT":     "/mnt/env",
		"FUSE2GO_DEBUG":           "true",
		"FUSE2GO_FOREGROUND":      "false",
		"FUSE2GO_UID":             "42",
		"FUSE2GO_GID":             "7",
		"FUSE2GO_OPTIONS":         "-oallow_other, -ofsname=env,",
		"FUSE2GO_METRICS_ENABLED": "1",
	}
	for key, value := range testEnvVars {
		t.Setenv(key, value)
	}

	cfg := NewDefault()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Global.LogLevel != "ERROR" {
		t.Errorf("Expected LogLevel to be ERROR, got %s", cfg.Global.LogLevel)
	}
	if cfg.Mount.MountPoint != "/mnt/env" {
		t.Errorf("Expected mount point /mnt/env, got %s", cfg.Mount.MountPoint)
	}
	if !cfg.Mount.Debug || cfg.Mount.Foreground {
		t.Errorf("Debug, Foreground = %v, %v", cfg.Mount.Debug, cfg.Mount.Foreground)
	}
	if cfg.Mount.Uid == nil || *cfg.Mount.Uid != 42 || cfg.Mount.Gid == nil || *cfg.Mount.Gid != 7 {
		t.Errorf("Expected uid 42 and gid 7, got %v %v", cfg.Mount.Uid, cfg.Mount.Gid)
	}
	if want := []string{"-oallow_other", "-ofsname=env"}; !reflect.DeepEqual(cfg.Mount.Options, want) {
		t.Errorf("Options = %q, want %q", cfg.Mount.Options, want)
	}
	if !cfg.Monitoring.Metrics.Enabled {
		t.Error("Expected metrics to be enabled")
	}
}

func TestLoadFromEnvInvalid(t *testing.T) {
	cases := map[string]string{
		"FUSE2GO_DEBUG": "maybe",
		"FUSE2GO_UID":   "-1",
	}
	for key, val := range cases {
		cfg := NewDefault()
		lookup := func(name string) (string, bool) {
			if name == key {
				return val, true
			}
			return "", false
		}
		if err := cfg.loadFromEnv(lookup); err == nil {
			t.Errorf("%s=%s: expected error", key, val)
		}
	}
}

func TestSaveToFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := validConfig()
	cfg.Mount.Umask = "027"
	if err := cfg.SaveToFile(configFile); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded := NewDefault()
	if err := loaded.LoadFromFile(configFile); err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, loaded) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestMountOptions(t *testing.T) {
	uid := uint32(1000)
	cfg := validConfig()
	cfg.Mount.Debug = true
	cfg.Mount.ReadOnly = true
	cfg.Mount.Uid = &uid
	cfg.Mount.Umask = "022"
	cfg.Mount.Options = []string{"-ofsname=hello"}

	opts, err := cfg.MountOptions()
	if err != nil {
		t.Fatalf("MountOptions() error = %v", err)
	}

	var got []string
	for _, o := range opts {
		got = append(got, o.Render())
	}
	want := []string{"-f", "-d", "-oro", "-ouid=1000", "-oumask=22", "-ofsname=hello"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MountOptions() = %q, want %q", got, want)
	}
	if opts[0] != fuse2.Foreground {
		t.Errorf("first option = %v, want Foreground", opts[0])
	}
}

func TestLoggerConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Global.LogLevel = "WARN"
	cfg.Global.LogFormat = "json"
	cfg.Global.LogFile = filepath.Join(t.TempDir(), "fuse2go.log")

	lc, err := cfg.LoggerConfig()
	if err != nil {
		t.Fatalf("LoggerConfig() error = %v", err)
	}
	if lc.Level != utils.WARN || lc.Format != utils.FormatJSON {
		t.Errorf("Level, Format = %v, %v", lc.Level, lc.Format)
	}
	if lc.Rotation == nil || lc.Rotation.Filename != cfg.Global.LogFile || lc.Rotation.MaxSize != 100 {
		t.Errorf("Rotation = %+v", lc.Rotation)
	}

	cfg.Mount.Debug = true
	lc, err = cfg.LoggerConfig()
	if err != nil {
		t.Fatalf("LoggerConfig() error = %v", err)
	}
	if lc.Level != utils.DEBUG {
		t.Errorf("debug mount level = %v, want DEBUG", lc.Level)
	}
}
