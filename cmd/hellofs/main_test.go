package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFlags(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "hellofs.yaml")
	content := "mount:\n  allow_other: true\nfilesystem:\n  content: from file\n"
	if err := os.WriteFile(configFile, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	f := &flags{}
	cmd := newRootCmd(f)
	args := []string{"--config", configFile, "-d", "-o", "-ofsname=hello", "--file-name", "greeting", "/mnt/hello"}
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	cfg, err := f.load(cmd, cmd.Flags().Args())
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if cfg.Mount.MountPoint != "/mnt/hello" {
		t.Errorf("MountPoint = %q", cfg.Mount.MountPoint)
	}
	if cfg.Mount.Program != "hellofs" {
		t.Errorf("Program = %q, want hellofs", cfg.Mount.Program)
	}
	if !cfg.Mount.Debug || !cfg.Mount.AllowOther || !cfg.Mount.ReadOnly {
		t.Errorf("Debug, AllowOther, ReadOnly = %v, %v, %v", cfg.Mount.Debug, cfg.Mount.AllowOther, cfg.Mount.ReadOnly)
	}
	if len(cfg.Mount.Options) != 1 || cfg.Mount.Options[0] != "-ofsname=hello" {
		t.Errorf("Options = %q", cfg.Mount.Options)
	}
	if cfg.Filesystem.FileName != "greeting" || cfg.Filesystem.Content != "from file" {
		t.Errorf("Filesystem = %+v", cfg.Filesystem)
	}
}

func TestLoadRequiresMountPoint(t *testing.T) {
	f := &flags{}
	cmd := newRootCmd(f)
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatal(err)
	}
	if _, err := f.load(cmd, nil); err == nil {
		t.Error("load() without mount point error = nil")
	}
}

func TestLoadRejectsBadOption(t *testing.T) {
	f := &flags{}
	cmd := newRootCmd(f)
	if err := cmd.ParseFlags([]string{"-o", "allow_other", "/mnt"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.load(cmd, cmd.Flags().Args()); err == nil {
		t.Error("load() with option lacking '-' error = nil")
	}
}
