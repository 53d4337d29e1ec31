// Command hellofs mounts a read-only file system holding one file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/objectfs/fuse2go/internal/adapter"
	"github.com/objectfs/fuse2go/internal/config"
	"github.com/objectfs/fuse2go/internal/hellofs"
)

type flags struct {
	configFile     string
	debug          bool
	allowOther     bool
	options        []string
	fileName       string
	content        string
	logLevel       string
	metrics        bool
	metricsAddress string
}

func newRootCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "hellofs [flags] MOUNTPOINT",
		Short:         "Mount a read-only hello world file system",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd, args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.configFile, "config", "c", "", "YAML configuration file")
	fl.BoolVarP(&f.debug, "debug", "d", false, "log every FUSE operation")
	fl.BoolVar(&f.allowOther, "allow-other", false, "allow access by other users")
	fl.StringArrayVarP(&f.options, "option", "o", nil, "extra mount option token, e.g. -o -ofsname=hello")
	fl.StringVar(&f.fileName, "file-name", "", "name of the served file (default \"test\")")
	fl.StringVar(&f.content, "content", "", "content of the served file")
	fl.StringVar(&f.logLevel, "log-level", "", "DEBUG, INFO, WARN or ERROR")
	fl.BoolVar(&f.metrics, "metrics", false, "serve Prometheus metrics")
	fl.StringVar(&f.metricsAddress, "metrics-address", "", "listen address of the metrics endpoint")
	return cmd
}

// load layers defaults, the config file, the environment and the flags
// that were set explicitly.
func (f *flags) load(cmd *cobra.Command, args []string) (*config.Configuration, error) {
	cfg := config.NewDefault()
	if f.configFile != "" {
		if err := cfg.LoadFromFile(f.configFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if len(args) == 1 {
		cfg.Mount.MountPoint = args[0]
	}
	if cfg.Mount.Program == "" {
		cfg.Mount.Program = cmd.Root().Name()
	}
	if changed("debug") {
		cfg.Mount.Debug = f.debug
	}
	if changed("allow-other") {
		cfg.Mount.AllowOther = f.allowOther
	}
	if changed("option") {
		cfg.Mount.Options = append(cfg.Mount.Options, f.options...)
	}
	if changed("file-name") {
		cfg.Filesystem.FileName = f.fileName
	}
	if changed("content") {
		cfg.Filesystem.Content = f.content
	}
	if changed("log-level") {
		cfg.Global.LogLevel = f.logLevel
	}
	if changed("metrics") {
		cfg.Monitoring.Metrics.Enabled = f.metrics
	}
	if changed("metrics-address") {
		cfg.Monitoring.Metrics.Address = f.metricsAddress
	}
	cfg.Mount.ReadOnly = true

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Configuration) error {
	a, err := adapter.New(cfg, hellofs.New(cfg.Filesystem.FileName, cfg.Filesystem.Content))
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Run(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&flags{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "hellofs: %v\n", err)
		os.Exit(1)
	}
}
