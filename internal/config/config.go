package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/objectfs/fuse2go/pkg/errors"
	"github.com/objectfs/fuse2go/pkg/fuse2"
	"github.com/objectfs/fuse2go/pkg/utils"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "FUSE2GO_"

// Configuration represents the complete application configuration
type Configuration struct {
	Global     GlobalConfig     `yaml:"global"`
	Mount      MountConfig      `yaml:"mount"`
	Filesystem FilesystemConfig `yaml:"filesystem"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// GlobalConfig represents global application settings
type GlobalConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`

	// Rotation limits apply when LogFile is set.
	LogMaxSizeMB  int  `yaml:"log_max_size_mb"`
	LogMaxBackups int  `yaml:"log_max_backups"`
	LogMaxAgeDays int  `yaml:"log_max_age_days"`
	LogCompress   bool `yaml:"log_compress"`
}

// MountConfig describes one mount invocation. The boolean switches map
// one to one onto fuse2 mount options; Options carries any further
// tokens verbatim.
type MountConfig struct {
	MountPoint string `yaml:"mount_point"`
	Program    string `yaml:"program"`

	Foreground         bool `yaml:"foreground"`
	Debug              bool `yaml:"debug"`
	AllowOther         bool `yaml:"allow_other"`
	DefaultPermissions bool `yaml:"default_permissions"`
	ReadOnly           bool `yaml:"read_only"`
	KernelCache        bool `yaml:"kernel_cache"`
	UseIno             bool `yaml:"use_ino"`
	ReaddirIno         bool `yaml:"readdir_ino"`
	HardRemove         bool `yaml:"hard_remove"`
	NoAtime            bool `yaml:"noatime"`

	Uid *uint32 `yaml:"uid,omitempty"`
	Gid *uint32 `yaml:"gid,omitempty"`
	// Umask is an octal string such as "022".
	Umask string `yaml:"umask,omitempty"`

	Options []string `yaml:"options,omitempty"`
}

// FilesystemConfig selects the content served by the example file system.
type FilesystemConfig struct {
	FileName string `yaml:"file_name"`
	Content  string `yaml:"content"`
}

// MonitoringConfig represents monitoring settings
type MonitoringConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig represents metrics settings
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Address   string `yaml:"address"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// NewDefault returns a configuration with sensible defaults
func NewDefault() *Configuration {
	return &Configuration{
		Global: GlobalConfig{
			LogLevel:      "INFO",
			LogFormat:     "text",
			LogMaxSizeMB:  100,
			LogMaxBackups: 3,
			LogMaxAgeDays: 28,
		},
		Mount: MountConfig{
			Foreground: true,
		},
		Monitoring: MonitoringConfig{
			Metrics: MetricsConfig{
				Enabled:   false,
				Address:   ":9090",
				Path:      "/metrics",
				Namespace: "fuse2go",
			},
		},
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigLoad, "failed to read config file").
			WithComponent("config").
			WithPath(filename)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigLoad, "failed to parse config file").
			WithComponent("config").
			WithPath(filename)
	}

	return nil
}

// LoadFromEnv applies FUSE2GO_* environment overrides.
func (c *Configuration) LoadFromEnv() error {
	return c.loadFromEnv(os.LookupEnv)
}

func (c *Configuration) loadFromEnv(lookup func(string) (string, bool)) error {
	env := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return v, ok && v != ""
	}
	invalid := func(name, val string, err error) error {
		return errors.Wrap(err, errors.ErrCodeConfigLoad, fmt.Sprintf("invalid %s%s", EnvPrefix, name)).
			WithComponent("config").
			WithContext("value", val)
	}

	strs := map[string]*string{
		"LOG_LEVEL":         &c.Global.LogLevel,
		"LOG_FORMAT":        &c.Global.LogFormat,
		"LOG_FILE":          &c.Global.LogFile,
		"MOUNT_POINT":       &c.Mount.MountPoint,
		"PROGRAM":           &c.Mount.Program,
		"UMASK":             &c.Mount.Umask,
		"FILE_NAME":         &c.Filesystem.FileName,
		"CONTENT":           &c.Filesystem.Content,
		"METRICS_ADDRESS":   &c.Monitoring.Metrics.Address,
		"METRICS_PATH":      &c.Monitoring.Metrics.Path,
		"METRICS_NAMESPACE": &c.Monitoring.Metrics.Namespace,
	}
	for name, dst := range strs {
		if val, ok := env(name); ok {
			*dst = val
		}
	}

	bools := map[string]*bool{
		"FOREGROUND":      &c.Mount.Foreground,
		"DEBUG":           &c.Mount.Debug,
		"ALLOW_OTHER":     &c.Mount.AllowOther,
		"READ_ONLY":       &c.Mount.ReadOnly,
		"KERNEL_CACHE":    &c.Mount.KernelCache,
		"USE_INO":         &c.Mount.UseIno,
		"HARD_REMOVE":     &c.Mount.HardRemove,
		"METRICS_ENABLED": &c.Monitoring.Metrics.Enabled,
	}
	for name, dst := range bools {
		if val, ok := env(name); ok {
			b, err := strconv.ParseBool(val)
			if err != nil {
				return invalid(name, val, err)
			}
			*dst = b
		}
	}

	ids := map[string]**uint32{
		"UID": &c.Mount.Uid,
		"GID": &c.Mount.Gid,
	}
	for name, dst := range ids {
		if val, ok := env(name); ok {
			n, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return invalid(name, val, err)
			}
			id := uint32(n)
			*dst = &id
		}
	}

	if val, ok := env("OPTIONS"); ok {
		c.Mount.Options = splitList(val)
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SaveToFile saves the configuration to a YAML file
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigSave, "failed to marshal config").
			WithComponent("config")
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigSave, "failed to create config directory").
			WithComponent("config").
			WithPath(filename)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigSave, "failed to write config file").
			WithComponent("config").
			WithPath(filename)
	}

	return nil
}

// Validate validates the configuration
func (c *Configuration) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return errors.NewError(errors.ErrCodeConfigValidation, fmt.Sprintf(format, args...)).
			WithComponent("config")
	}

	if _, err := utils.ParseLogLevel(c.Global.LogLevel); err != nil {
		return invalid("invalid log_level: %s (must be one of: DEBUG, INFO, WARN, ERROR)", c.Global.LogLevel)
	}
	if _, err := utils.ParseLogFormat(c.Global.LogFormat); err != nil {
		return invalid("invalid log_format: %s (must be text or json)", c.Global.LogFormat)
	}
	if c.Global.LogMaxSizeMB < 0 || c.Global.LogMaxBackups < 0 || c.Global.LogMaxAgeDays < 0 {
		return invalid("log rotation limits must not be negative")
	}

	if c.Mount.MountPoint == "" {
		return invalid("mount.mount_point is required")
	}
	if c.Mount.ReadOnly && containsToken(c.Mount.Options, "-orw") {
		return invalid("mount.read_only conflicts with option -orw")
	}

	if c.Monitoring.Metrics.Enabled {
		if c.Monitoring.Metrics.Address == "" {
			return invalid("monitoring.metrics.address is required when metrics are enabled")
		}
		if !strings.HasPrefix(c.Monitoring.Metrics.Path, "/") {
			return invalid("monitoring.metrics.path must start with '/': %q", c.Monitoring.Metrics.Path)
		}
	}

	if _, err := c.MountOptions(); err != nil {
		return err
	}
	return nil
}

func containsToken(tokens []string, tok string) bool {
	for _, t := range tokens {
		if t == tok {
			return true
		}
	}
	return false
}

// MountOptions converts the mount section into fuse2 options, switches
// first and free-form tokens last.
func (c *Configuration) MountOptions() ([]fuse2.MountOption, error) {
	m := &c.Mount
	var opts []fuse2.MountOption

	switches := []struct {
		on  bool
		opt fuse2.MountOption
	}{
		{m.Foreground, fuse2.Foreground},
		{m.Debug, fuse2.Debug},
		{m.AllowOther, fuse2.AllowOther},
		{m.DefaultPermissions, fuse2.DefaultPermissions},
		{m.ReadOnly, fuse2.Ro},
		{m.KernelCache, fuse2.KernelCache},
		{m.UseIno, fuse2.UseIno},
		{m.ReaddirIno, fuse2.ReaddirIno},
		{m.HardRemove, fuse2.HardRemove},
		{m.NoAtime, fuse2.NoAtime},
	}
	for _, s := range switches {
		if s.on {
			opts = append(opts, s.opt)
		}
	}

	if m.Uid != nil {
		opts = append(opts, fuse2.Uid(*m.Uid))
	}
	if m.Gid != nil {
		opts = append(opts, fuse2.Gid(*m.Gid))
	}
	if m.Umask != "" {
		mask, err := strconv.ParseUint(m.Umask, 8, 12)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid mount.umask").
				WithComponent("config").
				WithContext("umask", m.Umask)
		}
		opts = append(opts, fuse2.Umask(uint16(mask)))
	}

	for _, tok := range m.Options {
		o, err := fuse2.ParseMountOption(tok)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid mount option").
				WithComponent("config").
				WithContext("option", tok)
		}
		opts = append(opts, o)
	}
	return opts, nil
}

// LoggerConfig builds the structured logger settings. A log file turns
// on size based rotation.
func (c *Configuration) LoggerConfig() (*utils.StructuredLoggerConfig, error) {
	level, err := utils.ParseLogLevel(c.Global.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid log_level").WithComponent("config")
	}
	format, err := utils.ParseLogFormat(c.Global.LogFormat)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid log_format").WithComponent("config")
	}

	cfg := utils.DefaultStructuredLoggerConfig()
	cfg.Level = level
	cfg.Format = format
	if c.Mount.Debug && level > utils.DEBUG {
		cfg.Level = utils.DEBUG
	}
	if c.Global.LogFile != "" {
		cfg.Rotation = &utils.RotationConfig{
			Filename:   c.Global.LogFile,
			MaxSize:    c.Global.LogMaxSizeMB,
			MaxBackups: c.Global.LogMaxBackups,
			MaxAge:     c.Global.LogMaxAgeDays,
			Compress:   c.Global.LogCompress,
		}
	}
	return cfg, nil
}
