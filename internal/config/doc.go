/*
Package config loads the settings of a fuse2go mount from defaults, a YAML
file and FUSE2GO_* environment variables, in increasing order of
precedence. Command line flags are applied by the caller on top.

# Configuration Structure

	global:
	  log_level: INFO          # TRACE, DEBUG, INFO, WARN, ERROR
	  log_format: text         # text or json
	  log_file: ""             # rotated with lumberjack when set
	  log_max_size_mb: 100
	  log_max_backups: 3
	  log_max_age_days: 28

	mount:
	  mount_point: /mnt/hello
	  foreground: true
	  debug: false
	  allow_other: false
	  read_only: false
	  uid: 1000                # optional
	  gid: 1000                # optional
	  umask: "022"             # optional, octal
	  options: [-ofsname=hello]

	filesystem:
	  file_name: test
	  content: "Hello World\n"

	monitoring:
	  metrics:
	    enabled: false
	    address: ":9090"
	    path: /metrics
	    namespace: fuse2go

# Environment Variables

Every scalar in the global and mount sections has an override named after
its key, for example FUSE2GO_LOG_LEVEL, FUSE2GO_MOUNT_POINT,
FUSE2GO_ALLOW_OTHER, FUSE2GO_UID and FUSE2GO_UMASK. FUSE2GO_OPTIONS takes a
comma separated list of option tokens. Booleans accept the values understood
by strconv.ParseBool; a malformed value is an error.

# Usage

	cfg := config.NewDefault()
	if err := cfg.LoadFromFile(path); err != nil {
		return err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	opts, _ := cfg.MountOptions()
*/
package config
