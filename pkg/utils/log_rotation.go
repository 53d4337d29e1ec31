package utils

import (
	"fmt"
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RotationConfig holds configuration for log rotation
type RotationConfig struct {
	// Filename is the file to write logs to
	Filename string `yaml:"filename"`

	// MaxSize is the maximum size in megabytes before rotation
	MaxSize int `yaml:"max_size_mb"`

	// MaxAge is the maximum age in days to retain old files (0 = no age limit)
	MaxAge int `yaml:"max_age_days"`

	// MaxBackups is the maximum number of old log files to retain (0 = retain all)
	MaxBackups int `yaml:"max_backups"`

	Compress  bool `yaml:"compress"`
	LocalTime bool `yaml:"local_time"`
}

// LogRotator is a size-rotated log file.
type LogRotator struct {
	out *lumberjack.Logger
}

var _ io.WriteCloser = (*LogRotator)(nil)

// NewLogRotator creates a new log rotator
func NewLogRotator(config *RotationConfig) (*LogRotator, error) {
	if config == nil {
		return nil, fmt.Errorf("rotation config is required")
	}
	if config.Filename == "" {
		return nil, fmt.Errorf("filename is required")
	}
	if config.MaxSize < 0 || config.MaxAge < 0 || config.MaxBackups < 0 {
		return nil, fmt.Errorf("rotation limits must not be negative")
	}

	return &LogRotator{
		out: &lumberjack.Logger{
			Filename:   config.Filename,
			MaxSize:    config.MaxSize,
			MaxAge:     config.MaxAge,
			MaxBackups: config.MaxBackups,
			Compress:   config.Compress,
			LocalTime:  config.LocalTime,
		},
	}, nil
}

// Write implements io.Writer
func (lr *LogRotator) Write(p []byte) (int, error) {
	return lr.out.Write(p)
}

// Rotate closes the current file and starts a new one.
func (lr *LogRotator) Rotate() error {
	return lr.out.Rotate()
}

// Close closes the current log file.
func (lr *LogRotator) Close() error {
	return lr.out.Close()
}
