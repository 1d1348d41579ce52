package glog

import (
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RotationConfig configures lumberjack's log rotation.
type RotationConfig struct {
	MaxSize    int // MB
	MaxAge     int // days
	MaxBackups int
	LocalTime  bool
	Compress   bool
}

// Config is the logger's construction-time configuration.
type Config struct {
	Level          Level
	Encoding       Encoding
	EnableStdout   bool
	FilePaths      []string
	RotationConfig *RotationConfig
	DisableCaller  bool
	Development    bool
}

// DefaultConfig returns a production-suitable default: info level,
// console encoding, stdout only.
func DefaultConfig() *Config {
	return &Config{
		Level:        InfoLevel,
		Encoding:     ConsoleEncoding,
		EnableStdout: true,
	}
}

func buildWriters(config *Config) ([]io.Writer, error) {
	var writers []io.Writer
	if config.EnableStdout || len(config.FilePaths) == 0 {
		writers = append(writers, os.Stdout)
	}

	rotation := config.RotationConfig
	if len(config.FilePaths) > 0 && rotation == nil {
		rotation = &RotationConfig{MaxSize: 100, MaxAge: 30, MaxBackups: 7, Compress: true, LocalTime: true}
	}
	for _, path := range config.FilePaths {
		writers = append(writers, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    rotation.MaxSize,
			MaxAge:     rotation.MaxAge,
			MaxBackups: rotation.MaxBackups,
			LocalTime:  rotation.LocalTime,
			Compress:   rotation.Compress,
		})
	}
	return writers, nil
}
