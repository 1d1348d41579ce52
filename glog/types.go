// Package glog wraps zap and lumberjack into the small logging
// surface the pcapng codec and its example program need: leveled,
// formatted logging with optional file rotation.
package glog

// Level mirrors zapcore.Level's ordering so a Config can be built
// without importing zapcore outside this package.
type Level int8

const (
	DebugLevel Level = iota - 1
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Encoding selects zap's console or JSON encoder.
type Encoding string

const (
	ConsoleEncoding Encoding = "console"
	JSONEncoding    Encoding = "json"
)
