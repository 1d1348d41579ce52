package glog

import (
	"io"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a leveled, formatted logger backed by zap. It satisfies
// the pcapng.Logger interface without importing that package, so
// programs wire it in at the call site instead of this package
// depending on the codec.
type Logger struct {
	mu  sync.RWMutex
	zl  *zap.SugaredLogger
	lvl zap.AtomicLevel
}

var _default = mustNew(DefaultConfig())

// Default returns the process-wide logger, usable immediately.
func Default() *Logger { return _default }

// Configure replaces the process-wide logger's configuration.
func Configure(c *Config) error {
	l, err := New(c)
	if err != nil {
		return err
	}
	_default.mu.Lock()
	defer _default.mu.Unlock()
	_default.zl = l.zl
	_default.lvl = l.lvl
	return nil
}

func mustNew(c *Config) *Logger {
	l, err := New(c)
	if err != nil {
		panic("glog: failed to build default logger: " + err.Error())
	}
	return l
}

// New builds a Logger from c.
func New(c *Config) (*Logger, error) {
	writers, err := buildWriters(c)
	if err != nil {
		return nil, err
	}
	var w io.Writer
	if len(writers) == 1 {
		w = writers[0]
	} else {
		w = io.MultiWriter(writers...)
	}

	atomicLevel := zap.NewAtomicLevelAt(zapcore.Level(c.Level))

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	if c.Encoding == JSONEncoding {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), atomicLevel)
	opts := []zap.Option{zap.AddCallerSkip(1)}
	if !c.DisableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if c.Development {
		opts = append(opts, zap.Development())
	}

	return &Logger{zl: zap.New(core, opts...).Sugar(), lvl: atomicLevel}, nil
}

func (l *Logger) sugar() *zap.SugaredLogger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.zl
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.sugar().Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.sugar().Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.sugar().Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.sugar().Errorf(format, args...) }

// SetLevel changes the minimum level this logger emits without
// rebuilding its core.
func (l *Logger) SetLevel(lvl Level) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.lvl.SetLevel(zapcore.Level(lvl))
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error { return l.sugar().Sync() }
