// Package gconfig loads the example capture tool's configuration
// through viper, with live-reload via fsnotify and struct decoding via
// mapstructure. It is scoped to the settings a pcapng producer/consumer
// program needs, not general-purpose application configuration.
package gconfig

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// DriverConfig is the settings surface for the example capture-file
// driver: logging, the reader's size and validation ceilings, and the
// writer's default tick rate.
type DriverConfig struct {
	LogLevel  string `json:"log_level"`
	LogFile   string `json:"log_file"`
	LogFormat string `json:"log_format"`

	MaxBlockSize          uint32 `json:"max_block_size"`
	DefaultUnitsPerSecond uint64 `json:"default_units_per_second"`
	ByteOrder             string `json:"byte_order"`

	EncapMaxSnapLen map[uint16]int `json:"encap_max_snap_len"`
}

// Options controls how New locates and decodes the configuration.
type Options struct {
	Name             string
	Type             string
	Paths            []string
	EnvPrefix        string
	OnChangeCallback func(*DriverConfig)
}

// Option mutates Options.
type Option func(*Options)

func WithName(name string) Option { return func(o *Options) { o.Name = name } }
func WithType(typ string) Option  { return func(o *Options) { o.Type = typ } }
func WithPaths(paths ...string) Option {
	return func(o *Options) { o.Paths = append(o.Paths, paths...) }
}
func WithEnvPrefix(prefix string) Option { return func(o *Options) { o.EnvPrefix = prefix } }
func WithOnChange(cb func(*DriverConfig)) Option {
	return func(o *Options) { o.OnChangeCallback = cb }
}

// Config wraps a viper instance bound to DriverConfig.
type Config struct {
	v    *viper.Viper
	opts *Options
	mu   sync.RWMutex
}

func defaultOptions() *Options {
	return &Options{
		Name:      "pcapng-driver",
		Type:      "yaml",
		Paths:     []string{".", "/etc/pcapng-driver/"},
		EnvPrefix: "PCAPNG",
	}
}

// New builds a Config, reads it once, and starts watching for changes.
func New(opts ...Option) (*Config, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	v := viper.New()
	v.SetConfigName(options.Name)
	v.SetConfigType(options.Type)
	for _, p := range options.Paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix(options.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("byte_order", "little")
	v.SetDefault("max_block_size", 16<<20)
	v.SetDefault("default_units_per_second", uint64(1_000_000))

	c := &Config{v: v, opts: options}
	if err := c.load(); err != nil {
		return nil, err
	}
	c.watch()
	return c, nil
}

func (c *Config) load() error {
	if err := c.v.ReadInConfig(); err != nil {
		var nfErr viper.ConfigFileNotFoundError
		if !errors.As(err, &nfErr) {
			return fmt.Errorf("gconfig: reading config file: %w", err)
		}
	}
	return nil
}

func (c *Config) watch() {
	c.v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := c.Unmarshal()
		if err != nil {
			return
		}
		c.mu.RLock()
		cb := c.opts.OnChangeCallback
		c.mu.RUnlock()
		if cb != nil {
			cb(cfg)
		}
	})
	c.v.WatchConfig()
}

// Unmarshal decodes the current configuration into a DriverConfig.
func (c *Config) Unmarshal() (*DriverConfig, error) {
	var cfg DriverConfig
	err := c.v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "json"
		dc.WeaklyTypedInput = true
	})
	if err != nil {
		return nil, fmt.Errorf("gconfig: decoding config: %w", err)
	}
	return &cfg, nil
}
