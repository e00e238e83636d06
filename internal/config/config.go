package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/clawdgotchi/hookbridge/internal/event"
)

const (
	DefaultSocketPath  = "/tmp/claudegotchi.sock"
	DefaultSendTimeout = 2 * time.Second
	DefaultTTYTimeout  = time.Second
	DefaultSocketMode  = "0777"
)

type Config struct {
	SocketPath  string        `yaml:"socket_path"`
	SendTimeout time.Duration `yaml:"send_timeout"`
	TTYTimeout  time.Duration `yaml:"tty_timeout"`
	Log         LogConfig     `yaml:"log"`
	Privacy     PrivacyConfig `yaml:"privacy"`
	Listen      ListenConfig  `yaml:"listen"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // empty logs to stderr
}

type PrivacyConfig struct {
	MaskWorkingDirs bool     `yaml:"mask_working_dirs"`
	MaskSessionIDs  bool     `yaml:"mask_session_ids"`
	MaskPIDs        bool     `yaml:"mask_pids"`
	MaskTTYs        bool     `yaml:"mask_ttys"`
	AllowedPaths    []string `yaml:"allowed_paths"`
	BlockedPaths    []string `yaml:"blocked_paths"`
}

// ListenConfig only affects the reference listener.
type ListenConfig struct {
	SocketMode      string `yaml:"socket_mode"`
	RelayAddr       string `yaml:"relay_addr"`
	MaxRelayClients int    `yaml:"max_relay_clients"`
}

// Overrides are read from the environment and win over the config file.
type Overrides struct {
	ConfigPath  string        `env:"CLAWDGOTCHI_CONFIG"`
	SocketPath  string        `env:"CLAWDGOTCHI_SOCKET"`
	SendTimeout time.Duration `env:"CLAWDGOTCHI_SEND_TIMEOUT"`
	TTYTimeout  time.Duration `env:"CLAWDGOTCHI_TTY_TIMEOUT"`
	LogLevel    string        `env:"CLAWDGOTCHI_LOG_LEVEL"`
	LogFile     string        `env:"CLAWDGOTCHI_LOG_FILE"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SocketPath:  DefaultSocketPath,
		SendTimeout: DefaultSendTimeout,
		TTYTimeout:  DefaultTTYTimeout,
		Log: LogConfig{
			Level: "warn",
		},
		Listen: ListenConfig{
			SocketMode:      DefaultSocketMode,
			MaxRelayClients: 16,
		},
	}
}

// DefaultPath is ~/.clawdgotchi/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".clawdgotchi", "config.yaml"), nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.fillZero()
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// fillZero restores defaults for values a config file set to zero.
func (c *Config) fillZero() {
	d := Default()
	if c.SocketPath == "" {
		c.SocketPath = d.SocketPath
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = d.SendTimeout
	}
	if c.TTYTimeout <= 0 {
		c.TTYTimeout = d.TTYTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Listen.SocketMode == "" {
		c.Listen.SocketMode = d.Listen.SocketMode
	}
	if c.Listen.MaxRelayClients <= 0 {
		c.Listen.MaxRelayClients = d.Listen.MaxRelayClients
	}
}

// ParseOverrides reads the CLAWDGOTCHI_* environment variables.
func ParseOverrides() (Overrides, error) {
	var o Overrides
	if err := env.Parse(&o); err != nil {
		return Overrides{}, fmt.Errorf("failed to parse environment overrides: %w", err)
	}
	return o, nil
}

// Apply copies every set override onto c.
func (o Overrides) Apply(c *Config) {
	if o.SocketPath != "" {
		c.SocketPath = o.SocketPath
	}
	if o.SendTimeout > 0 {
		c.SendTimeout = o.SendTimeout
	}
	if o.TTYTimeout > 0 {
		c.TTYTimeout = o.TTYTimeout
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
	if o.LogFile != "" {
		c.Log.File = o.LogFile
	}
}

// Resolve picks the config path (flag, then CLAWDGOTCHI_CONFIG, then the
// default location), loads it and applies environment overrides. A broken
// environment or file still yields a usable config alongside the error.
func Resolve(flagPath string) (*Config, error) {
	o, envErr := ParseOverrides()

	path := flagPath
	if path == "" {
		path = o.ConfigPath
	}
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			cfg := Default()
			o.Apply(cfg)
			return cfg, errors.Join(envErr, err)
		}
		path = p
	}

	cfg, err := LoadOrDefault(path)
	if err != nil {
		cfg = Default()
	}
	o.Apply(cfg)
	return cfg, errors.Join(envErr, err)
}

// SocketFileMode parses Listen.SocketMode as an octal permission.
func (c *Config) SocketFileMode() (os.FileMode, error) {
	mode, err := strconv.ParseUint(c.Listen.SocketMode, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid socket_mode %q: %w", c.Listen.SocketMode, err)
	}
	return os.FileMode(mode).Perm(), nil
}

func (pc PrivacyConfig) NewPrivacyFilter() event.PrivacyFilter {
	return event.PrivacyFilter{
		MaskWorkingDirs: pc.MaskWorkingDirs,
		MaskSessionIDs:  pc.MaskSessionIDs,
		MaskPIDs:        pc.MaskPIDs,
		MaskTTYs:        pc.MaskTTYs,
		AllowedPaths:    pc.AllowedPaths,
		BlockedPaths:    pc.BlockedPaths,
	}
}
