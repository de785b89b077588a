// Package config loads the viewer's settings and configures process logging.
//
// Settings come from a TOML or YAML file chosen by extension. Every field has
// a default, so the viewer also runs with no file at all:
//
//	[server]
//	address = "localhost:5000"
//	cors_origins = ["*"]
//	max_upload_size = 67108864
//	shutdown_timeout = 5
//
//	[storage]
//	upload_dir = "uploads"
//	output_dir = "output"
//
//	[logging]
//	logfile = "/var/log/dicom-viewer.log"
//	max_log_size = 100
//	max_log_age = 30
//	max_log_backups = 3
//	level = "info"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultAddress is the listen address used when none is configured.
	DefaultAddress = "localhost:5000"

	// DefaultMaxUploadSize bounds multipart upload bodies (64 MiB).
	DefaultMaxUploadSize = 64 << 20

	// DefaultShutdownTimeout is how long in-flight requests get on shutdown.
	DefaultShutdownTimeout = 5 * time.Second
)

// Config is the full set of viewer settings.
type Config struct {
	Server  ServerConfig  `toml:"server" yaml:"server"`
	Storage StorageConfig `toml:"storage" yaml:"storage"`
	Logging LogConfig     `toml:"logging" yaml:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Address       string   `toml:"address" yaml:"address"`
	CORSOrigins   []string `toml:"cors_origins" yaml:"cors_origins"`
	MaxUploadSize int64    `toml:"max_upload_size" yaml:"max_upload_size"`

	// ShutdownTimeout is in seconds.
	ShutdownTimeout int `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// StorageConfig names the directories for raw uploads and rendered artifacts.
type StorageConfig struct {
	UploadDir string `toml:"upload_dir" yaml:"upload_dir"`
	OutputDir string `toml:"output_dir" yaml:"output_dir"`
}

// Default returns the settings used when no config file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         DefaultAddress,
			CORSOrigins:     []string{"*"},
			MaxUploadSize:   DefaultMaxUploadSize,
			ShutdownTimeout: int(DefaultShutdownTimeout / time.Second),
		},
		Storage: StorageConfig{
			UploadDir: "uploads",
			OutputDir: "output",
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}

// Load reads settings from path on top of Default. An empty path returns the
// defaults unchanged. Relative storage and log paths in the file are resolved
// against the file's own directory.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("could not decode TOML config: %w", err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not read YAML config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("could not decode YAML config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q (want .toml, .yaml or .yml)", ext)
	}

	if err := cfg.convertPathsToAbsolute(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that cannot be used to start the server.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server address must not be empty")
	}
	if c.Server.MaxUploadSize <= 0 {
		return fmt.Errorf("max_upload_size must be positive, got %d", c.Server.MaxUploadSize)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout must not be negative, got %d", c.Server.ShutdownTimeout)
	}
	if c.Storage.UploadDir == "" || c.Storage.OutputDir == "" {
		return fmt.Errorf("upload_dir and output_dir must both be set")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "info", "debug":
	default:
		return fmt.Errorf("unknown logging level %q (want info or debug)", c.Logging.Level)
	}
	return nil
}

// ShutdownGrace returns the shutdown timeout as a duration.
func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.Server.ShutdownTimeout) * time.Second
}

// convertPathsToAbsolute rewrites relative paths in place, treating them as
// relative to the config file's directory.
func (c *Config) convertPathsToAbsolute(configPath string) error {
	configDir, err := filepath.Abs(filepath.Dir(configPath))
	if err != nil {
		return fmt.Errorf("could not resolve config directory: %w", err)
	}
	for _, p := range []*string{&c.Storage.UploadDir, &c.Storage.OutputDir, &c.Logging.Logfile} {
		if *p == "" || filepath.IsAbs(*p) {
			continue
		}
		*p = filepath.Join(configDir, *p)
	}
	return nil
}
