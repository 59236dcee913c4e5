package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"pkgbatch/internal/errors"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// Default values used when the configuration file leaves a setting unset.
const (
	DefaultBaseDirectory = "."
	DefaultExtension     = ".pkg"
	DefaultSettle        = 2 * time.Second
)

// DefaultTool is the renaming tool invoked once per matched file.
var DefaultTool = defaultTool(runtime.GOOS)

func defaultTool(goos string) string {
	if goos == "windows" {
		return "renamePkg.exe"
	}
	return "renamePkg"
}

// Config represents the application configuration structure.
type Config struct {
	Directories struct {
		Base string `yaml:"base"` // Directory scanned for packages
	} `yaml:"directories"`
	Batch    Batch    `yaml:"batch"`
	Settings Settings `yaml:"settings"`
	Watch    struct {
		Settle time.Duration `yaml:"settle"` // Quiet period before a new file is renamed
	} `yaml:"watch"`
}

// Batch holds the settings of a batch pass.
type Batch struct {
	Extension string   `yaml:"extension"` // Exact, case-sensitive extension to match
	Tool      string   `yaml:"tool"`      // Executable invoked as "<tool> <file>"
	Ignore    []string `yaml:"ignore"`    // Glob patterns of file names to leave alone
}

// Settings holds ambient settings.
type Settings struct {
	Debug   bool   `yaml:"debug"`    // Enable debug logging
	LogFile string `yaml:"log_file"` // Also append logs to this file
}

// Path returns the default configuration file location
// (~/.config/pkgbatch/config.yaml).
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pkgbatch", "config.yaml"), nil
}

// LoadConfig loads configuration from the default location.
func LoadConfig() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadConfigFile(path)
}

// LoadConfigFile loads configuration from a specific file path.
// If the file doesn't exist, returns default configuration.
func LoadConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.NewConfigError("error reading config file", path, errors.ConfigNotFound, err)
	}

	// Fields absent from the file keep their defaults.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.NewConfigError("error parsing config file", path, errors.InvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid configuration in %s", path)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Directories.Base = DefaultBaseDirectory
	cfg.Batch.Extension = DefaultExtension
	cfg.Batch.Tool = DefaultTool
	cfg.Batch.Ignore = []string{}
	cfg.Watch.Settle = DefaultSettle
	return cfg
}

// New creates a new configuration instance with default values.
func New() *Config {
	return defaultConfig()
}

// SaveConfig saves the configuration to the specified file.
// It creates parent directories if they don't exist.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// BaseDirectory returns the configured base directory, falling back to
// the default when unset.
func (c *Config) BaseDirectory() string {
	if c == nil || c.Directories.Base == "" {
		return DefaultBaseDirectory
	}
	return c.Directories.Base
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.NewConfigError("nil config", "", errors.InvalidConfig, nil)
	}

	ext := c.Batch.Extension
	switch {
	case len(ext) < 2 || ext[0] != '.':
		return errors.NewConfigError("extension must be a period followed by at least one character", "batch.extension", errors.InvalidConfig, nil)
	case strings.Contains(ext[1:], "."):
		return errors.NewConfigError("extension must contain a single period", "batch.extension", errors.InvalidConfig, nil)
	case strings.ContainsAny(ext, `/\`):
		return errors.NewConfigError("extension must not contain a path separator", "batch.extension", errors.InvalidConfig, nil)
	}

	if strings.TrimSpace(c.Batch.Tool) == "" {
		return errors.NewConfigError("tool is required", "batch.tool", errors.InvalidConfig, nil)
	}

	for i, pattern := range c.Batch.Ignore {
		if _, err := glob.Compile(pattern); err != nil {
			return errors.NewConfigError("invalid ignore pattern", fmt.Sprintf("batch.ignore[%d]", i), errors.InvalidPattern, err)
		}
	}

	if c.Watch.Settle < 0 {
		return errors.NewConfigError("settle delay must be >= 0", "watch.settle", errors.InvalidConfig, nil)
	}
	return nil
}

// NewTestConfig creates a configuration instance for testing purposes.
func NewTestConfig(base, tool string) *Config {
	cfg := defaultConfig()
	cfg.Directories.Base = base
	cfg.Batch.Tool = tool
	cfg.Watch.Settle = 50 * time.Millisecond
	return cfg
}
