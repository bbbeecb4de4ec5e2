// Package config manages the installer's own settings file. It is separate from
// the user's OpenClaw config: it only tells clawstrap where its resources live,
// how to log and which endpoints to talk to.
package config

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/glorpus-work/clawstrap/pkg/errors"
	"github.com/glorpus-work/clawstrap/pkg/fsutil"
)

// Config represents the application configuration.
type Config struct {
	Settings Settings `yaml:"settings"`
}

// Settings represents general application settings.
type Settings struct {
	// Output settings
	LogLevel     string `yaml:"log_level"`     // debug, info, warn, error
	OutputFormat string `yaml:"output_format"` // text, json

	// Locations. Empty means the built in default.
	ResourceDir string `yaml:"resource_dir,omitempty"`
	TempDir     string `yaml:"temp_dir,omitempty"`
	InstallDir  string `yaml:"install_dir,omitempty"` // bundled mode install directory override
	HooksDir    string `yaml:"hooks_dir,omitempty"`

	// Gateway endpoint
	GatewayHost string `yaml:"gateway_host"`
	GatewayPort int    `yaml:"gateway_port"`

	// Network settings
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	APITimeout      time.Duration `yaml:"api_timeout"`
	UseMirror       bool          `yaml:"use_mirror"`

	// Command server
	ListenAddr string `yaml:"listen_addr"`
}

// Default configuration values.
const (
	DefaultLogLevel        = "info"
	DefaultOutputFormat    = "text"
	DefaultGatewayHost     = "127.0.0.1"
	DefaultGatewayPort     = 18789
	DefaultDownloadTimeout = 600 * time.Second
	DefaultAPITimeout      = 15 * time.Second
	DefaultListenAddr      = "127.0.0.1:18800"

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{
			LogLevel:        DefaultLogLevel,
			OutputFormat:    DefaultOutputFormat,
			GatewayHost:     DefaultGatewayHost,
			GatewayPort:     DefaultGatewayPort,
			DownloadTimeout: DefaultDownloadTimeout,
			APITimeout:      DefaultAPITimeout,
			ListenAddr:      DefaultListenAddr,
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// SaveConfig saves configuration to a file through a temporary file and rename.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	if err := os.MkdirAll(filepath.Dir(absPath), fsutil.DirModeDefault); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}

	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigFileRename, err.Error())
	}

	if err := os.Chmod(absPath, fsutil.FileModeDefault); err != nil {
		return errors.Wrap(errors.ErrConfigFileChmod, err.Error())
	}

	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	return data, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	s := c.Settings
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[s.OutputFormat] {
		return errors.Detail(errors.ErrConfigValidation, "invalid output format %q (expected text or json)", s.OutputFormat)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return errors.Detail(errors.ErrConfigValidation, "invalid log level %q", s.LogLevel)
	}
	if s.GatewayPort < 1 || s.GatewayPort > 65535 {
		return errors.Detail(errors.ErrConfigValidation, "gateway_port %d out of range", s.GatewayPort)
	}
	if s.DownloadTimeout < 0 || s.APITimeout < 0 {
		return errors.Detail(errors.ErrConfigValidation, "timeouts must not be negative")
	}
	return ValidateListenAddr(s.ListenAddr)
}

// ValidateListenAddr rejects command server addresses beyond loopback.
func ValidateListenAddr(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return errors.Detail(errors.ErrConfigValidation, "invalid listen_addr %q", addr)
	}
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
		return errors.Detail(errors.ErrConfigValidation, "listen_addr %q is not a loopback address", addr)
	}
	return nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "clawstrap", "config.yaml"), nil
}

// GetTempDir returns the scratch directory for downloads.
func (c *Config) GetTempDir() string {
	if c.Settings.TempDir != "" {
		return c.Settings.TempDir
	}
	return os.TempDir()
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
	if c.Settings.OutputFormat == "" {
		c.Settings.OutputFormat = defaults.Settings.OutputFormat
	}
	if c.Settings.GatewayHost == "" {
		c.Settings.GatewayHost = defaults.Settings.GatewayHost
	}
	if c.Settings.GatewayPort == 0 {
		c.Settings.GatewayPort = defaults.Settings.GatewayPort
	}
	if c.Settings.DownloadTimeout == 0 {
		c.Settings.DownloadTimeout = defaults.Settings.DownloadTimeout
	}
	if c.Settings.APITimeout == 0 {
		c.Settings.APITimeout = defaults.Settings.APITimeout
	}
	if c.Settings.ListenAddr == "" {
		c.Settings.ListenAddr = defaults.Settings.ListenAddr
	}
}
