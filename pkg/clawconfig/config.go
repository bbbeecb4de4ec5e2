package clawconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/glorpus-work/clawstrap/pkg/errors"
	"github.com/glorpus-work/clawstrap/pkg/fsutil"
)

// DefaultGatewayPort is the loopback port the gateway listens on.
const DefaultGatewayPort uint16 = 18789

// PlatformEntry is one messaging platform binding.
type PlatformEntry struct {
	Platform string `json:"platform"`
	Token    string `json:"token"`
}

// OpenClawConfig is the user's config document. Unknown fields are dropped on rewrite.
type OpenClawConfig struct {
	ModelProvider *string         `json:"model_provider,omitempty"`
	ModelName     *string         `json:"model_name,omitempty"`
	APIKey        *string         `json:"api_key,omitempty"`
	APIEndpoint   *string         `json:"api_endpoint,omitempty"`
	GatewayPort   uint16          `json:"gateway_port"`
	Platforms     []PlatformEntry `json:"platforms"`
}

// Default returns the document used when no file exists.
func Default() OpenClawConfig {
	return OpenClawConfig{GatewayPort: DefaultGatewayPort, Platforms: []PlatformEntry{}}
}

// Seed documents written by the install pipeline and by config repair.
var (
	NPMSeed = []byte("{\n  \"agent\": {}\n}")

	BundledSeed = []byte(`{
  "gateway": {
    "port": 18789,
    "host": "127.0.0.1"
  },
  "models": [],
  "platforms": []
}`)

	ResetDocument = []byte(`{
  "gateway_port": 18789,
  "model_provider": "alibaba",
  "model_name": "qwen-plus",
  "api_key": ""
}`)
)

// Parse decodes a config document, filling defaults for absent fields.
func Parse(data []byte) (OpenClawConfig, error) {
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return OpenClawConfig{}, fmt.Errorf("%w: %w", errors.ErrConfigParse, err)
	}
	cfg.normalize()
	return cfg, nil
}

// Marshal encodes cfg the way it is stored: two-space indented JSON.
func Marshal(cfg OpenClawConfig) ([]byte, error) {
	cfg.normalize()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrConfigEncode, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (c *OpenClawConfig) normalize() {
	if c.Platforms == nil {
		c.Platforms = []PlatformEntry{}
	}
}

// Store reads and writes the document at Layout.ConfigPath. Last writer wins.
type Store struct {
	layout Layout
}

// NewStore creates a store over layout.
func NewStore(layout Layout) *Store {
	return &Store{layout: layout}
}

// Path returns the config file path.
func (s *Store) Path() string { return s.layout.ConfigPath() }

// Read returns the stored config, or defaults when the file is absent.
func (s *Store) Read() (OpenClawConfig, error) {
	data, err := os.ReadFile(s.Path())
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return OpenClawConfig{}, errors.Wrap(err, "Failed to read config")
	}
	return Parse(data)
}

// Write pretty-prints cfg over any existing file.
func (s *Store) Write(cfg OpenClawConfig) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.layout.ConfigDir(), fsutil.DirModeDefault); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrConfigDirectory, err)
	}
	if err := fsutil.WriteAtomic(s.Path(), data, fsutil.FileModeDefault); err != nil {
		return errors.Wrap(err, "Failed to write config file")
	}
	return nil
}

// Valid reports whether the file exists and holds JSON. The returned error
// describes the problem.
func (s *Store) Valid() error {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		return err
	}
	var v any
	return json.Unmarshal(data, &v)
}

// Reset backs up the current file, if any, and writes ResetDocument.
func (s *Store) Reset() error {
	if data, err := os.ReadFile(s.Path()); err == nil {
		if err := fsutil.WriteAtomic(s.layout.BackupPath(), data, fsutil.FileModeDefault); err != nil {
			return errors.Wrap(err, "Failed to back up config")
		}
	}
	if err := os.MkdirAll(s.layout.ConfigDir(), fsutil.DirModeDefault); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrConfigDirectory, err)
	}
	return fsutil.WriteAtomic(s.Path(), ResetDocument, fsutil.FileModeDefault)
}
