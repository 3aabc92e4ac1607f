package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Config is everything the client needs to reach a proxy.
type Config struct {
	// EndpointURL is the proxy base URL, e.g. "https://files.example.com".
	EndpointURL string `yaml:"endpoint_url"`

	// APIToken is sent as a bearer token when non-empty.
	APIToken string `yaml:"api_token"`
}

// Configured reports whether an endpoint is set.
func (c Config) Configured() bool {
	return strings.TrimSpace(c.EndpointURL) != ""
}

func (c Config) base() string {
	return strings.TrimRight(strings.TrimSpace(c.EndpointURL), "/")
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/blobgate/client.yaml, or the
// platform equivalent.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("client: locate config dir: %w", err)
	}
	return filepath.Join(dir, "blobgate", "client.yaml"), nil
}

// LoadConfig reads the config stored at path. A missing file yields an
// empty Config, which reports Configured() == false.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("client: read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("client: parse config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path, creating parent directories. The file is
// private to the user because it holds the token.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("client: create config dir: %w", err)
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("client: encode config: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("client: write config: %w", err)
	}
	return nil
}
