package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	AddressPrefix  string         `toml:"AddressPrefix"`
	Environment    string         `toml:"Environment"`
	LogLevel       string         `toml:"LogLevel"`
	LogFile        string         `toml:"LogFile"`
	DataDir        string         `toml:"DataDir"`
	StorageBackend string         `toml:"StorageBackend"`
	Implementation Implementation `toml:"implementation"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		AddressPrefix:  DefaultAddressPrefix,
		Environment:    "local",
		LogLevel:       "info",
		DataDir:        "./vault-data",
		StorageBackend: "leveldb",
		Implementation: Implementation{
			Version: DefaultImplementationVersion,
			Policy:  DefaultRedeemPolicy,
		},
	}
}

// Load loads the configuration from the given path. An empty path yields the
// defaults; a missing file is created with them.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if strings.TrimSpace(c.AddressPrefix) == "" {
		c.AddressPrefix = def.AddressPrefix
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = def.Environment
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = def.LogLevel
	}
	if strings.TrimSpace(c.StorageBackend) == "" {
		c.StorageBackend = def.StorageBackend
	}
	if strings.TrimSpace(c.Implementation.Version) == "" {
		c.Implementation.Version = def.Implementation.Version
	}
	if strings.TrimSpace(c.Implementation.Policy) == "" {
		c.Implementation.Policy = def.Implementation.Policy
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
