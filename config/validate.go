package config

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"vaultengine/native/vault"
	"vaultengine/observability/logging"
)

var storageBackends = map[string]struct{}{
	"memory":  {},
	"leveldb": {},
	"bolt":    {},
}

// Validate checks the configuration after defaults have been applied.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config: nil config")
	}
	prefix := strings.TrimSpace(c.AddressPrefix)
	if prefix == "" || strings.ToLower(prefix) != prefix {
		return fmt.Errorf("config: AddressPrefix must be a non-empty lowercase string")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: LogLevel: %w", err)
	}
	if _, ok := storageBackends[strings.ToLower(c.StorageBackend)]; !ok {
		return fmt.Errorf("config: unsupported StorageBackend %q", c.StorageBackend)
	}
	if _, err := semver.StrictNewVersion(c.Implementation.Version); err != nil {
		return fmt.Errorf("config: implementation.Version %q: %w", c.Implementation.Version, err)
	}
	if _, err := vault.ParseRedeemPolicy(c.Implementation.Policy); err != nil {
		return fmt.Errorf("config: implementation.Policy: %w", err)
	}
	return nil
}

// Logic resolves the configured implementation into a vault descriptor.
func (c *Config) Logic() (vault.Logic, error) {
	policy, err := vault.ParseRedeemPolicy(c.Implementation.Policy)
	if err != nil {
		return vault.Logic{}, err
	}
	return vault.Logic{Version: c.Implementation.Version, Policy: policy}, nil
}
