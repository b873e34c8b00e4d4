package vault

import (
	"fmt"

	"caltrack/internal/config"
	"caltrack/internal/tracker"
)

// NewVaultFromConfig creates a Vault implementation based on the vault
// config type.
func NewVaultFromConfig(cfg config.VaultConfig) (tracker.Vault, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryVault(cfg.Name), nil
	case "filesystem":
		if cfg.Root == "" {
			return nil, fmt.Errorf("filesystem vault requires root to be set")
		}
		return NewFileSystemVault(cfg.Name, cfg.Root)
	default:
		return nil, fmt.Errorf("unknown vault type: %s", cfg.Type)
	}
}
