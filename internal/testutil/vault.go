package testutil

import (
	"caltrack/internal/tracker"
	"caltrack/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() tracker.Vault {
	return vault.NewMemoryVault("test-vault")
}
