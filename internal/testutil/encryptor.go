package testutil

import (
	"caltrack/internal/encryption"
	"caltrack/internal/tracker"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() tracker.Encryptor {
	return encryption.NewTestEncryptor()
}
