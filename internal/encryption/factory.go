package encryption

import (
	"fmt"

	"caltrack/internal/config"
	"caltrack/internal/tracker"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration
// type.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (tracker.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
