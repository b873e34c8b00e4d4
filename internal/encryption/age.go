package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"caltrack/internal/config"
	"caltrack/internal/tracker"
)

// ErrKeysExist is returned by Setup when a key pair is already present.
// Regenerating keys would orphan every export encrypted with the old pair,
// so the user has to remove the old files explicitly first.
var ErrKeysExist = errors.New("encryption keys already exist")

// ErrWrongPassphrase is returned by Unlock when the passphrase does not
// decrypt the private key.
var ErrWrongPassphrase = errors.New("incorrect passphrase")

// AgeEncryptor implements tracker.Encryptor using filippo.io/age with
// X25519 keys. The public key is stored in plaintext so exports never
// prompt; the private key is encrypted with the user's passphrase via
// age's scrypt recipient and is only read back by Unlock.
type AgeEncryptor struct {
	publicKeyPath  string
	privateKeyPath string
}

var _ tracker.Encryptor = (*AgeEncryptor)(nil)

// NewAgeEncryptor creates a new AgeEncryptor from configuration.
func NewAgeEncryptor(cfg config.EncryptionConfig) *AgeEncryptor {
	return &AgeEncryptor{
		publicKeyPath:  cfg.PublicKeyPath,
		privateKeyPath: cfg.PrivateKeyPath,
	}
}

// Setup generates a new X25519 key pair and writes both key files. It
// refuses to overwrite an existing pair. The private key goes through a
// temp file and rename, so an interrupted Setup never leaves a readable
// half-written key at the configured path.
func (e *AgeEncryptor) Setup(passphrase string) error {
	if e.IsConfigured() {
		return fmt.Errorf("%w at %s", ErrKeysExist, filepath.Dir(e.privateKeyPath))
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating key pair: %w", err)
	}

	if err := e.writePrivateKey(identity, passphrase); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(e.publicKeyPath), 0700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}
	if err := os.WriteFile(e.publicKeyPath, []byte(identity.Recipient().String()+"\n"), 0644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}

	return nil
}

// writePrivateKey encrypts the identity with the passphrase and installs
// it at the configured path.
func (e *AgeEncryptor) writePrivateKey(identity *age.X25519Identity, passphrase string) error {
	dir := filepath.Dir(e.privateKeyPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".caltrack-key-*")
	if err != nil {
		return fmt.Errorf("creating private key file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	err = func() error {
		defer tmp.Close()

		recipient, err := age.NewScryptRecipient(passphrase)
		if err != nil {
			return fmt.Errorf("deriving key from passphrase: %w", err)
		}
		w, err := age.Encrypt(tmp, recipient)
		if err != nil {
			return fmt.Errorf("encrypting private key: %w", err)
		}
		if _, err := io.WriteString(w, identity.String()+"\n"); err != nil {
			return fmt.Errorf("encrypting private key: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("finalizing private key: %w", err)
		}
		return nil
	}()
	if err != nil {
		return err
	}

	if err := os.Chmod(tmpPath, 0600); err != nil {
		return fmt.Errorf("restricting private key permissions: %w", err)
	}
	if err := os.Rename(tmpPath, e.privateKeyPath); err != nil {
		return fmt.Errorf("installing private key: %w", err)
	}
	return nil
}

// Encrypt reads plaintext from r and writes age-encrypted ciphertext to w
// using the stored public key.
func (e *AgeEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	recipient, err := e.loadRecipient()
	if err != nil {
		return err
	}

	encWriter, err := age.Encrypt(w, recipient)
	if err != nil {
		return fmt.Errorf("starting encryption: %w", err)
	}
	if _, err := io.Copy(encWriter, r); err != nil {
		return fmt.Errorf("encrypting data: %w", err)
	}
	if err := encWriter.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}

	return nil
}

// Unlock decrypts the private key with the passphrase and returns a
// context holding the unlocked identity. A passphrase that fails to
// decrypt the key surfaces as ErrWrongPassphrase.
func (e *AgeEncryptor) Unlock(passphrase string) (tracker.DecryptionContext, error) {
	privData, err := os.ReadFile(e.privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}

	scryptID, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("deriving key from passphrase: %w", err)
	}

	decReader, err := age.Decrypt(bytes.NewReader(privData), scryptID)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) {
			return nil, ErrWrongPassphrase
		}
		return nil, fmt.Errorf("decrypting private key: %w", err)
	}

	identities, err := age.ParseIdentities(decReader)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("private key file %s holds no identities", e.privateKeyPath)
	}

	return &AgeDecryptionContext{identity: identities[0]}, nil
}

// IsConfigured returns true if both key files exist.
func (e *AgeEncryptor) IsConfigured() bool {
	if _, err := os.Stat(e.publicKeyPath); err != nil {
		return false
	}
	if _, err := os.Stat(e.privateKeyPath); err != nil {
		return false
	}
	return true
}

// loadRecipient reads the public key from disk and parses it.
func (e *AgeEncryptor) loadRecipient() (age.Recipient, error) {
	pubData, err := os.ReadFile(e.publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading public key (run \"caltrack keys init\" first): %w", err)
	}

	recipients, err := age.ParseRecipients(bytes.NewReader(pubData))
	if err != nil {
		return nil, fmt.Errorf("parsing public key %s: %w", e.publicKeyPath, err)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("public key file %s holds no recipients", e.publicKeyPath)
	}

	return recipients[0], nil
}

// AgeDecryptionContext holds an unlocked age identity for the duration of
// an import session. The identity stays in memory only.
type AgeDecryptionContext struct {
	identity age.Identity
}

var _ tracker.DecryptionContext = (*AgeDecryptionContext)(nil)

// Decrypt reads age-encrypted ciphertext from r and writes plaintext to w.
func (c *AgeDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	decReader, err := age.Decrypt(r, c.identity)
	if err != nil {
		return fmt.Errorf("starting decryption: %w", err)
	}
	if _, err := io.Copy(w, decReader); err != nil {
		return fmt.Errorf("decrypting data: %w", err)
	}

	return nil
}
