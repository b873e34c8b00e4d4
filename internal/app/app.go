package app

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"caltrack/internal/config"
	"caltrack/internal/database"
	"caltrack/internal/encryption"
	"caltrack/internal/tracker"
	"caltrack/internal/vault"
)

// App is the application layer between the CLI and the tracker service.
// It constructs all dependencies from config, exposes the high-level
// operations the CLI needs, and manages the store lifecycle on Close.
//
// Initialization order: open the store, migrate the schema, then build the
// vault, encryptor and logger around it. Nothing here is global; every
// component receives its dependencies explicitly.
type App struct {
	cfg       *config.Config
	store     *database.SQLiteStore
	vault     tracker.Vault
	encryptor tracker.Encryptor
	transfer  *tracker.BulkTransfer
	migration *tracker.MigrationCoordinator
	service   *tracker.TrackerService
	logFile   *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "LogMeal",
// "Export"). The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	clock := tracker.RealClock{}

	store, err := database.NewStoreFromConfig(cfg.Database, clock)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrating database schema: %w", err)
	}

	v, err := vault.NewVaultFromConfig(cfg.Vault)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating vault: %w", err)
	}
	if err := v.ValidateSetup(); err != nil {
		store.Close()
		return nil, fmt.Errorf("validating vault: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger.With("op", operation)}

	transfer := tracker.NewBulkTransfer(store, clock, logger)
	migration := tracker.NewMigrationCoordinator(store, store, store, transfer, logger)
	service := tracker.NewTrackerService(store, transfer, migration, clock, logger)

	return &App{
		cfg:       cfg,
		store:     store,
		vault:     v,
		encryptor: enc,
		transfer:  transfer,
		migration: migration,
		service:   service,
		logFile:   logFile,
	}, nil
}

// Close releases the store and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = err
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Service exposes the tracker service for day-to-day operations.
func (a *App) Service() *tracker.TrackerService { return a.service }

// Store exposes the persistence surface for read-mostly CLI queries.
func (a *App) Store() tracker.Store { return a.store }

// NeedsMigration reports whether legacy single-user data is waiting for
// its first profile.
func (a *App) NeedsMigration() (bool, error) {
	return a.migration.NeedsMigration()
}

// Export writes the full record set to outPath as an export document.
// When encrypt is true the document is age-encrypted with the configured
// public key.
func (a *App) Export(outPath string, encrypt bool) error {
	data, err := a.transfer.ExportJSON()
	if err != nil {
		return err
	}

	if encrypt {
		if !a.encryptor.IsConfigured() {
			return fmt.Errorf("encryption keys not set up (run: caltrack keys init)")
		}
		var buf bytes.Buffer
		if err := a.encryptor.Encrypt(bytes.NewReader(data), &buf); err != nil {
			return fmt.Errorf("encrypting export: %w", err)
		}
		data = buf.Bytes()
	}

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("writing export file: %w", err)
	}
	return nil
}

// Import reads an export document from path and upserts its records.
// passphrase non-empty means the file is age-encrypted and must be
// unlocked first. Returns the number of records applied, which on error is
// the count applied before the failure.
func (a *App) Import(path string, passphrase string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading import file: %w", err)
	}

	if passphrase != "" {
		ctx, err := a.encryptor.Unlock(passphrase)
		if err != nil {
			return 0, fmt.Errorf("unlocking private key: %w", err)
		}
		var buf bytes.Buffer
		if err := ctx.Decrypt(bytes.NewReader(data), &buf); err != nil {
			return 0, fmt.Errorf("decrypting import: %w", err)
		}
		data = buf.Bytes()
	}

	return a.transfer.ImportJSON(data)
}

// Backup exports the full record set into the configured vault under a
// timestamped name, and returns that name.
func (a *App) Backup() (string, error) {
	data, err := a.transfer.ExportJSON()
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("caltrack-%s.json", time.Now().UTC().Format("20060102T150405Z"))
	if err := a.vault.Put(name, bytes.NewReader(data), int64(len(data))); err != nil {
		return "", fmt.Errorf("storing backup: %w", err)
	}
	return name, nil
}

// Backups lists the names of the documents stored in the vault.
func (a *App) Backups() ([]string, error) {
	return a.vault.List()
}

// Restore imports a named backup document from the vault. Returns the
// number of records applied.
func (a *App) Restore(name string) (int, error) {
	var buf bytes.Buffer
	if err := a.vault.Get(name, &buf); err != nil {
		return 0, err
	}
	return a.transfer.ImportJSON(buf.Bytes())
}

// SetupKeys generates the age key pair used for encrypted exports,
// protecting the private key with the passphrase.
func (a *App) SetupKeys(passphrase string) error {
	return a.encryptor.Setup(passphrase)
}
