package config

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/home/user/.local/share/caltrack")

	if cfg.LogDir != filepath.Join(cfg.BaseDir, "log") {
		t.Errorf("LogDir = %s, want %s", cfg.LogDir, filepath.Join(cfg.BaseDir, "log"))
	}
	if cfg.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %s, want sqlite", cfg.Database.Type)
	}
	if cfg.Vault.Type != "filesystem" {
		t.Errorf("Vault.Type = %s, want filesystem", cfg.Vault.Type)
	}
	if cfg.Encryption.PublicKeyPath == "" || cfg.Encryption.PrivateKeyPath == "" {
		t.Error("encryption key paths not defaulted")
	}
}

func TestManager_ReadWrite(t *testing.T) {
	cfg := NewConfig("/tmp/caltrack-test")
	m := &Manager{}

	var buf bytes.Buffer
	if err := m.Write(&buf, cfg); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != cfg.BaseDir {
		t.Errorf("BaseDir = %s, want %s", got.BaseDir, cfg.BaseDir)
	}
	if got.Database != cfg.Database {
		t.Errorf("Database = %+v, want %+v", got.Database, cfg.Database)
	}
	if got.Vault != cfg.Vault {
		t.Errorf("Vault = %+v, want %+v", got.Vault, cfg.Vault)
	}
	if got.Encryption != cfg.Encryption {
		t.Errorf("Encryption = %+v, want %+v", got.Encryption, cfg.Encryption)
	}
}

func TestManager_ReadInvalid(t *testing.T) {
	m := &Manager{}
	if _, err := m.Read(strings.NewReader("this is not [valid toml")); err == nil {
		t.Error("Read() error = nil for invalid TOML, want error")
	}
}

func TestInit(t *testing.T) {
	t.Run("creates a config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "caltrack.toml")
		cfg := NewConfig("/tmp/caltrack-test")

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.BaseDir != cfg.BaseDir {
			t.Errorf("BaseDir = %s, want %s", got.BaseDir, cfg.BaseDir)
		}
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "caltrack.toml")
		cfg := NewConfig("/tmp/caltrack-test")

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if err := Init(path, cfg); err == nil {
			t.Error("Init() error = nil for existing file, want error")
		}
	})
}

func TestReadFromFile_Missing(t *testing.T) {
	if _, err := ReadFromFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("ReadFromFile() error = nil for missing file, want error")
	}
}
