package vault

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"caltrack/internal/tracker"
)

// FileSystemVault is a filesystem-based implementation of the Vault
// interface. Each backup document is one file under the vault root, named
// by the document name.
type FileSystemVault struct {
	name string
	root string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given
// path, creating the directory if needed.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}

	return &FileSystemVault{name: name, root: root}, nil
}

// Put stores a document under the given name, overwriting any previous one.
// The document is written to a temporary file and renamed into place, so a
// failed write never leaves a truncated document behind.
func (v *FileSystemVault) Put(name string, r io.Reader, size int64) error {
	destPath := filepath.Join(v.root, name)

	tmp, err := os.CreateTemp(v.root, ".put-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize document: %w", err)
	}

	if written != size {
		os.Remove(tmpPath)
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to store document: %w", err)
	}
	return nil
}

// Get retrieves a document by name and writes it to w.
func (v *FileSystemVault) Get(name string, w io.Writer) error {
	f, err := os.Open(filepath.Join(v.root, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("document not found: %s", name)
		}
		return fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	return nil
}

// List returns the names of all stored documents, sorted.
func (v *FileSystemVault) List() ([]string, error) {
	entries, err := os.ReadDir(v.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list vault: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ValidateSetup verifies that the vault root is an accessible directory.
func (v *FileSystemVault) ValidateSetup() error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}
	return nil
}

// Compile-time check that FileSystemVault implements tracker.Vault
var _ tracker.Vault = (*FileSystemVault)(nil)
