package vault

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"

	"caltrack/internal/tracker"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// It keeps every backup document in memory, making it useful for testing.
// Safe for concurrent use.
type MemoryVault struct {
	name string
	docs map[string][]byte
	mu   sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name: name,
		docs: make(map[string][]byte),
	}
}

// Put stores a document under the given name, overwriting any previous one.
func (m *MemoryVault) Put(name string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs[name] = data
	return nil
}

// Get retrieves a document by name.
func (m *MemoryVault) Get(name string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.docs[name]
	if !ok {
		return fmt.Errorf("document not found: %s", name)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}

	return nil
}

// List returns the names of all stored documents, sorted.
func (m *MemoryVault) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.docs))
	for name := range m.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryVault implements tracker.Vault
var _ tracker.Vault = (*MemoryVault)(nil)
