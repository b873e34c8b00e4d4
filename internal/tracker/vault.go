package tracker

import "io"

// Vault stores named backup documents (serialized exports) outside the
// primary database. Operations stream through io.Reader/io.Writer.
type Vault interface {
	// Put stores a document under the given name, overwriting any previous
	// document with that name. size is the number of bytes read from r.
	Put(name string, r io.Reader, size int64) error

	// Get retrieves the document with the given name and writes it to w.
	Get(name string, w io.Writer) error

	// List returns the names of all stored documents, sorted.
	List() ([]string, error)

	// ValidateSetup verifies that the vault is accessible and properly
	// configured.
	ValidateSetup() error
}
