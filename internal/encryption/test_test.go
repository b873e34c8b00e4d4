package encryption

import (
	"bytes"
	"strings"
	"testing"
)

func TestTestEncryptor_RoundTrip(t *testing.T) {
	e := NewTestEncryptor()

	plaintext := []byte("hello world")

	var ciphertext bytes.Buffer
	if err := e.Encrypt(bytes.NewReader(plaintext), &ciphertext); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if bytes.Equal(ciphertext.Bytes(), plaintext) {
		t.Error("ciphertext equals plaintext")
	}

	ctx, err := e.Unlock("any")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	var decrypted bytes.Buffer
	if err := ctx.Decrypt(bytes.NewReader(ciphertext.Bytes()), &decrypted); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if !bytes.Equal(decrypted.Bytes(), plaintext) {
		t.Errorf("Decrypt() = %q, want %q", decrypted.Bytes(), plaintext)
	}
}

func TestTestDecryptionContext_RejectsBadHeader(t *testing.T) {
	ctx := &TestDecryptionContext{}

	var out bytes.Buffer
	if err := ctx.Decrypt(strings.NewReader("no header here"), &out); err == nil {
		t.Error("Decrypt() error = nil for bad header, want error")
	}
}
