package storage

import (
	"bytes"
	"testing"
)

func TestEncryptRoundTrip(t *testing.T) {
	plain := []byte("optimized document bytes")
	sealed, err := encrypt(plain, "passphrase")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if bytes.Contains(sealed, plain) {
		t.Fatal("ciphertext leaks plaintext")
	}
	if !isEncrypted(sealed) {
		t.Fatal("envelope magic missing")
	}
	got, err := decrypt(sealed, "passphrase")
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	sealed, err := encrypt([]byte("secret"), "right")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if _, err := decrypt(sealed, "wrong"); err == nil {
		t.Fatal("wrong passphrase must not decrypt")
	}
}

func TestDecryptTamperedEnvelope(t *testing.T) {
	sealed, err := encrypt([]byte("secret"), "pass")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xFF
	if _, err := decrypt(sealed, "pass"); err == nil {
		t.Fatal("tampered ciphertext must not decrypt")
	}
}

func TestIsEncrypted(t *testing.T) {
	if isEncrypted([]byte("%PDF-1.7 plain document")) {
		t.Fatal("plain data misdetected as encrypted")
	}
	if isEncrypted([]byte("PP")) {
		t.Fatal("short data misdetected as encrypted")
	}
	if _, err := decrypt([]byte("%PDF-1.7"), "pass"); err == nil {
		t.Fatal("plain data must not decrypt")
	}
}
