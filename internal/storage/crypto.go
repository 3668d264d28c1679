package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Envelope layout: magic(8) + salt(16) + nonce(12) + GCM ciphertext.
const (
	cryptoMagic = "PPAGCM01"
	saltLen     = 16
	nonceLen    = 12
	pbkdf2Iters = 100000
	keyLen      = 32
)

func headerLen() int { return len(cryptoMagic) + saltLen + nonceLen }

// encrypt seals data with AES-256-GCM under a key derived from the
// passphrase via PBKDF2.
func encrypt(data []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, headerLen()+len(data)+gcm.Overhead())
	out = append(out, cryptoMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, data, nil), nil
}

// decrypt opens an envelope produced by encrypt.
func decrypt(data []byte, passphrase string) ([]byte, error) {
	if !isEncrypted(data) {
		return nil, fmt.Errorf("not an encrypted artifact")
	}
	if len(data) < headerLen()+16 {
		return nil, fmt.Errorf("encrypted artifact too short: %d bytes", len(data))
	}
	salt := data[len(cryptoMagic) : len(cryptoMagic)+saltLen]
	nonce := data[len(cryptoMagic)+saltLen : headerLen()]
	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}
	plain, err := gcm.Open(nil, nonce, data[headerLen():], nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plain, nil
}

func isEncrypted(data []byte) bool {
	return len(data) >= len(cryptoMagic) && string(data[:len(cryptoMagic)]) == cryptoMagic
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iters, keyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
