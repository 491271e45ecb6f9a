// Package cryptox implements the secret cipher used to keep passkey
// credentials and TOTP seeds encrypted at rest.
//
// A single key is derived from the configured passphrase with PBKDF2-SHA256
// and a fixed application salt, so every process holding the same passphrase
// can decrypt every stored value. Payloads are sealed with AES-256-GCM under a
// fresh random nonce.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KDFIterations is the PBKDF2 work factor.
	KDFIterations = 100000
	// KeySize is the derived key length (AES-256).
	KeySize = 32

	envelopeVersion byte = 1
	nonceSize            = 12
)

// kdfSalt is deploy-wide, not per record. Changing it orphans every stored secret.
var kdfSalt = []byte("shieldui_salt_v1")

// ErrDecryption is returned for any ciphertext that cannot be authenticated:
// truncated, malformed, tampered with or sealed under another key.
var ErrDecryption = errors.New("decryption failed")

// DeriveKey stretches passphrase into a KeySize key. Same input, same key.
func DeriveKey(passphrase []byte) []byte {
	return pbkdf2.Key(passphrase, kdfSalt, KDFIterations, KeySize, sha256.New)
}

// SecretCipher seals and opens byte payloads with a key derived once at
// construction. It is safe for concurrent use.
//
// Envelope layout: version(1) || nonce(12) || AES-GCM ciphertext+tag.
type SecretCipher struct {
	aead cipher.AEAD
}

// NewSecretCipher derives the key from passphrase and prepares the AEAD.
// The derivation cost is paid here, once per process.
func NewSecretCipher(passphrase string) (*SecretCipher, error) {
	if passphrase == "" {
		return nil, errors.New("empty encryption passphrase")
	}
	return NewSecretCipherFromKey(DeriveKey([]byte(passphrase)))
}

// NewSecretCipherFromKey builds a cipher from an already derived key.
func NewSecretCipherFromKey(key []byte) (*SecretCipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher init: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm init: %w", err)
	}
	return &SecretCipher{aead: aead}, nil
}

// Encrypt seals plaintext. Two calls with the same input never return the
// same bytes.
func (c *SecretCipher) Encrypt(plaintext []byte) ([]byte, error) {
	out := make([]byte, 1+nonceSize, 1+nonceSize+len(plaintext)+c.aead.Overhead())
	out[0] = envelopeVersion
	if _, err := rand.Read(out[1 : 1+nonceSize]); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return c.aead.Seal(out, out[1:1+nonceSize], plaintext, out[:1]), nil
}

// Decrypt opens a payload produced by Encrypt. Every failure is reported as
// ErrDecryption.
func (c *SecretCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 1+nonceSize+c.aead.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryption)
	}
	if ciphertext[0] != envelopeVersion {
		return nil, fmt.Errorf("%w: unknown envelope version %d", ErrDecryption, ciphertext[0])
	}
	nonce := ciphertext[1 : 1+nonceSize]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext[1+nonceSize:], ciphertext[:1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return plaintext, nil
}
