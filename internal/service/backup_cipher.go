package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	saltSize = 16
	keySize  = 32 // AES-256
)

// argonParams are the Argon2id cost settings used to stretch the passphrase.
type argonParams struct {
	time    uint32
	memory  uint32 // KiB
	threads uint8
}

var defaultArgonParams = argonParams{time: 1, memory: 64 * 1024, threads: 4}

// AESBackupCipher implements ports.BackupCipher using AES-256-GCM.
// Each payload gets its own random salt, so the key differs per backup.
type AESBackupCipher struct {
	passphrase []byte
	params     argonParams
}

// NewAESBackupCipher creates a cipher keyed from passphrase.
func NewAESBackupCipher(passphrase string) (*AESBackupCipher, error) {
	if len(passphrase) < 12 {
		return nil, fmt.Errorf("backup passphrase must be at least 12 characters, got %d", len(passphrase))
	}
	return &AESBackupCipher{passphrase: []byte(passphrase), params: defaultArgonParams}, nil
}

func (c *AESBackupCipher) deriveKey(salt []byte) []byte {
	return argon2.IDKey(c.passphrase, salt, c.params.time, c.params.memory, c.params.threads, keySize)
}

func (c *AESBackupCipher) gcm(salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.deriveKey(salt))
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return aesGCM, nil
}

// Encrypt seals plaintext.
// Returns base64 of salt(16) + nonce(12) + ciphertext.
func (c *AESBackupCipher) Encrypt(plaintext []byte) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	aesGCM, err := c.gcm(salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	out := append(salt, nonce...)
	out = aesGCM.Seal(out, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt opens a payload produced by Encrypt.
func (c *AESBackupCipher) Decrypt(encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding ciphertext: %w", err)
	}
	if len(raw) < saltSize {
		return nil, errors.New("ciphertext too short")
	}

	salt, rest := raw[:saltSize], raw[saltSize:]
	aesGCM, err := c.gcm(salt)
	if err != nil {
		return nil, err
	}

	nonceSize := aesGCM.NonceSize()
	if len(rest) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, sealed := rest[:nonceSize], rest[nonceSize:]
	plaintext, err := aesGCM.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	return plaintext, nil
}
