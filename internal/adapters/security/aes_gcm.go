package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// AESGCMEncryption seals document numbers with a per-user key derived from a
// service-wide seed. Output is base64(nonce || ciphertext).
type AESGCMEncryption struct {
	seed string
}

func NewAESGCMEncryption(seed string) *AESGCMEncryption {
	return &AESGCMEncryption{seed: seed}
}

func (e *AESGCMEncryption) Encrypt(userID string, value string) ([]byte, error) {
	gcm, err := e.aead(userID)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(value), []byte(userID))
	return []byte(base64.StdEncoding.EncodeToString(sealed)), nil
}

func (e *AESGCMEncryption) Decrypt(userID string, payload []byte) (string, error) {
	gcm, err := e.aead(userID)
	if err != nil {
		return "", err
	}
	decoded, err := base64.StdEncoding.DecodeString(string(payload))
	if err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}
	if len(decoded) < gcm.NonceSize() {
		return "", errors.New("ciphertext too short")
	}
	nonce, body := decoded[:gcm.NonceSize()], decoded[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, body, []byte(userID))
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func (e *AESGCMEncryption) aead(userID string) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(userID, e.seed))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func deriveKey(userID, seed string) []byte {
	sum := sha256.Sum256([]byte(seed + ":" + userID))
	return sum[:]
}
