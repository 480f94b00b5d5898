package client

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// SecureFileStore persists client state encrypted at rest with AES-256-GCM.
// Writes go to a temp file first and are renamed into place, so a crash never
// leaves a half-written journal. Earlier client versions stored plaintext
// JSON; Load detects that and the next Save silently upgrades the file.
type SecureFileStore struct {
	path string
	aead cipher.AEAD
}

var ErrInvalidKeySize = errors.New("store key must be 32 bytes")

func NewSecureFileStore(path string, key []byte) (*SecureFileStore, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &SecureFileStore{path: path, aead: aead}, nil
}

func (s *SecureFileStore) Save(value interface{}) error {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return err
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return err
	}
	sealed := s.aead.Seal(nonce, nonce, plaintext, nil)

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(sealed); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.path)
}

// Load decodes the store into value. A missing file is not an error; the
// caller starts empty. Legacy plaintext files are read as-is.
func (s *SecureFileStore) Load(value interface{}) error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	if isLegacyPlaintext(raw) {
		return json.Unmarshal(raw, value)
	}

	if len(raw) < s.aead.NonceSize() {
		return fmt.Errorf("store file corrupt: too short")
	}
	nonce, ciphertext := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("decrypt store: %w", err)
	}
	return json.Unmarshal(plaintext, value)
}

// Legacy files were written by json.Marshal, so they always start with an
// object or array. Ciphertext starting with those bytes is possible but the
// nonce makes it astronomically unlikely to also parse as JSON.
func isLegacyPlaintext(raw []byte) bool {
	if raw[0] != '{' && raw[0] != '[' {
		return false
	}
	return json.Valid(raw)
}
