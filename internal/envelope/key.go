package envelope

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the derived AES key length (AES-256).
	KeySize = 32

	// SaltSize is the length of the per-client random salt.
	SaltSize = 16

	// Iterations is deliberately high to resist offline brute force.
	Iterations = 100_000
)

// DeriveKey stretches a passphrase into an AES-256 key with
// PBKDF2-SHA256. The same passphrase and salt always produce the same
// key; changing the salt silently breaks decryption of prior content,
// which is an accepted trade-off of this model.
func DeriveKey(passphrase []byte, salt []byte) []byte {
	return pbkdf2.Key(passphrase, salt, Iterations, KeySize, sha256.New)
}

// LoadOrCreateSalt returns the salt persisted at path, generating and
// persisting a fresh random one on first use. The salt is stored
// base64-encoded so it survives being opened in an editor.
func LoadOrCreateSalt(path string) ([]byte, error) {
	if b, err := os.ReadFile(path); err == nil {
		salt, err := base64.StdEncoding.DecodeString(string(b))
		if err != nil {
			return nil, fmt.Errorf("corrupt salt file %s: %w", path, err)
		}
		return salt, nil
	}

	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("read rand: %w", err)
	}
	if err := os.WriteFile(path, []byte(base64.StdEncoding.EncodeToString(salt)), 0o600); err != nil {
		return nil, fmt.Errorf("write salt file: %w", err)
	}
	return salt, nil
}
