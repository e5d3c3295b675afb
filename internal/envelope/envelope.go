// Package envelope implements the client-side end-to-end encryption
// wrapper for shared-document content. An envelope is a JSON object
// {"iv": base64, "ct": base64} where ct is AES-256-GCM ciphertext plus
// its authentication tag. The server never parses envelopes; it relays
// document content as opaque bytes whether or not encryption is on.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrDecode signals an envelope that is malformed or fails
// authentication (wrong or missing key). Callers are expected to fall
// back to treating the raw bytes as plaintext content, since the
// document may legitimately be unencrypted.
var ErrDecode = errors.New("envelope decode failed")

const ivSize = 12

type wireEnvelope struct {
	IV string `json:"iv"`
	CT string `json:"ct"`
}

// Encode authenticated-encrypts plaintext under key with a fresh random
// 12-byte IV and serializes the {iv, ct} envelope. A new IV is generated
// on every call; IVs are never reused with the same key.
func Encode(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("read iv: %w", err)
	}

	ct := aesgcm.Seal(nil, iv, plaintext, nil)

	return json.Marshal(wireEnvelope{
		IV: base64.StdEncoding.EncodeToString(iv),
		CT: base64.StdEncoding.EncodeToString(ct),
	})
}

// Decode deserializes and authenticated-decrypts an envelope. Any
// structural problem or authentication failure is reported as ErrDecode;
// plaintext is never returned for an unauthenticated envelope.
func Decode(data []byte, key []byte) ([]byte, error) {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if w.IV == "" || w.CT == "" {
		return nil, fmt.Errorf("%w: missing iv or ct", ErrDecode)
	}

	iv, err := base64.StdEncoding.DecodeString(w.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: bad iv encoding", ErrDecode)
	}
	ct, err := base64.StdEncoding.DecodeString(w.CT)
	if err != nil {
		return nil, fmt.Errorf("%w: bad ct encoding", ErrDecode)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	if len(iv) != aesgcm.NonceSize() {
		return nil, fmt.Errorf("%w: bad iv size %d", ErrDecode, len(iv))
	}

	plaintext, err := aesgcm.Open(nil, iv, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return plaintext, nil
}

// IsEnvelope reports whether data looks like an encoded envelope. It is
// a cheap structural check only; it says nothing about whether the
// ciphertext will authenticate.
func IsEnvelope(data []byte) bool {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return false
	}
	return w.IV != "" && w.CT != ""
}
