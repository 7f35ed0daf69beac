// Package crypto seals credential material (the SNMP community strings and
// SNMPv3 keys of poll targets) so it is held in memory only in sealed form,
// using NaCl secretbox authenticated encryption.
package crypto

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

// KeySize is the required length of a secretbox key.
const KeySize = 32

// NonceSize is the length of the random nonce prepended to each sealed value.
const NonceSize = 24

// Sealer seals and opens secret values with a fixed symmetric key.
type Sealer struct {
	key [KeySize]byte
}

// NewSealer creates a Sealer from a 32-byte key.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("crypto: key must be %d bytes, got %d", KeySize, len(key))
	}
	s := &Sealer{}
	copy(s.key[:], key)
	return s, nil
}

// Seal encrypts plaintext, returning nonce||ciphertext.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("crypto: generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &s.key), nil
}

// Open decrypts a value previously produced by Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < NonceSize {
		return nil, fmt.Errorf("crypto: sealed value too short")
	}
	var nonce [NonceSize]byte
	copy(nonce[:], sealed[:NonceSize])

	plaintext, ok := secretbox.Open(nil, sealed[NonceSize:], &nonce, &s.key)
	if !ok {
		return nil, fmt.Errorf("crypto: decryption failed, wrong key or corrupted data")
	}
	return plaintext, nil
}

// GenerateKey returns a new random 32-byte secretbox key. The key is not
// persisted; values sealed with it can only be opened by the same process.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("crypto: generate key: %w", err)
	}
	return key, nil
}
