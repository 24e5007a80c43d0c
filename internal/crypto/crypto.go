package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// ErrMalformed is returned when sealed data is too short to hold a nonce.
var ErrMalformed = errors.New("crypto: malformed sealed data")

// Sealer encrypts values at rest with AES-GCM. Sealed values carry their
// nonce as a prefix.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer builds a Sealer from a 16, 24 or 32 byte key.
func NewSealer(key []byte) (*Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aesgcm}, nil
}

// NewSealerFromHex builds a Sealer from a hex encoded key.
func NewSealerFromHex(hexKey string) (*Sealer, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode sealing key: %w", err)
	}
	return NewSealer(key)
}

// Seal encrypts plaintext and returns nonce||ciphertext
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a value produced by Seal
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	size := s.aead.NonceSize()
	if len(sealed) < size {
		return nil, ErrMalformed
	}
	plaintext, err := s.aead.Open(nil, sealed[:size], sealed[size:], nil)
	if err != nil {
		return nil, err
	}
	return plaintext, nil
}
