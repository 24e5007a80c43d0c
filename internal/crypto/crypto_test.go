package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer([]byte("32-byte-key-for-aes-encryption!!"))
	require.NoError(t, err)

	plaintext := []byte(`[{"id":1,"titulo":"Fuga"}]`)
	sealed, err := s.Seal(plaintext)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(sealed, []byte("Fuga")))

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestSealer_Tampered(t *testing.T) {
	s, err := NewSealer([]byte("32-byte-key-for-aes-encryption!!"))
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("secret"))
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff

	_, err = s.Open(sealed)
	assert.Error(t, err)

	_, err = s.Open([]byte("short"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestNewSealerFromHex(t *testing.T) {
	_, err := NewSealerFromHex("not-hex")
	assert.Error(t, err)

	_, err = NewSealerFromHex("000102030405060708090a0b0c0d0e0f")
	assert.NoError(t, err)
}
