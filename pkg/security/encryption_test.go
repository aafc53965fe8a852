package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := NewFieldEncryptor("test-key")
	require.NoError(t, err)

	for _, plaintext := range []string{"POL-12345", "", "a", strings.Repeat("x", 1000), "ünïcödé ✓"} {
		stored, err := enc.Encrypt(plaintext)
		require.NoError(t, err)
		assert.True(t, IsEncrypted(stored))

		got, err := enc.Decrypt(stored)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEncryptProducesDistinctCiphertexts(t *testing.T) {
	enc, err := NewFieldEncryptor("test-key")
	require.NoError(t, err)

	a, err := enc.Encrypt("same value")
	require.NoError(t, err)
	b, err := enc.Encrypt("same value")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "random IV must make ciphertexts differ")
}

func TestDecryptPlainValue(t *testing.T) {
	enc, err := NewFieldEncryptor("test-key")
	require.NoError(t, err)

	_, err = enc.Decrypt("just a plain policy number")
	assert.ErrorIs(t, err, ErrNotEncrypted)
}

func TestDecryptTamperedValue(t *testing.T) {
	enc, err := NewFieldEncryptor("test-key")
	require.NoError(t, err)

	stored, err := enc.Encrypt("secret")
	require.NoError(t, err)

	// Flip the payload while keeping a valid IV prefix.
	iv, _, _ := strings.Cut(stored, ":")
	_, err = enc.Decrypt(iv + ":bm90IHZhbGlkIGNpcGhlcnRleHQhISE=")
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestDecryptWrongKey(t *testing.T) {
	enc1, err := NewFieldEncryptor("key-one")
	require.NoError(t, err)
	enc2, err := NewFieldEncryptor("key-two")
	require.NoError(t, err)

	stored, err := enc1.Encrypt("secret")
	require.NoError(t, err)

	got, err := enc2.Decrypt(stored)
	if err == nil {
		// Padding can accidentally validate; the plaintext must still
		// be wrong.
		assert.NotEqual(t, "secret", got)
	} else {
		assert.ErrorIs(t, err, ErrDecryption)
	}
}

func TestAnyKeyLengthAccepted(t *testing.T) {
	for _, key := range []string{"short", strings.Repeat("k", 32), strings.Repeat("k", 64)} {
		enc, err := NewFieldEncryptor(key)
		require.NoError(t, err)

		stored, err := enc.Encrypt("value")
		require.NoError(t, err)
		got, err := enc.Decrypt(stored)
		require.NoError(t, err)
		assert.Equal(t, "value", got)
	}

	_, err := NewFieldEncryptor("")
	assert.Error(t, err)
}

func TestIsEncrypted(t *testing.T) {
	assert.False(t, IsEncrypted("plain text"))
	assert.False(t, IsEncrypted("with:colon"))
	assert.False(t, IsEncrypted(""))

	enc, err := NewFieldEncryptor("test-key")
	require.NoError(t, err)
	stored, err := enc.Encrypt("value")
	require.NoError(t, err)
	assert.True(t, IsEncrypted(stored))
}
