package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"strings"
)

var (
	ErrEncryption   = errors.New("encryption failed")
	ErrDecryption   = errors.New("decryption failed")
	ErrNotEncrypted = errors.New("value is not encrypted")
)

// FieldEncryptor encrypts individual document fields. Values are
// self-describing: the random IV is hex-encoded and prepended to the
// base64 ciphertext, separated by a colon, so decryption needs no
// external IV storage.
type FieldEncryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

type aesFieldEncryptor struct {
	key []byte
}

// NewFieldEncryptor creates an AES-256-CBC field encryptor. Keys that
// are not exactly 32 bytes are hashed with SHA-256 to the required
// length, so any non-empty configured secret is usable.
func NewFieldEncryptor(key string) (FieldEncryptor, error) {
	if key == "" {
		return nil, errors.New("encryption key is required")
	}
	k := []byte(key)
	if len(k) != 32 {
		sum := sha256.Sum256(k)
		k = sum[:]
	}
	return &aesFieldEncryptor{key: k}, nil
}

func (e *aesFieldEncryptor) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", ErrEncryption
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", ErrEncryption
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	return hex.EncodeToString(iv) + ":" + base64.StdEncoding.EncodeToString(out), nil
}

func (e *aesFieldEncryptor) Decrypt(value string) (string, error) {
	ivHex, encoded, ok := strings.Cut(value, ":")
	if !ok {
		// Rows written before encryption was enabled carry plain
		// values; callers decide whether to pass them through.
		return "", ErrNotEncrypted
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", ErrNotEncrypted
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrDecryption
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", ErrDecryption
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", ErrDecryption
	}

	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)

	unpadded, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", ErrDecryption
	}
	return string(unpadded), nil
}

// IsEncrypted reports whether a stored value carries the IV prefix
// produced by Encrypt.
func IsEncrypted(value string) bool {
	ivHex, _, ok := strings.Cut(value, ":")
	if !ok {
		return false
	}
	iv, err := hex.DecodeString(ivHex)
	return err == nil && len(iv) == aes.BlockSize
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrDecryption
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrDecryption
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrDecryption
		}
	}
	return data[:len(data)-n], nil
}
