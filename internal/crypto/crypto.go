package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize       = 16     // Salt size in bytes
	KeySize        = 32     // AES-256 key size
	EncodedKeySize = 44     // base64url length of a KeySize key
	NonceSize      = 12     // GCM nonce size
	TagSize        = 16     // GCM authentication tag size
	DefaultIters   = 480000 // PBKDF2 iterations
)

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrAuthFailed        = errors.New("authentication failed")
	ErrInvalidKey        = errors.New("invalid key")
)

// KDF handles key derivation from passphrases
type KDF struct {
	Salt       []byte
	Iterations int
}

// NewKDF creates a new KDF with a salt read from r.
// A nil reader means crypto/rand.
func NewKDF(r io.Reader) (*KDF, error) {
	if r == nil {
		r = rand.Reader
	}
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(r, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	return &KDF{
		Salt:       salt,
		Iterations: DefaultIters,
	}, nil
}

// DeriveKey derives a key from a passphrase and returns it as base64url text.
// The same passphrase and salt always produce the same key.
func (k *KDF) DeriveKey(passphrase []byte) []byte {
	raw := pbkdf2.Key(passphrase, k.Salt, k.Iterations, KeySize, sha256.New)
	defer ClearBytes(raw)

	encoded := make([]byte, base64.URLEncoding.EncodedLen(len(raw)))
	base64.URLEncoding.Encode(encoded, raw)
	return encoded
}

// Encryptor provides authenticated encryption
type Encryptor struct {
	key []byte
}

// NewEncryptor creates a new encryptor from a base64url key produced by DeriveKey.
func NewEncryptor(encodedKey []byte) (*Encryptor, error) {
	if len(encodedKey) != EncodedKeySize {
		return nil, ErrInvalidKey
	}
	buf := make([]byte, base64.URLEncoding.DecodedLen(len(encodedKey)))
	n, err := base64.URLEncoding.Decode(buf, encodedKey)
	if err != nil || n != KeySize {
		ClearBytes(buf)
		return nil, ErrInvalidKey
	}

	return &Encryptor{
		key: buf[:KeySize],
	}, nil
}

// Encrypt encrypts plaintext using AES-256-GCM.
// The result is nonce || ciphertext || tag.
func (e *Encryptor) Encrypt(plaintext []byte) ([]byte, error) {
	gcm, err := e.gcm()
	if err != nil {
		return nil, err
	}

	// Generate random nonce
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal appends to nonce so the result is laid out in one allocation
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt decrypts ciphertext using AES-256-GCM
func (e *Encryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < NonceSize+TagSize {
		return nil, ErrInvalidCiphertext
	}

	gcm, err := e.gcm()
	if err != nil {
		return nil, err
	}

	nonce := ciphertext[:NonceSize]
	plaintext, err := gcm.Open(nil, nonce, ciphertext[NonceSize:], nil)
	if err != nil {
		return nil, ErrAuthFailed
	}

	return plaintext, nil
}

func (e *Encryptor) gcm() (cipher.AEAD, error) {
	if len(e.key) != KeySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Destroy clears the encryptor's key from memory
func (e *Encryptor) Destroy() {
	ClearBytes(e.key)
	e.key = nil
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
