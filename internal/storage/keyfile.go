package storage

import (
	"errors"
	"fmt"
	"os"

	"github.com/illarion/pwvault/internal/crypto"
	"github.com/illarion/pwvault/internal/security"
)

const FilePermSecure = 0600 // File: owner rw only

var (
	ErrKeyFileExists  = errors.New("key file already exists")
	ErrKeyFileMissing = errors.New("key file not found")
	ErrKeyFileCorrupt = errors.New("key file is corrupt")
)

// KeyFileSize is the exact size of a valid key file.
const KeyFileSize = crypto.SaltSize + crypto.EncodedKeySize

// WriteKeyFile creates the key file holding salt followed by the encoded key.
// It never overwrites an existing file. A partially written file is removed.
func WriteKeyFile(pv *security.PathValidator, name string, salt, key []byte) error {
	if len(salt) != crypto.SaltSize || len(key) != crypto.EncodedKeySize {
		return fmt.Errorf("%w: salt %d bytes, key %d bytes", ErrKeyFileCorrupt, len(salt), len(key))
	}

	f, err := pv.OpenFileInRoot(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, FilePermSecure)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrKeyFileExists
		}
		return fmt.Errorf("failed to create key file: %w", err)
	}

	data := make([]byte, 0, KeyFileSize)
	data = append(data, salt...)
	data = append(data, key...)
	defer crypto.ClearBytes(data)

	if _, err := f.Write(data); err != nil {
		f.Close()
		pv.RemoveInRoot(name)
		return fmt.Errorf("failed to write key file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		pv.RemoveInRoot(name)
		return fmt.Errorf("failed to sync key file: %w", err)
	}
	if err := f.Close(); err != nil {
		pv.RemoveInRoot(name)
		return fmt.Errorf("failed to close key file: %w", err)
	}
	return nil
}

// ReadKeyFile returns the salt and encoded key stored in the key file.
func ReadKeyFile(pv *security.PathValidator, name string) (salt, key []byte, err error) {
	data, err := pv.ReadFileInRoot(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, ErrKeyFileMissing
		}
		return nil, nil, fmt.Errorf("failed to read key file: %w", err)
	}
	if len(data) != KeyFileSize {
		crypto.ClearBytes(data)
		return nil, nil, fmt.Errorf("%w: %d bytes, want %d", ErrKeyFileCorrupt, len(data), KeyFileSize)
	}

	salt = append([]byte(nil), data[:crypto.SaltSize]...)
	key = append([]byte(nil), data[crypto.SaltSize:]...)
	crypto.ClearBytes(data)
	return salt, key, nil
}

// KeyFileExists reports whether the key file is present.
func KeyFileExists(pv *security.PathValidator, name string) (bool, error) {
	_, err := pv.StatInRoot(name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
