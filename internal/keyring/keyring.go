// Package keyring caches the vault master passphrase in the OS keyring,
// keyed by the vault ID kept in the vault index.
package keyring

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const serviceName = "pwvault"

// ErrNotFound is returned when no passphrase is stored for a vault.
var ErrNotFound = errors.New("passphrase not found in keyring")

// SavePassphrase stores a passphrase in the OS keyring
func SavePassphrase(vaultID string, passphrase []byte) error {
	return keyring.Set(serviceName, vaultID, string(passphrase))
}

// GetPassphrase retrieves a passphrase from the OS keyring.
// The caller should clear the returned bytes.
func GetPassphrase(vaultID string) ([]byte, error) {
	secret, err := keyring.Get(serviceName, vaultID)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return []byte(secret), nil
}

// DeletePassphrase removes a passphrase from the OS keyring
func DeletePassphrase(vaultID string) error {
	err := keyring.Delete(serviceName, vaultID)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// HasPassphrase checks if a passphrase is stored in the keyring
func HasPassphrase(vaultID string) bool {
	_, err := keyring.Get(serviceName, vaultID)
	return err == nil
}
