package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/illarion/pwvault/internal/crypto"
	"github.com/illarion/pwvault/internal/security"
	"github.com/illarion/pwvault/internal/storage"
)

// Prompter supplies passphrases during authentication.
type Prompter interface {
	// ReadNewPassphrase asks for a new master passphrase and its confirmation.
	ReadNewPassphrase(ctx context.Context) (passphrase, confirm []byte, err error)
	// ReadPassphrase asks for the master passphrase. remaining counts this attempt.
	ReadPassphrase(ctx context.Context, remaining int) ([]byte, error)
}

// Rejecter is implemented by prompters that want to show why an entry was
// refused before the next prompt.
type Rejecter interface {
	Reject(err error)
}

// Authenticate returns a Capability for the vault. On first run it creates
// the key file from a new passphrase, re-prompting until one is accepted.
// Otherwise it allows MaxAttempts unlock attempts; entering CancelWord ends
// authentication with ErrCancelled and no further prompts.
func (v *Vault) Authenticate(ctx context.Context, p Prompter) (*Capability, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pv, err := v.openRoot(true)
	if err != nil {
		return nil, err
	}
	defer pv.Close()

	exists, err := storage.KeyFileExists(pv, v.paths.KeyFile)
	if err != nil {
		return nil, ioFault("stat", v.path(v.paths.KeyFile), err)
	}
	if !exists {
		return v.setup(ctx, pv, p)
	}
	return v.unlock(ctx, pv, p)
}

// Unlock makes a single attempt with passphrase. It never prompts.
func (v *Vault) Unlock(ctx context.Context, passphrase []byte) (*Capability, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	initialized, err := v.Initialized()
	if err != nil {
		return nil, err
	}
	if !initialized {
		return nil, ErrNotInitialized
	}

	pv, err := v.openRoot(false)
	if err != nil {
		return nil, err
	}
	defer pv.Close()

	kdf, stored, err := v.readKeyFile(pv)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(stored)

	if !v.matches(kdf, passphrase, stored) {
		v.log.Warn(ctx, "unlock failed")
		return nil, ErrWrongPassphrase
	}
	return newCapability(stored)
}

func (v *Vault) setup(ctx context.Context, pv *security.PathValidator, p Prompter) (*Capability, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		passphrase, confirm, err := p.ReadNewPassphrase(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read passphrase: %w", err)
		}
		reason := checkNewPassphrase(passphrase, confirm)
		crypto.ClearBytes(confirm)
		if reason != nil {
			crypto.ClearBytes(passphrase)
			v.log.Debug(ctx, "new passphrase rejected", "reason", reason)
			reject(p, reason)
			continue
		}

		c, err := v.create(ctx, pv, passphrase)
		crypto.ClearBytes(passphrase)
		return c, err
	}
}

func checkNewPassphrase(passphrase, confirm []byte) error {
	switch {
	case len(passphrase) == 0:
		return ErrEmptyPassphrase
	case string(passphrase) == CancelWord:
		return ErrReservedPassphrase
	case !crypto.ConstantTimeCompare(passphrase, confirm):
		return ErrPassphraseMismatch
	}
	return nil
}

// create writes the key file for a new vault.
func (v *Vault) create(ctx context.Context, pv *security.PathValidator, passphrase []byte) (*Capability, error) {
	kdf, err := crypto.NewKDF(v.rand)
	if err != nil {
		return nil, err
	}
	kdf.Iterations = v.iterations

	key := v.derive(kdf, passphrase)
	defer crypto.ClearBytes(key)

	if err := storage.WriteKeyFile(pv, v.paths.KeyFile, kdf.Salt, key); err != nil {
		return nil, ioFault("create", v.path(v.paths.KeyFile), err)
	}
	v.log.Info(ctx, "vault created", "key_file", v.paths.KeyFile)

	if idx, err := v.openIndex(pv); err != nil {
		v.log.Warn(ctx, "index unavailable", "error", err)
	} else {
		if _, err := idx.GetOrCreateVaultID(); err != nil {
			v.log.Warn(ctx, "failed to assign vault id", "error", err)
		}
		idx.Close()
	}

	return newCapability(key)
}

func (v *Vault) unlock(ctx context.Context, pv *security.PathValidator, p Prompter) (*Capability, error) {
	kdf, stored, err := v.readKeyFile(pv)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(stored)

	for remaining := MaxAttempts; remaining > 0; remaining-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		attempt, err := p.ReadPassphrase(ctx, remaining)
		if err != nil {
			return nil, fmt.Errorf("failed to read passphrase: %w", err)
		}
		if string(attempt) == CancelWord {
			crypto.ClearBytes(attempt)
			v.log.Debug(ctx, "unlock cancelled")
			return nil, ErrCancelled
		}

		ok := v.matches(kdf, attempt, stored)
		crypto.ClearBytes(attempt)
		if ok {
			v.log.Debug(ctx, "vault unlocked")
			return newCapability(stored)
		}

		v.log.Warn(ctx, "unlock attempt failed", "remaining", remaining-1)
		reject(p, ErrWrongPassphrase)
	}

	return nil, ErrLockedOut
}

func (v *Vault) readKeyFile(pv *security.PathValidator) (*crypto.KDF, []byte, error) {
	salt, key, err := storage.ReadKeyFile(pv, v.paths.KeyFile)
	if err != nil {
		if errors.Is(err, storage.ErrKeyFileMissing) {
			return nil, nil, ErrNotInitialized
		}
		return nil, nil, ioFault("read", v.path(v.paths.KeyFile), err)
	}
	return &crypto.KDF{Salt: salt, Iterations: v.iterations}, key, nil
}

func (v *Vault) matches(kdf *crypto.KDF, passphrase, stored []byte) bool {
	candidate := v.derive(kdf, passphrase)
	defer crypto.ClearBytes(candidate)
	return crypto.ConstantTimeCompare(candidate, stored)
}

func reject(p Prompter, err error) {
	if r, ok := p.(Rejecter); ok {
		r.Reject(err)
	}
}
