package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/illarion/pwvault/internal/crypto"
	"github.com/illarion/pwvault/internal/logging"
	"github.com/illarion/pwvault/internal/security"
	"github.com/illarion/pwvault/internal/storage"
)

const (
	DirPermSecure = 0700 // Directory: owner rwx only
	MaxAttempts   = 3    // unlock attempts before lockout
	CancelWord    = "exit"
)

// Paths locates the vault files. File names are relative to Dir.
type Paths struct {
	Dir       string
	KeyFile   string
	LogFile   string
	IndexFile string
}

// Progress is told when a slow key derivation starts and stops.
type Progress interface {
	Start(msg string)
	Stop()
}

// Vault manages one encrypted password vault
type Vault struct {
	paths      Paths
	iterations int
	rand       io.Reader
	log        logging.Logger
	progress   Progress
}

// Option configures a Vault.
type Option func(*Vault)

// WithIterations overrides the KDF iteration count.
// It must match the count the vault was created with.
func WithIterations(n int) Option {
	return func(v *Vault) { v.iterations = n }
}

// WithRand sets the source of salt bytes.
func WithRand(r io.Reader) Option {
	return func(v *Vault) { v.rand = r }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(v *Vault) { v.log = l }
}

// WithProgress reports key derivation progress.
func WithProgress(p Progress) Option {
	return func(v *Vault) { v.progress = p }
}

// New creates a Vault for paths. Nothing is touched on disk until an
// operation runs.
func New(paths Paths, opts ...Option) *Vault {
	v := &Vault{
		paths:      paths,
		iterations: crypto.DefaultIters,
		log:        logging.Discard(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.log = v.log.With("vault", paths.Dir)
	return v
}

// Paths returns the vault locations.
func (v *Vault) Paths() Paths {
	return v.paths
}

// Initialized reports whether the key file exists.
func (v *Vault) Initialized() (bool, error) {
	if _, err := os.Stat(v.paths.Dir); os.IsNotExist(err) {
		return false, nil
	}
	pv, err := v.openRoot(false)
	if err != nil {
		return false, err
	}
	defer pv.Close()

	exists, err := storage.KeyFileExists(pv, v.paths.KeyFile)
	if err != nil {
		return false, ioFault("stat", v.path(v.paths.KeyFile), err)
	}
	return exists, nil
}

// VaultID returns the vault's identifier, creating it on first use.
func (v *Vault) VaultID(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	initialized, err := v.Initialized()
	if err != nil {
		return "", err
	}
	if !initialized {
		return "", ErrNotInitialized
	}

	pv, err := v.openRoot(false)
	if err != nil {
		return "", err
	}
	defer pv.Close()

	idx, err := v.openIndex(pv)
	if err != nil {
		return "", err
	}
	defer idx.Close()

	id, err := idx.GetOrCreateVaultID()
	if err != nil {
		return "", ioFault("update", v.path(v.paths.IndexFile), err)
	}
	return id, nil
}

// openRoot opens the vault directory, creating it first when create is set.
func (v *Vault) openRoot(create bool) (*security.PathValidator, error) {
	if create {
		if err := os.MkdirAll(v.paths.Dir, DirPermSecure); err != nil {
			return nil, ioFault("mkdir", v.paths.Dir, err)
		}
	}
	pv, err := security.New(v.paths.Dir)
	if err != nil {
		return nil, ioFault("open", v.paths.Dir, err)
	}
	return pv, nil
}

func (v *Vault) openIndex(pv *security.PathValidator) (*storage.Index, error) {
	path, err := pv.Path(v.paths.IndexFile)
	if err != nil {
		return nil, ioFault("open", v.paths.IndexFile, err)
	}
	idx, err := storage.OpenIndex(path)
	if err != nil {
		return nil, ioFault("open", path, err)
	}
	if err := idx.Initialize(); err != nil {
		idx.Close()
		return nil, ioFault("initialize", path, err)
	}
	return idx, nil
}

func (v *Vault) path(name string) string {
	return filepath.Join(v.paths.Dir, name)
}

// derive runs the slow KDF, reporting progress when configured.
func (v *Vault) derive(kdf *crypto.KDF, passphrase []byte) []byte {
	if v.progress != nil {
		v.progress.Start("Deriving key")
		defer v.progress.Stop()
	}
	return kdf.DeriveKey(passphrase)
}

// Capability is an unlocked vault key. Only authentication produces one.
type Capability struct {
	enc *crypto.Encryptor
}

func newCapability(key []byte) (*Capability, error) {
	enc, err := crypto.NewEncryptor(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return &Capability{enc: enc}, nil
}

// Close wipes the key. The capability is unusable afterwards.
func (c *Capability) Close() {
	if c == nil || c.enc == nil {
		return
	}
	c.enc.Destroy()
	c.enc = nil
}

func (c *Capability) usable() bool {
	return c != nil && c.enc != nil
}
