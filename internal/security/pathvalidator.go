package security

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrPathEscapes  = errors.New("path escapes vault directory")
	ErrAbsolutePath = errors.New("absolute paths are not allowed")
	ErrEmptyPath    = errors.New("empty path not allowed")
)

// PathValidator confines vault file operations to the vault directory
// using the os.Root API.
type PathValidator struct {
	root    *os.Root
	dirPath string
}

// New creates a PathValidator for the vault directory at dir.
// The directory must already exist.
func New(dir string) (*PathValidator, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault directory: %w", err)
	}

	return &PathValidator{
		root:    root,
		dirPath: absPath,
	}, nil
}

// Close releases the directory handle.
func (pv *PathValidator) Close() error {
	if pv.root != nil {
		return pv.root.Close()
	}
	return nil
}

// Dir returns the absolute vault directory.
func (pv *PathValidator) Dir() string {
	return pv.dirPath
}

// ValidateAndNormalize validates a configured file name and returns a
// normalized relative path. It rejects:
// - Empty paths
// - Absolute paths
// - Paths that escape the vault directory (using ..)
// - Paths that are not local (filepath.IsLocal)
func (pv *PathValidator) ValidateAndNormalize(name string) (string, error) {
	return ValidateName(name)
}

// ValidateName applies the ValidateAndNormalize rules without a directory handle.
func ValidateName(name string) (string, error) {
	if name == "" {
		return "", ErrEmptyPath
	}

	if !filepath.IsLocal(name) {
		if filepath.IsAbs(name) {
			return "", fmt.Errorf("%w: %s", ErrAbsolutePath, name)
		}
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, name)
	}

	cleanPath := filepath.Clean(name)
	if !filepath.IsLocal(cleanPath) || strings.HasPrefix(cleanPath, "..") {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, cleanPath)
	}

	return filepath.ToSlash(cleanPath), nil
}

// Path returns the absolute path of a validated name inside the vault
// directory, for libraries that need a path rather than a handle.
func (pv *PathValidator) Path(name string) (string, error) {
	clean, err := pv.ValidateAndNormalize(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(pv.dirPath, filepath.FromSlash(clean)), nil
}

// OpenFileInRoot opens a file inside the vault directory.
func (pv *PathValidator) OpenFileInRoot(name string, flag int, perm os.FileMode) (*os.File, error) {
	clean, err := pv.ValidateAndNormalize(name)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	return pv.root.OpenFile(filepath.FromSlash(clean), flag, perm)
}

// ReadFileInRoot reads a whole file inside the vault directory.
func (pv *PathValidator) ReadFileInRoot(name string) ([]byte, error) {
	f, err := pv.OpenFileInRoot(name, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

// StatInRoot stats a file inside the vault directory.
func (pv *PathValidator) StatInRoot(name string) (os.FileInfo, error) {
	clean, err := pv.ValidateAndNormalize(name)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	return pv.root.Stat(filepath.FromSlash(clean))
}

// RemoveInRoot removes a file inside the vault directory.
func (pv *PathValidator) RemoveInRoot(name string) error {
	clean, err := pv.ValidateAndNormalize(name)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	return pv.root.Remove(filepath.FromSlash(clean))
}
