package security

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestPathValidator_ValidateAndNormalize(t *testing.T) {
	tmpDir := t.TempDir()

	validator, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer validator.Close()

	tests := []struct {
		name      string
		input     string
		shouldErr bool
		errType   error
	}{
		// Valid names
		{"key file", "vault.key", false, nil},
		{"log in subdirectory", "data/passwords.log", false, nil},
		{"hidden file", ".index.db", false, nil},

		// Escape attempts
		{"parent directory", "../vault.key", true, ErrPathEscapes},
		{"nested parent", "a/../../vault.key", true, ErrPathEscapes},
		{"absolute path unix", "/etc/passwd", true, ErrAbsolutePath},

		// Empty path
		{"empty path", "", true, ErrEmptyPath},

		// Clean should normalize these
		{"dot slash", "./vault.key", false, nil},
		{"redundant slashes", "a//b///passwords.log", false, nil},
	}

	if runtime.GOOS == "windows" {
		tests = append(tests, []struct {
			name      string
			input     string
			shouldErr bool
			errType   error
		}{
			{"absolute path windows", "C:\\Windows\\vault.key", true, ErrAbsolutePath},
		}...)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := validator.ValidateAndNormalize(tt.input)

			if tt.shouldErr {
				if err == nil {
					t.Errorf("Expected error for input %q, got none", tt.input)
					return
				}
				if tt.errType != nil && !strings.Contains(err.Error(), tt.errType.Error()) {
					t.Errorf("Expected error type %v, got %v", tt.errType, err)
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error for input %q: %v", tt.input, err)
				return
			}
			if strings.Contains(result, "\\") {
				t.Errorf("Result should use forward slashes, got %q", result)
			}
			if strings.HasPrefix(result, "..") || filepath.IsAbs(result) {
				t.Errorf("Result should be local, got %q", result)
			}
		})
	}
}

func TestPathValidator_OpenReadStatRemove(t *testing.T) {
	tmpDir := t.TempDir()

	validator, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer validator.Close()

	f, err := validator.OpenFileInRoot("vault.key", os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	if _, err := f.Write([]byte("salt+key")); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	f.Close()

	// O_EXCL must refuse a second creation
	if _, err := validator.OpenFileInRoot("vault.key", os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600); !os.IsExist(err) {
		t.Errorf("Expected exist error, got %v", err)
	}

	data, err := validator.ReadFileInRoot("vault.key")
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if string(data) != "salt+key" {
		t.Errorf("Content mismatch: got %q", data)
	}

	info, err := validator.StatInRoot("vault.key")
	if err != nil {
		t.Fatalf("Failed to stat: %v", err)
	}
	if info.Size() != int64(len("salt+key")) {
		t.Errorf("Size mismatch: got %d", info.Size())
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}

	if err := validator.RemoveInRoot("vault.key"); err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}
	if _, err := validator.StatInRoot("vault.key"); !os.IsNotExist(err) {
		t.Errorf("Expected not-exist after removal, got %v", err)
	}
}

func TestPathValidator_Path(t *testing.T) {
	tmpDir := t.TempDir()

	validator, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer validator.Close()

	p, err := validator.Path("index.db")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	abs, _ := filepath.Abs(tmpDir)
	if p != filepath.Join(abs, "index.db") {
		t.Errorf("Path mismatch: got %s", p)
	}

	if _, err := validator.Path("../index.db"); err == nil {
		t.Error("Expected error for escaping name")
	}
}

func TestNew_MissingDirectory(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected error for missing directory")
	}
}

// Test that os.Root actually prevents escaping
func TestPathValidator_ActualEscapePrevention(t *testing.T) {
	tmpDir := t.TempDir()

	outsideDir := filepath.Dir(tmpDir)
	targetFile := filepath.Join(outsideDir, "should_not_be_written.log")
	defer os.Remove(targetFile)

	validator, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer validator.Close()

	_, err = validator.OpenFileInRoot("../should_not_be_written.log", os.O_WRONLY|os.O_CREATE, 0600)
	if err == nil {
		t.Error("Expected error when trying to write outside root, got none")
	}

	if _, statErr := os.Stat(targetFile); statErr == nil {
		t.Error("File was created outside vault directory")
		os.Remove(targetFile)
	}
}
