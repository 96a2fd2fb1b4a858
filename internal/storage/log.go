package storage

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/illarion/pwvault/internal/security"
)

// EntrySeparator terminates every log entry.
const EntrySeparator = '\n'

var ErrInvalidEntry = errors.New("log entry must be non-empty and contain no separator")

// AppendEntry appends entry plus separator to the log with a single write and
// returns the offset the entry starts at. If the write fails the log is
// truncated back to its previous size.
func AppendEntry(pv *security.PathValidator, name string, entry []byte) (int64, error) {
	if len(entry) == 0 || bytes.IndexByte(entry, EntrySeparator) >= 0 {
		return 0, ErrInvalidEntry
	}

	f, err := pv.OpenFileInRoot(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, FilePermSecure)
	if err != nil {
		return 0, fmt.Errorf("failed to open log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat log: %w", err)
	}
	offset := info.Size()

	line := make([]byte, 0, len(entry)+1)
	line = append(line, entry...)
	line = append(line, EntrySeparator)

	if _, err := f.Write(line); err != nil {
		f.Truncate(offset)
		return 0, fmt.Errorf("failed to append log entry: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Truncate(offset)
		return 0, fmt.Errorf("failed to sync log: %w", err)
	}
	return offset, nil
}

// TruncateLog cuts the log back to size, undoing appends made after it.
func TruncateLog(pv *security.PathValidator, name string, size int64) error {
	f, err := pv.OpenFileInRoot(name, os.O_WRONLY, FilePermSecure)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer f.Close()

	if err := f.Truncate(size); err != nil {
		return fmt.Errorf("failed to truncate log: %w", err)
	}
	return f.Sync()
}

// LogSize returns the size of the log, or 0 when it does not exist yet.
func LogSize(pv *security.PathValidator, name string) (int64, error) {
	info, err := pv.StatInRoot(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to stat log: %w", err)
	}
	return info.Size(), nil
}

// ReadEntryAt returns the entry stored at offset whose size includes the
// separator. It fails with ErrInvalidEntry when the bytes there are not one
// complete entry.
func ReadEntryAt(pv *security.PathValidator, name string, offset, size int64) ([]byte, error) {
	if offset < 0 || size < 2 {
		return nil, ErrInvalidEntry
	}

	f, err := pv.OpenFileInRoot(name, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	defer f.Close()

	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, offset); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrInvalidEntry
		}
		return nil, fmt.Errorf("failed to read log entry: %w", err)
	}

	entry := buf[:size-1]
	if buf[size-1] != EntrySeparator || bytes.IndexByte(entry, EntrySeparator) >= 0 {
		return nil, ErrInvalidEntry
	}
	if offset > 0 {
		prev := make([]byte, 1)
		if _, err := f.ReadAt(prev, offset-1); err != nil {
			return nil, fmt.Errorf("failed to read log entry: %w", err)
		}
		if prev[0] != EntrySeparator {
			return nil, ErrInvalidEntry
		}
	}
	return entry, nil
}

// ReadEntries returns every entry in the log in append order, without
// separators. A missing log has no entries.
func ReadEntries(pv *security.PathValidator, name string) ([][]byte, error) {
	data, err := pv.ReadFileInRoot(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read log: %w", err)
	}

	var entries [][]byte
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		entries = append(entries, append([]byte(nil), line...))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan log: %w", err)
	}
	return entries, nil
}
