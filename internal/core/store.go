package core

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/illarion/pwvault/internal/crypto"
	"github.com/illarion/pwvault/internal/security"
	"github.com/illarion/pwvault/internal/storage"
)

// Save encrypts rec and appends it to the log as one entry. The log either
// gains exactly that entry or is left as it was.
func (v *Vault) Save(ctx context.Context, c *Capability, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.usable() {
		return ErrLocked
	}

	text, err := rec.MarshalText()
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(text)

	sealed, err := c.enc.Encrypt(text)
	if err != nil {
		return ioFault("encrypt", v.path(v.paths.LogFile), err)
	}
	entry := []byte(base64.URLEncoding.EncodeToString(sealed))

	pv, err := v.openRoot(true)
	if err != nil {
		return err
	}
	defer pv.Close()

	_, statErr := pv.StatInRoot(v.paths.LogFile)
	created := errors.Is(statErr, os.ErrNotExist)

	offset, err := storage.AppendEntry(pv, v.paths.LogFile, entry)
	if err != nil {
		if created {
			v.removeLog(ctx, pv)
		}
		return ioFault("append", v.path(v.paths.LogFile), err)
	}

	indexed, err := v.indexEntry(pv, offset, entry)
	if err != nil {
		if created {
			v.removeLog(ctx, pv)
		} else if terr := storage.TruncateLog(pv, v.paths.LogFile, offset); terr != nil {
			v.log.Error(ctx, "failed to roll back log append", "offset", offset, "error", terr)
		}
		return err
	}

	v.log.Info(ctx, "record saved", "seq", indexed.Seq, "id", indexed.ID)
	return nil
}

// removeLog deletes a log that the failed save created.
func (v *Vault) removeLog(ctx context.Context, pv *security.PathValidator) {
	if err := pv.RemoveInRoot(v.paths.LogFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		v.log.Error(ctx, "failed to remove log after failed save", "error", err)
	}
}

// indexEntry records the appended entry in the index.
func (v *Vault) indexEntry(pv *security.PathValidator, offset int64, entry []byte) (storage.IndexEntry, error) {
	idx, err := v.openIndex(pv)
	if err != nil {
		return storage.IndexEntry{}, err
	}
	defer idx.Close()

	stored, err := idx.AppendEntry(storage.IndexEntry{
		Offset:  offset,
		Size:    int64(len(entry)) + 1,
		Hash:    entryHash(entry),
		Created: time.Now().UTC(),
	})
	if err != nil {
		return storage.IndexEntry{}, ioFault("update", v.path(v.paths.IndexFile), err)
	}
	return stored, nil
}

// Records decrypts every saved record in append order.
func (v *Vault) Records(ctx context.Context, c *Capability) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.usable() {
		return nil, ErrLocked
	}

	pv, err := v.openRoot(false)
	if err != nil {
		return nil, err
	}
	defer pv.Close()

	entries, err := storage.ReadEntries(pv, v.paths.LogFile)
	if err != nil {
		return nil, ioFault("read", v.path(v.paths.LogFile), err)
	}

	records := make([]Record, 0, len(entries))
	for i, entry := range entries {
		rec, err := openEntry(c, entry)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func openEntry(c *Capability, entry []byte) (Record, error) {
	sealed, err := base64.URLEncoding.DecodeString(string(entry))
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	text, err := c.enc.Decrypt(sealed)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	defer crypto.ClearBytes(text)

	var rec Record
	if err := rec.UnmarshalText(text); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Status describes the vault without unlocking it.
type Status struct {
	Dir          string
	Initialized  bool
	VaultID      string
	Created      time.Time
	Entries      int // entries in the log
	Indexed      int // entries in the index
	IndexMissing bool
	LogSize      int64
	LastSaved    time.Time
	Mismatched   []uint64 // index sequences whose log entry is missing or differs
}

// Consistent reports whether the log and index agree.
func (s *Status) Consistent() bool {
	return !s.IndexMissing && s.Entries == s.Indexed && len(s.Mismatched) == 0
}

// Status inspects the vault files. It needs no passphrase and creates nothing.
func (v *Vault) Status(ctx context.Context) (*Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	st := &Status{Dir: v.paths.Dir}
	if _, err := os.Stat(v.paths.Dir); errors.Is(err, os.ErrNotExist) {
		return st, nil
	}

	initialized, err := v.Initialized()
	if err != nil {
		return nil, err
	}
	st.Initialized = initialized
	if !initialized {
		return st, nil
	}

	pv, err := v.openRoot(false)
	if err != nil {
		return nil, err
	}
	defer pv.Close()
	st.Dir = pv.Dir()

	if st.LogSize, err = storage.LogSize(pv, v.paths.LogFile); err != nil {
		return nil, ioFault("stat", v.path(v.paths.LogFile), err)
	}
	entries, err := storage.ReadEntries(pv, v.paths.LogFile)
	if err != nil {
		return nil, ioFault("read", v.path(v.paths.LogFile), err)
	}
	st.Entries = len(entries)

	idx, err := v.openIndexReadOnly(pv)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		st.IndexMissing = true
		v.log.Warn(ctx, "index missing", "index_file", v.paths.IndexFile)
		return st, nil
	}
	defer idx.Close()

	if err := v.readIndexStatus(pv, idx, st); err != nil {
		return nil, err
	}

	v.log.Debug(ctx, "status", "entries", st.Entries, "indexed", st.Indexed, "mismatched", len(st.Mismatched))
	return st, nil
}

// openIndexReadOnly opens the index without creating it. A missing or never
// initialized index yields nil.
func (v *Vault) openIndexReadOnly(pv *security.PathValidator) (*storage.Index, error) {
	if _, err := pv.StatInRoot(v.paths.IndexFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, ioFault("stat", v.path(v.paths.IndexFile), err)
	}

	path, err := pv.Path(v.paths.IndexFile)
	if err != nil {
		return nil, ioFault("open", v.paths.IndexFile, err)
	}
	idx, err := storage.OpenIndexReadOnly(path)
	if err != nil {
		return nil, ioFault("open", path, err)
	}

	initialized, err := idx.IsInitialized()
	if err != nil {
		idx.Close()
		return nil, ioFault("read", path, err)
	}
	if !initialized {
		idx.Close()
		return nil, nil
	}
	return idx, nil
}

// readIndexStatus fills the index fields of st and checks every indexed
// entry against the log bytes at its recorded offset.
func (v *Vault) readIndexStatus(pv *security.PathValidator, idx *storage.Index, st *Status) error {
	var err error
	indexPath := v.path(v.paths.IndexFile)

	// A vault ID is only assigned by commands that may write.
	if id, err := idx.GetVaultID(); err == nil {
		st.VaultID = id
	}
	if st.Created, err = idx.GetCreated(); err != nil {
		return ioFault("read", indexPath, err)
	}
	if st.Indexed, err = idx.Count(); err != nil {
		return ioFault("read", indexPath, err)
	}
	indexed, err := idx.GetEntries()
	if err != nil {
		return ioFault("read", indexPath, err)
	}

	for _, ie := range indexed {
		if ie.Created.After(st.LastSaved) {
			st.LastSaved = ie.Created
		}
		entry, err := storage.ReadEntryAt(pv, v.paths.LogFile, ie.Offset, ie.Size)
		switch {
		case errors.Is(err, storage.ErrInvalidEntry), errors.Is(err, os.ErrNotExist):
			st.Mismatched = append(st.Mismatched, ie.Seq)
		case err != nil:
			return ioFault("read", v.path(v.paths.LogFile), err)
		case ie.Hash != entryHash(entry):
			st.Mismatched = append(st.Mismatched, ie.Seq)
		}
	}
	return nil
}

func entryHash(entry []byte) string {
	sum := sha256.Sum256(entry)
	return hex.EncodeToString(sum[:])
}
