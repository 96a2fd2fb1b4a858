package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket = []byte("config") // version, creation time, vault ID
	IndexBucket  = []byte("index")  // one IndexEntry per log entry, keyed by sequence
)

// Config keys
var (
	ConfigVersion = []byte("version")
	ConfigCreated = []byte("created")
	ConfigVaultID = []byte("vault_id")
)

const openTimeout = time.Second

// IndexEntry describes one log entry without revealing its contents.
type IndexEntry struct {
	Seq     uint64    `json:"seq"`
	ID      string    `json:"id"`
	Offset  int64     `json:"offset"`
	Size    int64     `json:"size"` // bytes including the separator
	Hash    string    `json:"hash"` // hex SHA-256 of the entry without separator
	Created time.Time `json:"created"`
}

// Index provides BBolt-based bookkeeping for a vault
type Index struct {
	db *bolt.DB
}

// OpenIndex opens or creates the index database at path
func OpenIndex(path string) (*Index, error) {
	db, err := bolt.Open(path, FilePermSecure, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	return &Index{db: db}, nil
}

// OpenIndexReadOnly opens an existing index without creating or modifying it.
func OpenIndexReadOnly(path string) (*Index, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	db, err := bolt.Open(path, 0, &bolt.Options{Timeout: openTimeout, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	return &Index{db: db}, nil
}

// Close closes the database
func (x *Index) Close() error {
	return x.db.Close()
}

// Initialize creates the bucket structure. It is idempotent.
func (x *Index) Initialize() error {
	return x.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, IndexBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if config.Get(ConfigVersion) != nil {
			return nil
		}
		if err := config.Put(ConfigVersion, []byte("1")); err != nil {
			return err
		}
		created, _ := time.Now().MarshalBinary()
		return config.Put(ConfigCreated, created)
	})
}

// IsInitialized checks if the database has been initialized
func (x *Index) IsInitialized() (bool, error) {
	var initialized bool
	err := x.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// GetCreated retrieves the index creation time
func (x *Index) GetCreated() (time.Time, error) {
	var created time.Time
	err := x.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(ConfigCreated)
		if data == nil {
			return fmt.Errorf("created time not found")
		}
		return created.UnmarshalBinary(data)
	})
	return created, err
}

// GetVaultID retrieves the vault ID from config bucket
func (x *Index) GetVaultID() (string, error) {
	var vaultID string
	err := x.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(ConfigVaultID)
		if data == nil {
			return fmt.Errorf("vault_id not found")
		}
		vaultID = string(data)
		return nil
	})
	return vaultID, err
}

// GetOrCreateVaultID retrieves existing vault ID or generates a new one
func (x *Index) GetOrCreateVaultID() (string, error) {
	vaultID, err := x.GetVaultID()
	if err == nil {
		return vaultID, nil
	}

	vaultID = uuid.NewString()
	err = x.db.Update(func(tx *bolt.Tx) error {
		config, err := tx.CreateBucketIfNotExists(ConfigBucket)
		if err != nil {
			return err
		}
		return config.Put(ConfigVaultID, []byte(vaultID))
	})
	if err != nil {
		return "", err
	}

	return vaultID, nil
}

// AppendEntry stores entry under the next sequence number and returns the
// stored entry with Seq and, if empty, ID filled in.
func (x *Index) AppendEntry(entry IndexEntry) (IndexEntry, error) {
	err := x.db.Update(func(tx *bolt.Tx) error {
		index, err := tx.CreateBucketIfNotExists(IndexBucket)
		if err != nil {
			return err
		}
		seq, err := index.NextSequence()
		if err != nil {
			return err
		}
		entry.Seq = seq
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return index.Put(seqKey(seq), data)
	})
	if err != nil {
		return IndexEntry{}, fmt.Errorf("failed to update index: %w", err)
	}
	return entry, nil
}

// GetEntries returns all index entries in sequence order
func (x *Index) GetEntries() ([]IndexEntry, error) {
	var entries []IndexEntry
	err := x.db.View(func(tx *bolt.Tx) error {
		index := tx.Bucket(IndexBucket)
		if index == nil {
			return nil
		}
		return index.ForEach(func(k, v []byte) error {
			var entry IndexEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
	})
	return entries, err
}

// Count returns the number of index entries
func (x *Index) Count() (int, error) {
	var n int
	err := x.db.View(func(tx *bolt.Tx) error {
		index := tx.Bucket(IndexBucket)
		if index == nil {
			return nil
		}
		n = index.Stats().KeyN
		return nil
	})
	return n, err
}

// seqKey encodes seq big-endian so ForEach iterates in append order.
func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
