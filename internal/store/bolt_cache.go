package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/soyeahso/oagate/internal/credential"
	bolt "go.etcd.io/bbolt"
)

// BoltCache keeps credentials in a bbolt file, one bucket per kind.
type BoltCache struct {
	db *bolt.DB
}

// OpenBoltCache opens (or creates) the bbolt file at path. bbolt holds an
// exclusive file lock, so only one process can have the cache open.
func OpenBoltCache(path string) (*BoltCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt cache: %w", err)
	}
	return &BoltCache{db: db}, nil
}

// Close releases the bbolt file.
func (c *BoltCache) Close() error {
	return c.db.Close()
}

// Load returns the record for (kind, key) or credential.ErrNotFound.
func (c *BoltCache) Load(_ context.Context, kind, key string) (*credential.Credential, error) {
	var data []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(kind))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			// v is only valid inside the transaction.
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading bolt cache: %w", err)
	}
	if data == nil {
		return nil, credential.ErrNotFound
	}

	var cred credential.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("decoding cached credential: %w", err)
	}
	return &cred, nil
}

// Save stores the record for (kind, key).
func (c *BoltCache) Save(_ context.Context, kind, key string, cred *credential.Credential) error {
	if cred == nil || cred.Value == "" {
		return credential.ErrEmptyCredential
	}
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encoding credential: %w", err)
	}
	err = c.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(kind))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("writing bolt cache: %w", err)
	}
	return nil
}

// Delete removes the record if present.
func (c *BoltCache) Delete(_ context.Context, kind, key string) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(kind))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("deleting from bolt cache: %w", err)
	}
	return nil
}
