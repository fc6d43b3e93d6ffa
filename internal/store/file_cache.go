package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/soyeahso/oagate/internal/credential"
)

// lockRetryDelay is the polling interval while waiting for a file lock.
const lockRetryDelay = 25 * time.Millisecond

// FileCache keeps one JSON file per credential in a directory. Writers in
// different processes are serialised with an advisory lock per file.
type FileCache struct {
	dir string
}

// NewFileCache creates a file cache rooted at dir.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &FileCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string { return c.dir }

func (c *FileCache) path(kind, key string) string {
	return filepath.Join(c.dir, fileName(kind, key))
}

// fileName encodes kind and key with unpadded base64url. "." is outside
// that alphabet, so distinct pairs never share a file.
func fileName(kind, key string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(kind)) + "." + enc.EncodeToString([]byte(key)) + ".json"
}

// Load reads the record for (kind, key) or returns credential.ErrNotFound.
func (c *FileCache) Load(ctx context.Context, kind, key string) (*credential.Credential, error) {
	path := c.path(kind, key)
	lock := flock.New(path + ".lock")
	if _, err := lock.TryRLockContext(ctx, lockRetryDelay); err != nil {
		return nil, fmt.Errorf("locking %s: %w", filepath.Base(path), err)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, credential.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading credential file: %w", err)
	}

	var cred credential.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("decoding credential file: %w", err)
	}
	return &cred, nil
}

// Save writes the record atomically: a temp file is renamed over the old
// one while holding the exclusive lock.
func (c *FileCache) Save(ctx context.Context, kind, key string, cred *credential.Credential) error {
	if cred == nil || cred.Value == "" {
		return credential.ErrEmptyCredential
	}
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encoding credential: %w", err)
	}

	path := c.path(kind, key)
	lock := flock.New(path + ".lock")
	if _, err := lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("locking %s: %w", filepath.Base(path), err)
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(c.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing credential file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("setting credential file mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing credential file: %w", err)
	}
	return nil
}

// Delete removes the record if present.
func (c *FileCache) Delete(ctx context.Context, kind, key string) error {
	path := c.path(kind, key)
	lock := flock.New(path + ".lock")
	if _, err := lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("locking %s: %w", filepath.Base(path), err)
	}
	defer lock.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing credential file: %w", err)
	}
	return nil
}
