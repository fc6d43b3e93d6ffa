package store

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/soyeahso/oagate/internal/credential"
)

// Credential cache backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// Backends lists the accepted cache.backend values.
var Backends = []string{BackendSQLite, BackendFile, BackendBolt, BackendMemory}

// CacheOptions selects and locates a credential cache backend.
type CacheOptions struct {
	Backend string
	// Dir holds file and bolt caches.
	Dir string
	// DB is required for the sqlite backend.
	DB *DB
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenCache builds the configured credential cache. The closer must be
// called on shutdown and is never nil.
func OpenCache(opts CacheOptions) (credential.Cache, io.Closer, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		if opts.DB == nil {
			return nil, nil, fmt.Errorf("sqlite cache backend needs an open database")
		}
		return NewCredentialCache(opts.DB), nopCloser{}, nil
	case BackendFile:
		fc, err := NewFileCache(opts.Dir)
		if err != nil {
			return nil, nil, err
		}
		return fc, nopCloser{}, nil
	case BackendBolt:
		bc, err := OpenBoltCache(filepath.Join(opts.Dir, "credentials.db"))
		if err != nil {
			return nil, nil, err
		}
		return bc, bc, nil
	case BackendMemory:
		return credential.NewMemoryCache(), nopCloser{}, nil
	}
	return nil, nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
}
