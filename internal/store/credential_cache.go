package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/oagate/internal/credential"
)

// CredentialCache implements credential.Cache on the credentials table.
// Writes are single statements, so concurrent processes serialise on
// SQLite's write lock and the last writer wins.
type CredentialCache struct {
	db *DB
}

// NewCredentialCache creates a credential cache using the given database.
func NewCredentialCache(db *DB) *CredentialCache {
	return &CredentialCache{db: db}
}

// Load returns the record for (kind, key) or credential.ErrNotFound.
func (c *CredentialCache) Load(ctx context.Context, kind, key string) (*credential.Credential, error) {
	var (
		cred    credential.Credential
		expires int64
	)
	err := c.db.sql.QueryRowContext(ctx,
		`SELECT value, expires_at, refresh_token, subject, scope
		 FROM credentials WHERE kind = ? AND cache_key = ?`, kind, key,
	).Scan(&cred.Value, &expires, &cred.RefreshToken, &cred.Subject, &cred.Scope)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, credential.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading credential: %w", err)
	}
	cred.ExpiresAt = time.Unix(expires, 0)
	return &cred, nil
}

// Save upserts the record for (kind, key).
func (c *CredentialCache) Save(ctx context.Context, kind, key string, cred *credential.Credential) error {
	if cred == nil || cred.Value == "" {
		return credential.ErrEmptyCredential
	}
	_, err := c.db.sql.ExecContext(ctx,
		`INSERT INTO credentials (kind, cache_key, value, expires_at, refresh_token, subject, scope, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (kind, cache_key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			refresh_token = excluded.refresh_token,
			subject = excluded.subject,
			scope = excluded.scope,
			updated_at = excluded.updated_at`,
		kind, key, cred.Value, cred.ExpiresAt.Unix(), cred.RefreshToken, cred.Subject, cred.Scope,
		time.Now().UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	return nil
}

// Delete removes the record for (kind, key).
func (c *CredentialCache) Delete(ctx context.Context, kind, key string) error {
	if _, err := c.db.sql.ExecContext(ctx,
		"DELETE FROM credentials WHERE kind = ? AND cache_key = ?", kind, key,
	); err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	return nil
}

// Purge removes records that expired before cutoff and returns how many
// were deleted.
func (c *CredentialCache) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := c.db.sql.ExecContext(ctx, "DELETE FROM credentials WHERE expires_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("purging credentials: %w", err)
	}
	return res.RowsAffected()
}
