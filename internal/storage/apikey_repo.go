package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_apikey_store.go -package=mocks skillhub/internal/storage APIKeyStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// APIKeyRecord represents a stored API key. Only the SHA-256 hash of the
// raw secret is persisted; the prefix exists for display purposes only.
type APIKeyRecord struct {
	KeyID     string
	KeyHash   string
	Name      string
	Prefix    string
	Scopes    []string
	CreatedAt string
}

// APIKeyStore defines the interface for API key persistence.
type APIKeyStore interface {
	// StoreKey inserts a new key record.
	StoreKey(ctx context.Context, key *APIKeyRecord) error
	// GetKeyByHash fetches a key by its hash. Returns ErrNotFound if absent.
	GetKeyByHash(ctx context.Context, keyHash string) (*APIKeyRecord, error)
	// ListKeys returns all key records.
	ListKeys(ctx context.Context) ([]APIKeyRecord, error)
	// RevokeKey removes a key by id. Returns false when it did not exist.
	RevokeKey(ctx context.Context, keyID string) (bool, error)
}

// APIKeyRepo provides methods for API key operations backed by SQLite.
// It implements the APIKeyStore interface.
type APIKeyRepo struct {
	db *sql.DB
}

// NewAPIKeyRepo creates a new APIKeyRepo.
func NewAPIKeyRepo(db *sql.DB) *APIKeyRepo {
	return &APIKeyRepo{db: db}
}

// StoreKey inserts a new key record.
func (r *APIKeyRepo) StoreKey(ctx context.Context, key *APIKeyRecord) error {
	scopesJSON, err := json.Marshal(key.Scopes)
	if err != nil {
		return fmt.Errorf("failed to encode scopes: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO api_keys (key_id, key_hash, name, prefix, scopes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		key.KeyID, key.KeyHash, key.Name, key.Prefix, string(scopesJSON), key.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store api key: %w", err)
	}
	return nil
}

// GetKeyByHash fetches a key by its hash. Returns ErrNotFound if absent.
func (r *APIKeyRepo) GetKeyByHash(ctx context.Context, keyHash string) (*APIKeyRecord, error) {
	var key APIKeyRecord
	var scopesJSON string

	err := r.db.QueryRowContext(ctx,
		"SELECT key_id, key_hash, name, prefix, scopes, created_at FROM api_keys WHERE key_hash = ?",
		keyHash,
	).Scan(&key.KeyID, &key.KeyHash, &key.Name, &key.Prefix, &scopesJSON, &key.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query api key: %w", err)
	}

	if err := json.Unmarshal([]byte(scopesJSON), &key.Scopes); err != nil {
		return nil, fmt.Errorf("failed to parse scopes: %w", err)
	}
	if key.Scopes == nil {
		key.Scopes = []string{}
	}
	return &key, nil
}

// ListKeys returns all key records ordered by creation time.
func (r *APIKeyRepo) ListKeys(ctx context.Context) ([]APIKeyRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT key_id, key_hash, name, prefix, scopes, created_at FROM api_keys ORDER BY created_at",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query api keys: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var keys []APIKeyRecord
	for rows.Next() {
		var key APIKeyRecord
		var scopesJSON string
		if err := rows.Scan(&key.KeyID, &key.KeyHash, &key.Name, &key.Prefix, &scopesJSON, &key.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		if err := json.Unmarshal([]byte(scopesJSON), &key.Scopes); err != nil {
			return nil, fmt.Errorf("failed to parse scopes: %w", err)
		}
		if key.Scopes == nil {
			key.Scopes = []string{}
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate api keys: %w", err)
	}
	return keys, nil
}

// RevokeKey removes a key by id. Returns false when it did not exist.
func (r *APIKeyRepo) RevokeKey(ctx context.Context, keyID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM api_keys WHERE key_id = ?", keyID)
	if err != nil {
		return false, fmt.Errorf("failed to revoke api key: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}
