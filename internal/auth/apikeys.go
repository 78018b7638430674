package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"skillhub/internal/storage"
)

// ErrInvalidAPIKey is returned when a presented key matches no stored hash.
var ErrInvalidAPIKey = errors.New("invalid api key")

// APIKey is the public view of a stored key. The raw secret never appears
// here, only its prefix.
type APIKey struct {
	KeyID     string   `json:"key_id"`
	Name      string   `json:"name"`
	Prefix    string   `json:"prefix"`
	Scopes    []string `json:"scopes"`
	CreatedAt string   `json:"created_at"`
}

// CreatedAPIKey is returned exactly once at creation time and carries the
// full raw secret. It is never persisted or retrievable again.
type CreatedAPIKey struct {
	APIKey
	FullKey string `json:"full_key"`
}

// APIKeyService generates, validates and revokes API keys used for MCP
// authentication.
type APIKeyService struct {
	repo storage.APIKeyStore
}

// NewAPIKeyService creates an APIKeyService over the given store.
func NewAPIKeyService(repo storage.APIKeyStore) *APIKeyService {
	return &APIKeyService{repo: repo}
}

func hashKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

// CreateKey generates a new key. Only its SHA-256 hash is stored; the raw
// secret is returned to the caller once.
func (s *APIKeyService) CreateKey(ctx context.Context, name string, scopes []string) (*CreatedAPIKey, error) {
	rawBytes := make([]byte, 48)
	if _, err := rand.Read(rawBytes); err != nil {
		return nil, fmt.Errorf("failed to generate key material: %w", err)
	}
	rawKey := base64.RawURLEncoding.EncodeToString(rawBytes)

	idBytes := make([]byte, 8)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, fmt.Errorf("failed to generate key id: %w", err)
	}
	keyID := hex.EncodeToString(idBytes)

	if scopes == nil {
		scopes = []string{}
	}
	record := &storage.APIKeyRecord{
		KeyID:     keyID,
		KeyHash:   hashKey(rawKey),
		Name:      name,
		Prefix:    rawKey[:8],
		Scopes:    scopes,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.repo.StoreKey(ctx, record); err != nil {
		return nil, err
	}

	return &CreatedAPIKey{
		APIKey: APIKey{
			KeyID:     keyID,
			Name:      name,
			Prefix:    record.Prefix,
			Scopes:    scopes,
			CreatedAt: record.CreatedAt,
		},
		FullKey: rawKey,
	}, nil
}

// ValidateKey returns the key record matching the raw secret, or
// ErrInvalidAPIKey.
func (s *APIKeyService) ValidateKey(ctx context.Context, rawKey string) (*APIKey, error) {
	record, err := s.repo.GetKeyByHash(ctx, hashKey(rawKey))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidAPIKey
	}
	if err != nil {
		return nil, err
	}
	return &APIKey{
		KeyID:     record.KeyID,
		Name:      record.Name,
		Prefix:    record.Prefix,
		Scopes:    record.Scopes,
		CreatedAt: record.CreatedAt,
	}, nil
}

// ListKeys returns the public view of all stored keys.
func (s *APIKeyService) ListKeys(ctx context.Context) ([]APIKey, error) {
	records, err := s.repo.ListKeys(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]APIKey, 0, len(records))
	for _, rec := range records {
		keys = append(keys, APIKey{
			KeyID:     rec.KeyID,
			Name:      rec.Name,
			Prefix:    rec.Prefix,
			Scopes:    rec.Scopes,
			CreatedAt: rec.CreatedAt,
		})
	}
	return keys, nil
}

// RevokeKey removes a key by id. Returns false when it did not exist.
func (s *APIKeyService) RevokeKey(ctx context.Context, keyID string) (bool, error) {
	return s.repo.RevokeKey(ctx, keyID)
}
