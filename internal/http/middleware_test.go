package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"skillhub/internal/auth"
	"skillhub/internal/contextutil"
	"skillhub/internal/skill"
	"skillhub/internal/storage"
)

// stubSkillStore satisfies skill.Store; the auth middleware never touches it.
type stubSkillStore struct{}

func (stubSkillStore) SearchByVector(ctx context.Context, vector []float32, k int) ([]skill.Discovery, error) {
	return nil, nil
}
func (stubSkillStore) GetByID(ctx context.Context, skillID string, includeInstruction bool) (*skill.Skill, error) {
	return nil, skill.ErrNotFound
}
func (stubSkillStore) Upsert(ctx context.Context, s *skill.Skill, vector []float32) error { return nil }
func (stubSkillStore) Delete(ctx context.Context, skillID string) (bool, error)           { return false, nil }
func (stubSkillStore) ListAll(ctx context.Context, limit int) ([]skill.Skill, error)      { return nil, nil }
func (stubSkillStore) HealthCheck(ctx context.Context) bool                               { return true }

func newTestAuth(t *testing.T) (*auth.Service, *auth.APIKeyService) {
	t.Helper()

	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	authService := auth.NewService(storage.NewUserRepo(db), stubSkillStore{}, "test-secret", time.Hour)
	keyService := auth.NewAPIKeyService(storage.NewAPIKeyRepo(db))
	return authService, keyService
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestLoggerMiddleware(t *testing.T) {
	var capturedCtx context.Context
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedCtx = r.Context()
		w.WriteHeader(http.StatusOK)
	})

	middleware := LoggerMiddleware(handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	middleware.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("LoggerMiddleware() status = %v, want %v", w.Code, http.StatusOK)
	}
	if capturedCtx == nil {
		t.Fatal("LoggerMiddleware() should capture context")
	}
	// The request logger carries request fields, so it is never the default.
	if contextutil.LoggerFromContext(capturedCtx) == contextutil.LoggerFromContext(context.Background()) {
		t.Error("LoggerMiddleware() should add a request-scoped logger to context")
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/skills/search", nil)
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %v, want %v", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestRequireAdmin(t *testing.T) {
	authService, _ := newTestAuth(t)
	ctx := context.Background()

	if _, err := authService.Register(ctx, "root", "rootpw", "admin", nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := authService.Register(ctx, "viewer", "viewerpw", "viewer", nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	adminToken, err := authService.Authenticate(ctx, "root", "rootpw")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	viewerToken, err := authService.Authenticate(ctx, "viewer", "viewerpw")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	handler := RequireAdmin(authService)(okHandler())

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer garbage", http.StatusUnauthorized},
		{"viewer token", "Bearer " + viewerToken, http.StatusForbidden},
		{"admin token", "Bearer " + adminToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/skills/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %v, want %v", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequireAdminStoresPayload(t *testing.T) {
	authService, _ := newTestAuth(t)
	ctx := context.Background()

	if _, err := authService.Register(ctx, "root", "rootpw", "admin", nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	token, err := authService.Authenticate(ctx, "root", "rootpw")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	var payload *auth.TokenPayload
	handler := RequireAdmin(authService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ = TokenPayloadFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/auth/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if payload == nil || payload.Sub != "root" || payload.Role != "admin" {
		t.Fatalf("unexpected payload in context: %+v", payload)
	}
}

func TestRequireAPIKey(t *testing.T) {
	_, keyService := newTestAuth(t)
	ctx := context.Background()

	created, err := keyService.CreateKey(ctx, "agent", nil)
	if err != nil {
		t.Fatalf("CreateKey failed: %v", err)
	}

	var key *auth.APIKey
	handler := RequireAPIKey(keyService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, _ = APIKeyFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing key", "", http.StatusUnauthorized},
		{"invalid key", "not-a-key", http.StatusUnauthorized},
		{"valid key", created.FullKey, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/mcp/tools", nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %v, want %v", w.Code, tt.wantStatus)
			}
		})
	}

	if key == nil || key.KeyID != created.KeyID {
		t.Fatalf("unexpected key in context: %+v", key)
	}
}
