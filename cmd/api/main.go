package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"time"

	"github.com/avast/retry-go/v4"

	"skillhub/internal/auth"
	"skillhub/internal/config"
	"skillhub/internal/embedding"
	"skillhub/internal/http"
	"skillhub/internal/mcp"
	"skillhub/internal/skill"
	"skillhub/internal/storage"
	"skillhub/internal/vectorstore"
)

var errStoreNotReady = errors.New("vector store not ready")

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize credential database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	userRepo := storage.NewUserRepo(db)
	keyRepo := storage.NewAPIKeyRepo(db)

	ctx := context.Background()

	// Initialize Qdrant skill store
	store, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantCollection)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	// Gate readiness on the vector store: do not accept traffic until it
	// is reachable. Tolerates slow-starting infrastructure, fails hard
	// once the retry budget is exhausted.
	if err := waitForStore(ctx, store); err != nil {
		log.Fatalf("Qdrant not reachable: %v", err)
	}
	slog.Info("Qdrant reachable", "url", cfg.QdrantURL)

	// Ensure collection exists with correct vector size
	if err := store.EnsureCollection(ctx, cfg.EmbeddingVectorSize); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.EmbeddingVectorSize)

	// Validate embedding provider vector size (fail-fast)
	embedder := embedding.NewProvider(embedding.Options{
		Model:      cfg.EmbeddingModel,
		BaseURL:    cfg.EmbeddingBaseURL,
		APIKey:     cfg.EmbeddingAPIKey,
		VectorSize: cfg.EmbeddingVectorSize,
	})
	testVector, err := embedder.Embed(ctx, "test")
	if err != nil {
		log.Fatalf("Failed to validate embedding provider: %v", err)
	}
	if len(testVector) != cfg.EmbeddingVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.EmbeddingVectorSize, len(testVector))
	}
	slog.Info("Embedding provider validated", "model", cfg.EmbeddingModel, "vector_size", cfg.EmbeddingVectorSize)

	// Core services
	orchestrator := skill.NewOrchestrator(embedder, store)
	authService := auth.NewService(userRepo, store, cfg.SecretKey, cfg.TokenExpiry)
	keyService := auth.NewAPIKeyService(keyRepo)
	mcpRouter := mcp.NewToolRouter(orchestrator)

	// Default admin
	if err := authService.EnsureDefaultAdmin(ctx, cfg.DefaultAdminUsername, cfg.DefaultAdminPassword); err != nil {
		log.Fatalf("Failed to ensure default admin: %v", err)
	}
	slog.Info("Default admin ensured", "username", cfg.DefaultAdminUsername)

	// Create router with dependencies
	deps := &http.Deps{
		Skills:  orchestrator,
		Auth:    authService,
		APIKeys: keyService,
		MCP:     mcpRouter,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}

// waitForStore blocks until the vector store answers a health check, with
// exponential backoff between attempts.
func waitForStore(ctx context.Context, store *vectorstore.QdrantStore) error {
	return retry.Do(
		func() error {
			if !store.HealthCheck(ctx) {
				return errStoreNotReady
			}
			return nil
		},
		retry.Attempts(30),
		retry.Delay(2*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.MaxDelay(30*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Qdrant not ready, retrying", "attempt", n+1, "max_attempts", 30)
		}),
	)
}
