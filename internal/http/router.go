package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"skillhub/internal/auth"
	"skillhub/internal/handlers"
	"skillhub/internal/mcp"
)

// Deps holds dependencies for the HTTP router. Everything here is
// constructed once at startup and shared read-only across handlers.
type Deps struct {
	Skills  handlers.SkillService
	Auth    *auth.Service
	APIKeys *auth.APIKeyService
	MCP     *mcp.ToolRouter
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	// Add chi middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(CORS)
	r.Use(LoggerMiddleware)

	skillsHandler := handlers.NewSkillsHandler(deps.Skills)
	authHandler := handlers.NewAuthHandler(deps.Auth)
	keysHandler := handlers.NewAPIKeysHandler(deps.APIKeys)
	mcpHandler := handlers.NewMCPHandler(deps.MCP)
	healthHandler := handlers.NewHealthHandler(deps.Skills)

	requireAdmin := RequireAdmin(deps.Auth)
	requireAPIKey := RequireAPIKey(deps.APIKeys)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/register", authHandler.Register)
			r.Get("/users", authHandler.ListUsers)
			r.Get("/users/{username}/permissions", authHandler.GetPermissions)
			r.Put("/users/{username}/permissions", authHandler.UpdatePermissions)
			r.Delete("/users/{username}", authHandler.DeleteUser)
		})
	})

	r.Route("/skills", func(r chi.Router) {
		r.Get("/search", skillsHandler.Search)
		r.Get("/tree", skillsHandler.Tree)
		r.Get("/resolve", skillsHandler.Resolve)
		r.Get("/", skillsHandler.List)
		r.Get("/{skillID}", skillsHandler.Get)
		r.Get("/{skillID}/children", skillsHandler.Children)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/", skillsHandler.Create)
			r.Put("/{skillID}", skillsHandler.Update)
			r.Delete("/{skillID}", skillsHandler.Delete)
		})
	})

	r.Route("/api-keys", func(r chi.Router) {
		r.Use(requireAdmin)
		r.Post("/", keysHandler.Create)
		r.Get("/", keysHandler.List)
		r.Delete("/{keyID}", keysHandler.Revoke)
	})

	r.Route("/mcp", func(r chi.Router) {
		r.Use(requireAPIKey)
		r.Get("/tools", mcpHandler.ListTools)
		r.Post("/tools/call", mcpHandler.CallTool)
		r.Post("/", mcpHandler.JSONRPC)
	})

	r.Get("/health", healthHandler.ServeHTTP)

	return r
}
