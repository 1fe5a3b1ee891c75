package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	chatapi "github.com/futig/design-agent/internal/api/chat"
	"github.com/futig/design-agent/internal/api/docs"
	"github.com/futig/design-agent/internal/api/middleware"
	"github.com/futig/design-agent/internal/pkg/response"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// SetupRouter creates and configures the HTTP router
func SetupRouter(chatHandler *chatapi.Handler, cfg RouterConfig, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.Recoverer)             // Recover from panics
	r.Use(chimiddleware.RequestID)             // Add request ID
	r.Use(middleware.Logger(logger))           // Log requests
	r.Use(middleware.CORS(cfg.AllowedOrigins)) // Handle CORS

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, map[string]string{"status": "healthy"})
	})

	// Swagger documentation endpoints
	docs.RegisterRoutes(r)

	// Register routes
	chatapi.RegisterRoutes(r, chatHandler, cfg.RequestTimeout)

	return r
}
