// Route registration and go-chi router setup.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/timelessnp/sitechat/internal/api/handlers"
	"github.com/timelessnp/sitechat/internal/api/middleware"
	"github.com/timelessnp/sitechat/internal/domain/chat"
	"github.com/timelessnp/sitechat/internal/domain/tool"
	"github.com/timelessnp/sitechat/internal/infra/config"
)

// Deps carries everything the router needs, constructed once at startup.
type Deps struct {
	Chat   *chat.Service
	Tools  *tool.Registry
	Config *config.Config
	Logger *zap.Logger
}

// NewRouter creates and configures the chi router with all routes.
func NewRouter(deps Deps) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(deps.Config.Server.CORSOrigins))

	// Health check, used by load balancers and probes.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	chatHandler := handlers.NewChatHandler(deps.Chat, deps.Tools, logger)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(deps.Config.Server.RateLimitWindow.Duration, logger))
		r.Post("/chat", chatHandler.Handle)
	})

	return r
}
