package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/respoke-chatbot/internal/api/middleware"
	"github.com/eldtechnologies/respoke-chatbot/internal/chatbot"
	"github.com/eldtechnologies/respoke-chatbot/internal/config"
	"github.com/eldtechnologies/respoke-chatbot/internal/handlers"
	"github.com/eldtechnologies/respoke-chatbot/internal/store"
)

// Deps are the services the HTTP layer needs. Tokens, Socket and Redis may
// be nil when not configured.
type Deps struct {
	Bot    *chatbot.Bot
	Tokens handlers.TokenIssuer
	Socket handlers.SocketStatus
	Redis  *store.RedisStore
}

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, cfg *config.Config, deps Deps) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	r.Use(middleware.SecurityHeaders)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	h := handlers.NewHandler(deps.Bot, deps.Tokens, deps.Socket, deps.Redis, logger)

	// Webhook from Respoke. No body limit, content-type checks or rate
	// limits: every delivery must be acknowledged. The handler caps its
	// own reader.
	r.Post("/", h.Webhook)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.MaxBodySize(64 * 1024)) // 64KB max body
		r.Use(middleware.ValidateRequest)

		// Rate limiting needs Redis
		if deps.Redis != nil {
			limiter := middleware.NewRateLimiter(deps.Redis.Client(), logger, middleware.RateLimiterConfig{
				Whitelist: cfg.RateLimitWhitelist,
			})
			r.Use(limiter.Middleware)
		}

		// CORS - the browser client fetches its token from another origin
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Endpoint-Id"},
			ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
			AllowCredentials: false,
			MaxAge:           300,
		}))

		r.Get("/api", h.Root)
		r.Post("/token", h.Token)
		r.Options("/token", func(w http.ResponseWriter, r *http.Request) {})
		r.Get("/groups", h.ListGroups)
		r.Get("/groups/{id}/history", h.GroupHistory)
	})

	return r
}
