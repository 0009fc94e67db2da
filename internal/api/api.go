package api

import (
	"net/http"
	"strings"
	"time"

	"chat-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterConfig struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter builds the full HTTP surface: CORS and the standard middleware
// stack around /health and the /api routes.
func NewRouter(cfg RouterConfig, chats *ChatService) chi.Router {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		// Preflights fall through to the route's OPTIONS handler, which
		// answers 204.
		OptionsPassthrough: true,
		MaxAge:             300,
	}))
	if len(origins) == 1 && origins[0] == "*" {
		r.Use(publicCorsHeaders)
	}
	r.Use(middleware.Timeout(timeout))

	r.Get("/health", RestHandler(func(r *http.Request) (any, error) {
		return api.HealthResponse{Status: "ok"}, nil
	}))

	r.Route("/api", func(r chi.Router) {
		chats.AddRoutes(r)
	})

	// Methods chi does not know are rejected by the root mux before any
	// subrouter sees them.
	r.MethodNotAllowed(chats.MethodNotAllowed)

	return r
}

var corsMethods = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ",")

// publicCorsHeaders fills in the CORS headers on responses the cors handler
// leaves alone, such as requests without an Origin header. Headers it already
// set are kept.
func publicCorsHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if h.Get("Access-Control-Allow-Origin") == "" {
			h.Set("Access-Control-Allow-Origin", "*")
		}
		if h.Get("Access-Control-Allow-Methods") == "" {
			h.Set("Access-Control-Allow-Methods", corsMethods)
		}
		if h.Get("Access-Control-Allow-Headers") == "" {
			h.Set("Access-Control-Allow-Headers", "Content-Type")
		}
		next.ServeHTTP(w, r)
	})
}
