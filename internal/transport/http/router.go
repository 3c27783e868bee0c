package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/shanekizito/Thinkly/internal/auth"
)

// Registrar mounts a group of routes.
type Registrar interface {
	Register(r *mux.Router)
}

// RouterConfig lists the handlers the server exposes.
type RouterConfig struct {
	Auth           *auth.Service
	AuthHandler    *AuthHandler
	API            *APIHandler
	WS             *WSHandler
	Billing        Registrar
	AllowedOrigins []string
}

// NewRouter wires public, authenticated and websocket routes behind CORS.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	cfg.AuthHandler.Register(r)
	if cfg.Billing != nil {
		cfg.Billing.Register(r)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(cfg.Auth.Middleware)
	cfg.API.Register(api)

	r.Handle("/ws/events", cfg.Auth.Middleware(http.HandlerFunc(cfg.WS.ServeWS))).Methods(http.MethodGet)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Stripe-Signature"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}
