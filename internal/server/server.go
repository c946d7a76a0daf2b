package server

import (
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"talespin/internal/app"
	"talespin/internal/ratelimit"
	"talespin/internal/util"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
	// AuthLimiter is optional; nil disables rate limiting.
	AuthLimiter *ratelimit.FixedWindowLimiter
}

// Server exposes the HTTP endpoints.
type Server struct {
	app     *app.App
	limiter *ratelimit.FixedWindowLimiter
	router  *chi.Mux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:     cfg.App,
		limiter: cfg.AuthLimiter,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(chimiddleware.RealIP)
	r.Use(util.WithRequestID)
	r.Use(util.WithRequestLog)
	r.Use(chimiddleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("AI story backend is running"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Use(s.rateLimited)
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/refresh-token", s.handleRefresh)
		r.Post("/revoke-refresh-tokens", s.authenticated(s.handleRevoke))
	})

	r.Route("/stories", func(r chi.Router) {
		r.Get("/", s.handleListStories)
		r.Get("/user/{userId}", s.handleListUserStories)
		r.Get("/{id}", s.handleGetStory)
		r.Post("/", s.authenticated(s.handleCreateStory))
		r.Post("/generate-story", s.authenticated(s.handleGenerateStory))
		r.Post("/generate-audio/{storyId}", s.authenticated(s.handleGenerateAudio))
		r.Delete("/{id}", s.authenticated(s.handleDeleteStory))
	})

	r.Route("/illustrations", func(r chi.Router) {
		r.Post("/generate", s.authenticated(s.handleGenerateIllustration))
		r.Post("/cover/{storyId}", s.authenticated(s.handleGenerateCover))
		r.Get("/story/{storyId}", s.handleListStoryIllustrations)
		r.Get("/{id}", s.handleGetIllustration)
	})
}

// authHandler receives the verified caller id alongside the request.
type authHandler func(http.ResponseWriter, *http.Request, string)

// authenticated guards a route with a stateless access-token check and hands
// the verified user id to the handler.
func (s *Server) authenticated(next authHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		userID, err := s.app.VerifyAccess(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r, userID)
	}
}

// rateLimited applies the optional per-IP fixed-window limit.
func (s *Server) rateLimited(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
