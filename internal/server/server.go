package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lazypower/rapport/internal/apperr"
	"github.com/lazypower/rapport/internal/auth"
	"github.com/lazypower/rapport/internal/engine"
)

// Options configures a Server.
type Options struct {
	Version        string
	AllowedOrigins []string
	Log            zerolog.Logger
}

// Server is the rapport HTTP API server.
type Server struct {
	engine   *engine.Engine
	tokens   *auth.Tokens
	router   chi.Router
	log      zerolog.Logger
	version  string
	origins  []string
	validate *requestValidator
	started  time.Time
}

// New creates a new Server over the engine. Every /api route except health
// requires a bearer token accepted by tokens.
func New(eng *engine.Engine, tokens *auth.Tokens, opts Options) *Server {
	s := &Server{
		engine:   eng,
		tokens:   tokens,
		log:      opts.Log,
		version:  opts.Version,
		origins:  opts.AllowedOrigins,
		validate: newRequestValidator(),
		started:  time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.tokens.Middleware(s.writeError))

			r.Route("/profiles", func(r chi.Router) {
				r.Post("/", s.handleCreateProfile)
				r.Get("/", s.handleListProfiles)
				r.Get("/{profileID}", s.handleGetProfile)
				r.Put("/{profileID}", s.handleUpdateProfile)
				r.Delete("/{profileID}", s.handleDeleteProfile)
				r.Get("/{profileID}/stats", s.handleProfileStats)
			})

			r.Route("/interactions", func(r chi.Router) {
				r.Post("/", s.handleSubmitInteraction)
				r.Get("/", s.handleListInteractions)
				r.Get("/pulse", s.handlePulse)
			})

			r.Post("/insights/analyze", s.handleAnalyze)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Error: &errorBody{Kind: apperr.KindNotFound, Message: "route not found"}})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.engine.DB.Health(r.Context()); err != nil {
		s.log.Warn().Err(err).Msg("health check: database unreachable")
		dbOK = false
	}

	status := "ok"
	code := http.StatusOK
	if !dbOK {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, envelope{Success: dbOK, Data: map[string]any{
		"status":  status,
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"driver":  s.engine.DB.Driver,
	}})
}
