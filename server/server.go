// Package server exposes editor sessions and stored templates over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/piprate/json-gold/ld"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/credkit/vcschema/editor"
	"github.com/credkit/vcschema/normalize"
	"github.com/credkit/vcschema/store"
)

// Options configures a Server.
type Options struct {
	// Store receives submitted templates. Without a store the template
	// routes answer 503 and submit only returns the schema.
	Store *store.Store
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Registry collects the server and normalization metrics. A new registry
	// is created when nil.
	Registry *prometheus.Registry
	// Checker is shared by every session. When nil, a normalize.Validator
	// over Loader is shared instead, or an offline one per session when
	// Loader is nil too.
	Checker normalize.Checker
	// Loader resolves JSON-LD contexts for the shared validator.
	Loader ld.DocumentLoader
	// WaitTimeout bounds GET /sessions/{id}?wait=true.
	WaitTimeout time.Duration
	// SessionOptions are appended to the options of every new session.
	SessionOptions []editor.Option
}

// Server is the HTTP editor API.
type Server struct {
	router   chi.Router
	store    *store.Store
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *normalize.Metrics
	requests *prometheus.CounterVec
	checker  normalize.Checker
	wait     time.Duration
	opts     []editor.Option

	mu       sync.Mutex
	sessions map[string]*editor.Session
}

// New builds the server and its routes.
func New(opts Options) *Server {
	s := &Server{
		store:    opts.Store,
		logger:   opts.Logger,
		registry: opts.Registry,
		checker:  opts.Checker,
		wait:     opts.WaitTimeout,
		opts:     opts.SessionOptions,
		sessions: map[string]*editor.Session{},
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	if s.wait <= 0 {
		s.wait = 10 * time.Second
	}
	s.metrics = normalize.NewMetrics(s.registry)
	if s.checker == nil && opts.Loader != nil {
		v, err := normalize.NewValidator(
			normalize.WithLoader(opts.Loader),
			normalize.WithLogger(s.logger),
			normalize.WithMetrics(s.metrics),
		)
		if err == nil {
			s.checker = v
		}
	}
	s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vcschema",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})
	s.registry.MustRegister(s.requests)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Route("/{session}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Post("/fields", s.addField)
			r.Patch("/fields/*", s.updateField)
			r.Delete("/fields/*", s.removeField)
			r.Put("/meta", s.updateMeta)
			r.Post("/contexts", s.addContext)
			r.Post("/contexts/dev", s.addDevContext)
			r.Delete("/contexts/{index}", s.removeContext)
			r.Put("/json", s.setJSON)
			r.Post("/view/toggle", s.toggleView)
			r.Post("/submit", s.submit)
		})
	})
	r.Route("/templates", func(r chi.Router) {
		r.Get("/", s.listTemplates)
		r.Get("/{template}", s.getTemplate)
		r.Delete("/{template}", s.deleteTemplate)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close ends every open session.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.Close()
		delete(s.sessions, id)
	}
}

// requestLogger logs each request and counts it by route pattern.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			return
		}
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
