package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"api-load-tester/internal/config"
	"api-load-tester/internal/llm"
	"api-load-tester/internal/metrics"
	"api-load-tester/internal/parser"
	"api-load-tester/internal/pipeline"
	"api-load-tester/internal/types"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Deps are the collaborators the front door delegates to. /api/match answers 503 when
// Embedder is nil.
type Deps struct {
	Coordinator *pipeline.Coordinator
	Embedder    llm.Client
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

// Server is the HTTP front door over the load test pipeline
type Server struct {
	config   config.ServerConfig
	defaults types.RunConfig
	deps     Deps
	parser   *parser.SwaggerParser
	router   chi.Router
}

// New creates the server and its routes. defaults fill run parameters a request omits.
func New(cfg config.ServerConfig, defaults types.RunConfig, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	s := &Server{
		config:   cfg,
		defaults: defaults,
		deps:     deps,
		parser:   parser.NewSwaggerParser(deps.Logger),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/sample", s.handleSample)
	r.Post("/upload-swagger", s.handleUploadSwagger)
	r.Handle("/metrics", s.deps.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/endpoints", s.handleEndpoints)
		r.Post("/run", s.handleRun)
		r.Post("/match", s.handleMatch)
	})
	return r
}

// requestLogger logs one line per request with zap
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.deps.Logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("Front door listening", zap.String("addr", s.config.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.deps.Logger.Info("Shutting down front door")
		return srv.Shutdown(shutdownCtx)
	}
}
