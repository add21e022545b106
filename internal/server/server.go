// Package server provides the HTTP API used by the browser extension and
// other clients of the profile importer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonathan/profile-importer/internal/config"
	"github.com/jonathan/profile-importer/internal/importer"
	"github.com/jonathan/profile-importer/internal/logging"
	"github.com/jonathan/profile-importer/internal/metrics"
	"github.com/jonathan/profile-importer/internal/notion"
	"github.com/jonathan/profile-importer/internal/server/middleware"
	"github.com/jonathan/profile-importer/internal/server/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies; /import may carry a full page of HTML.
const maxBodyBytes = 8 << 20

// SchemaSource returns the Notion database schema.
type SchemaSource interface {
	Schema(ctx context.Context) (*notion.Database, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer      *http.Server
	mux             *http.ServeMux
	handler         http.Handler
	importer        *importer.Importer
	schema          SchemaSource
	rateLimiter     *ratelimit.Limiter
	jwtService      *JWTService
	metrics         *metrics.Metrics
	gatherer        prometheus.Gatherer
	logger          *zap.Logger
	validator       *validator.Validate
	shutdownTimeout time.Duration
}

// Config holds server configuration
type Config struct {
	Port            int
	AllowedOrigins  []string
	RateLimit       int
	RateWindow      time.Duration
	ShutdownTimeout time.Duration
	// JWT enables bearer authentication when non-nil.
	JWT *config.JWTConfig
}

// ConfigFrom maps the server section of the application config. JWT auth is
// enabled only when a secret is configured.
func ConfigFrom(cfg *config.Config) (Config, error) {
	sc := Config{
		Port:            cfg.Server.Port,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		RateLimit:       cfg.Server.RateLimit,
		RateWindow:      cfg.Server.RateWindow,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	if cfg.Server.JWTSecret != "" {
		jwtCfg, err := cfg.JWT()
		if err != nil {
			return sc, err
		}
		sc.JWT = jwtCfg
	}
	return sc, nil
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics records HTTP metrics into m and serves g on /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// WithSchemaSource enables GET /schema.
func WithSchemaSource(src SchemaSource) Option {
	return func(s *Server) { s.schema = src }
}

// New creates a new server instance
func New(cfg Config, imp *importer.Importer, opts ...Option) (*Server, error) {
	if imp == nil {
		return nil, errors.New("server requires an importer")
	}

	s := &Server{
		importer:        imp,
		logger:          zap.NewNop(),
		gatherer:        prometheus.DefaultGatherer,
		validator:       validator.New(),
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 30 * time.Second
	}
	if cfg.JWT != nil {
		s.jwtService = NewJWTService(cfg.JWT)
	}
	s.rateLimiter = ratelimit.NewLimiter(ratelimit.NewConfig(cfg.RateLimit, cfg.RateWindow))

	// Setup router
	mux := http.NewServeMux()
	mux.HandleFunc("POST /extract", s.handleExtract)
	mux.HandleFunc("POST /save", s.handleSave)
	mux.HandleFunc("POST /import", s.handleImport)
	mux.HandleFunc("POST /import/stream", s.handleImportStream)
	mux.HandleFunc("GET /imports", s.handleListImports)
	mux.HandleFunc("GET /schema", s.handleSchema)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	s.mux = mux

	var handler http.Handler = mux
	handler = s.withRateLimit(handler)
	if s.jwtService != nil {
		handler = middleware.AuthMiddleware(s.jwtService.AsTokenValidator(), "/health", "/metrics")(handler)
	}
	handler = corsHandler(cfg.AllowedOrigins).Handler(handler)
	s.handler = s.withLogging(handler)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      180 * time.Second, // browser rendering plus an LLM call
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.rateLimiter.Stop()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Close stops background work without serving; used by tests.
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// corsHandler allows the extension origins to call the API.
func corsHandler(origins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:         600,
	})
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Flush keeps SSE streaming working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withLogging assigns a request ID, puts a request logger in the context and
// records the outcome.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		_, route := s.mux.Handler(r)
		if route == "" {
			route = "unmatched"
		}

		logger := s.logger.With(
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(logging.WithLogger(r.Context(), logger)))

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		logger.Info("request completed",
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("remote", r.RemoteAddr),
		)
		if s.metrics != nil {
			s.metrics.ObserveHTTP(r.Method, route, status, elapsed)
		}
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)
		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)

		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(r.Context(), w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractClientID identifies the caller: the token's client ID when
// authenticated, otherwise the remote IP.
func (s *Server) extractClientID(r *http.Request) string {
	if id, err := middleware.GetClientID(r); err == nil {
		return "client:" + id
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(ctx context.Context, w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		seconds := max(int(info.RetryAfter.Seconds()), 1)
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	logging.FromContext(ctx, s.logger).Warn("rate limit exceeded",
		zap.Int("limit", info.Limit),
		zap.Time("reset", info.ResetTime),
	)
	s.jsonResponse(ctx, w, http.StatusTooManyRequests, response)
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.FromContext(ctx, s.logger).Warn("error encoding JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(ctx context.Context, w http.ResponseWriter, status int, message string) {
	s.jsonResponse(ctx, w, status, map[string]string{"error": message})
}

// fail maps err to a status and writes it.
func (s *Server) fail(ctx context.Context, w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	logger := logging.FromContext(ctx, s.logger)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Info("request rejected", zap.Int("status", status), zap.Error(err))
	}
	s.errorResponse(ctx, w, status, err.Error())
}
