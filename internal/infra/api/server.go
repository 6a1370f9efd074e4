// Package api exposes the advisor over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"

	"raaee/internal/application"
	"raaee/internal/domain"
	"raaee/internal/infra/metrics"
)

// Advisor is the part of application.Advisor the server drives.
type Advisor interface {
	Answer(ctx context.Context, clip domain.Clip) (*application.Result, error)
	AnswerText(ctx context.Context, text string) (*application.Result, error)
	KnowledgeBase() *domain.KnowledgeBase
}

type Config struct {
	Addr           string
	MaxUploadBytes int64
	RateLimit      int
	RateWindow     time.Duration
	AuthToken      string
	CORSOrigins    []string
	// WriteTimeout must cover the slowest pipeline run.
	WriteTimeout time.Duration
}

type Server struct {
	addr         string
	server       *http.Server
	handler      http.Handler
	advisor      Advisor
	metrics      *metrics.Metrics
	logger       *slog.Logger
	mu           sync.Mutex
	running      bool
	mux          *http.ServeMux
	rateLimiter  *RateLimiter
	authToken    string
	maxUpload    int64
	writeTimeout time.Duration
}

func NewServer(cfg Config, advisor Advisor, m *metrics.Metrics, logger *slog.Logger) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 30
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 90 * time.Second
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	s := &Server{
		addr:         cfg.Addr,
		advisor:      advisor,
		metrics:      m,
		logger:       logger,
		mux:          http.NewServeMux(),
		rateLimiter:  NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
		authToken:    cfg.AuthToken,
		maxUpload:    cfg.MaxUploadBytes,
		writeTimeout: cfg.WriteTimeout,
	}
	s.rateLimiter.OnReject = func(r *http.Request) {
		m.RecordRateLimited()
		application.LoggerFrom(r.Context(), logger).Warn("rate limit exceeded", "client", getClientIP(r))
	}

	// Rate limiting and auth apply to the processing endpoints only
	s.mux.HandleFunc("POST /process_audio", s.route("/process_audio", s.rateLimiter.Middleware(s.withAuth(s.handleProcessAudio))))
	s.mux.HandleFunc("POST /process_text", s.route("/process_text", s.rateLimiter.Middleware(s.withAuth(s.handleProcessText))))
	s.mux.HandleFunc("GET /health", s.route("/health", s.handleHealth))
	s.mux.Handle("GET /metrics", m.Handler())
	s.mux.HandleFunc("GET /{$}", s.route("/", s.handleBanner))

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Auth-Token", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	})
	s.handler = s.withRequestID(c.Handler(s.mux))
	return s
}

func (s *Server) route(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return s.withMetrics(endpoint, s.withRecover(h))
}

func (s *Server) Name() string {
	return "http"
}

func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		s.logger.Info("HTTP server starting", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
			if err := s.server.Close(); err != nil {
				return fmt.Errorf("closing server: %w", err)
			}
		}
	}

	s.running = false
	return nil
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

type answerResponse struct {
	Transcription string `json:"transcription"`
	Response      string `json:"response"`
	Status        string `json:"status"`
	RequestID     string `json:"request_id,omitempty"`
	Crop          string `json:"crop,omitempty"`
	Degraded      bool   `json:"degraded,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, errorResponse{Error: msg, Details: details})
}

func writeResult(w http.ResponseWriter, r *http.Request, result *application.Result) {
	writeJSON(w, http.StatusOK, answerResponse{
		Transcription: result.Transcription,
		Response:      result.Response,
		Status:        "success",
		RequestID:     requestIDFrom(r.Context()),
		Crop:          result.Crop,
		Degraded:      result.Degraded,
	})
}
