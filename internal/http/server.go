// Package http exposes the expense tracker API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"

	"expensify/internal/analyze"
	applog "expensify/internal/log"
	"expensify/internal/services"
)

// SummarySender delivers the monthly summary mail. Satisfied by
// *notify.Mailer; nil disables /api/send-summary.
type SummarySender interface {
	Send(ctx context.Context, to, subject, body string, pdf []byte) error
}

// ReceiptAnalyzer extracts prefill fields from a receipt image. Satisfied
// by *analyze.Gemini; nil disables /api/analyze.
type ReceiptAnalyzer interface {
	AnalyzeReceipt(ctx context.Context, image []byte, mimeType string) (analyze.Extraction, error)
}

type Server struct {
	http.Server

	svc            *services.ExpenseService
	mailer         SummarySender
	analyzer       ReceiptAnalyzer
	summaryTo      string
	uploadDir      string
	maxUploadBytes int64
	version        string
	logger         *applog.Logger

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

type Options struct {
	Addr           string
	Service        *services.ExpenseService
	Mailer         SummarySender
	Analyzer       ReceiptAnalyzer
	SummaryTo      string
	UploadDir      string
	AllowedOrigin  string
	MaxUploadBytes int64
	Version        string
	Logger         *applog.Logger
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		svc:            opts.Service,
		mailer:         opts.Mailer,
		analyzer:       opts.Analyzer,
		summaryTo:      opts.SummaryTo,
		uploadDir:      opts.UploadDir,
		maxUploadBytes: opts.MaxUploadBytes,
		version:        opts.Version,
		logger:         opts.Logger,
		rateLimiter:    newRateLimiter(),
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = 10 << 20
	}
	if s.logger == nil {
		s.logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}

	mux.HandleFunc("POST /api/expenses", s.withSecurityHeaders(s.handleCreateExpense))
	mux.HandleFunc("GET /api/expenses", s.withSecurityHeaders(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses/{id}/status", s.withSecurityHeaders(s.handleUpdateStatus))
	mux.HandleFunc("POST /api/analyze", s.withSecurityHeaders(s.handleAnalyzeReceipt))
	mux.HandleFunc("GET /api/expense-report", s.withSecurityHeaders(s.handleReport))
	mux.HandleFunc("GET /api/expense-report.pdf", s.withSecurityHeaders(s.handleReportPDF))
	mux.HandleFunc("POST /api/send-summary", s.withSecurityHeaders(s.handleSendSummary))
	mux.HandleFunc("POST /api/seed-samples", s.withSecurityHeaders(s.handleSeedSamples))
	mux.HandleFunc("GET /api/whoami", s.withSecurityHeaders(s.handleWhoami))

	if s.uploadDir != "" {
		uploads := http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploadDir)))
		mux.Handle("GET /uploads/", s.withSecurityHeaders(uploads.ServeHTTP))
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.HandleFunc("GET /version", s.handleVersion)

	s.Server = http.Server{
		Addr:    opts.Addr,
		Handler: corsHandler(opts.AllowedOrigin).Handler(applog.Middleware(s.logger)(mux)),
	}
	return s
}

func corsHandler(allowedOrigin string) *cors.Cors {
	if allowedOrigin == "" {
		return cors.AllowAll()
	}
	return cors.New(cors.Options{
		AllowedOrigins: []string{allowedOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := clientIP(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		// Writes are rate limited; reads are not.
		if r.Method == http.MethodPost && !s.rateLimiter.allow(ip) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, ip,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		logger := s.logger.With(applog.FieldRequestID, requestID)
		applog.LogHTTPEnd(ctx, logger, r, rw.statusCode, time.Since(start).Milliseconds(), ip)
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[ip]

	if !exists {
		rl.clients[ip] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}
