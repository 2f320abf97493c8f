// Package http exposes the fintrack JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

// ImportAPI runs the statement upload pipeline.
type ImportAPI interface {
	ImportTransactionsFromCSV(ctx context.Context, accountID string, csv io.Reader) (*services.ImportResult, error)
}

// SpendingAPI builds spending reports.
type SpendingAPI interface {
	Report(ctx context.Context, req services.ReportRequest) (*services.SpendingReport, error)
}

// BusinessAPI manages merchant rules and the bulk recognize pass.
type BusinessAPI interface {
	Create(ctx context.Context, name, defaultCategoryID string, regexps []string) (core.Business, error)
	AddRule(ctx context.Context, businessID, pattern string) error
	Recognize(ctx context.Context) ([]core.Transaction, error)
}

// CategoryAPI manages the category tree.
type CategoryAPI interface {
	Create(ctx context.Context, userID, parentID, caption string) (core.Category, error)
	Update(ctx context.Context, c core.Category) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, userID string) ([]core.Category, error)
}

// AccountAPI manages bank accounts.
type AccountAPI interface {
	Create(ctx context.Context, userID, name string, accountType core.AccountType) (core.Account, error)
	List(ctx context.Context, userID string) ([]core.Account, error)
}

// Services bundles the application services the server fronts.
type Services struct {
	Imports    ImportAPI
	Spendings  SpendingAPI
	Businesses BusinessAPI
	Categories CategoryAPI
	Accounts   AccountAPI
}

type Server struct {
	http.Server
	svc Services

	rateLimiter *rateLimiter
	metrics     *securityMetrics
	logger      *applog.Logger
	structured  *applog.StructuredLogger

	// Spending reports are expensive to build; cache them briefly and drop
	// the whole cache whenever a write changes the underlying transactions.
	reportCache *cache.LRUCache[*services.SpendingReport]
	cacheMgr    *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, logger *applog.Logger) *Server {
	mux := http.NewServeMux()

	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		svc:         svc,
		rateLimiter: newRateLimiter(),
		metrics:     &securityMetrics{},
		logger:      logger.WithComponent(applog.ComponentHTTP),
		reportCache: cache.NewLRUCache[*services.SpendingReport](100, 5*time.Minute),
		cacheMgr:    cache.NewManager(),
	}
	s.structured = applog.NewStructuredLogger(s.logger)

	s.cacheMgr.Register(s.reportCache)
	s.cacheMgr.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/transactions/import", s.withMiddleware(s.handleImport))
	mux.HandleFunc("GET /api/spending", s.withMiddleware(s.handleSpending))
	mux.HandleFunc("POST /api/businesses", s.withMiddleware(s.handleCreateBusiness))
	mux.HandleFunc("POST /api/businesses/rules", s.withMiddleware(s.handleAddBusinessRule))
	mux.HandleFunc("POST /api/businesses/recognize", s.withMiddleware(s.handleRecognize))
	mux.HandleFunc("GET /api/categories", s.withMiddleware(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.withMiddleware(s.handleCreateCategory))
	mux.HandleFunc("PUT /api/categories/{id}", s.withMiddleware(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.withMiddleware(s.handleDeleteCategory))
	mux.HandleFunc("GET /api/accounts", s.withMiddleware(s.handleListAccounts))
	mux.HandleFunc("POST /api/accounts", s.withMiddleware(s.handleCreateAccount))

	return s
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		if s.cacheMgr != nil {
			s.cacheMgr.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withMiddleware adds security headers, rate limiting, request ids, and
// request logging around a handler.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		reqLogger := s.logger.With(applog.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), applog.LoggerContextKey, reqLogger)
		r = r.WithContext(ctx)

		if detectSuspiciousRequest(r, s.metrics) {
			reqLogger.WarnContext(ctx, "Suspicious request",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
		}

		s.structured.LogHTTPStart(ctx, r, clientIP)

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP, s.metrics) {
			reqLogger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, r, core.NewError(core.CodeServiceUnavailable, "rate limit exceeded"))
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		s.structured.LogHTTPEnd(ctx, r, rw.statusCode, duration.Milliseconds(), clientIP)
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
