package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"kuvert/internal/log"
	"kuvert/internal/services"
	"kuvert/internal/store"
)

type Server struct {
	http.Server
	store      *store.TransactionStore
	derivation *services.Derivation
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, s *store.TransactionStore, d *services.Derivation) *Server {
	mux := http.NewServeMux()

	srv := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
		},
		store:      s,
		derivation: d,
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", srv.handleReady)

	mux.HandleFunc("GET /api/files", srv.withLogging(srv.handleListFiles))
	mux.HandleFunc("POST /api/files", srv.withLogging(srv.handleAddFile))
	mux.HandleFunc("DELETE /api/files/{name}", srv.withLogging(srv.handleRemoveFile))

	mux.HandleFunc("GET /api/schemas", srv.withLogging(srv.handleListSchemas))
	mux.HandleFunc("PUT /api/mappings/{key}", srv.withLogging(srv.handleSaveMapping))
	mux.HandleFunc("DELETE /api/mappings/{key}", srv.withLogging(srv.handleRemoveMapping))

	mux.HandleFunc("GET /api/transactions", srv.withLogging(srv.handleListTransactions))
	mux.HandleFunc("PUT /api/transactions/{id}/category", srv.withLogging(srv.handleSetCategory))
	mux.HandleFunc("PUT /api/transactions/{id}/type", srv.withLogging(srv.handleSetType))
	mux.HandleFunc("DELETE /api/transactions/{id}/type", srv.withLogging(srv.handleUnsetType))
	mux.HandleFunc("PUT /api/transactions/{id}/income-envelope", srv.withLogging(srv.handleSetIncomeEnvelope))
	mux.HandleFunc("DELETE /api/transactions/{id}/income-envelope", srv.withLogging(srv.handleUnsetIncomeEnvelope))

	mux.HandleFunc("POST /api/links", srv.withLogging(srv.handleSetLink))
	mux.HandleFunc("DELETE /api/links/{a}/{b}", srv.withLogging(srv.handleUnsetLink))

	mux.HandleFunc("GET /api/accounts", srv.withLogging(srv.handleGetAccounts))
	mux.HandleFunc("PUT /api/accounts/owned", srv.withLogging(srv.handleSaveOwnedAccounts))
	mux.HandleFunc("PUT /api/accounts/labels", srv.withLogging(srv.handleSetAccountLabel))

	mux.HandleFunc("GET /api/categories", srv.withLogging(srv.handleGetCategories))
	mux.HandleFunc("PUT /api/categories", srv.withLogging(srv.handleSaveCategories))
	mux.HandleFunc("PUT /api/categories/{name}/post", srv.withLogging(srv.handleAssignCategoryPost))

	mux.HandleFunc("GET /api/budget/posts", srv.withLogging(srv.handleGetBudgetPosts))
	mux.HandleFunc("PUT /api/budget/posts", srv.withLogging(srv.handleSaveBudgetPosts))

	mux.HandleFunc("GET /api/filters", srv.withLogging(srv.handleGetFilters))
	mux.HandleFunc("PUT /api/filters", srv.withLogging(srv.handleSaveFilters))
	mux.HandleFunc("GET /api/exclusions", srv.withLogging(srv.handleGetExclusions))
	mux.HandleFunc("PUT /api/exclusions", srv.withLogging(srv.handleSaveExclusions))

	mux.HandleFunc("GET /api/reports/totals", srv.withLogging(srv.handleTotalsReport))
	mux.HandleFunc("GET /api/reports/envelopes", srv.withLogging(srv.handleEnvelopeReport))
	mux.HandleFunc("GET /api/reports/averages", srv.withLogging(srv.handleAveragesReport))
	mux.HandleFunc("GET /api/reports/budget", srv.withLogging(srv.handleBudgetReport))

	return srv
}

// withLogging adds request logging and a request ID to responses
func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			log.FieldComponent, log.ComponentHTTP,
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds())
	}
}

type requestIDKey struct{}

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
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Revision(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
