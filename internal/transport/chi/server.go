// Package chi exposes the retrieval pipeline over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pensieve-cloud/pensieve/internal/domain"
	domret "github.com/pensieve-cloud/pensieve/internal/domain/retrieval"
	"github.com/pensieve-cloud/pensieve/internal/domain/retrieval/filter"
	"github.com/pensieve-cloud/pensieve/internal/metrics"
	healthuc "github.com/pensieve-cloud/pensieve/internal/usecase/health"
	retrievaluc "github.com/pensieve-cloud/pensieve/internal/usecase/retrieval"
)

// ErrorCode identifies the error class in API responses.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeValidationFailed ErrorCode = "validation_failed"
	CodeInvalidFilter    ErrorCode = "invalid_filter"
	CodeUpstreamError    ErrorCode = "upstream_error"
	CodeEmbeddingError   ErrorCode = "embedding_provider_error"
	CodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server handles the retrieval HTTP API.
type Server struct {
	retrieval     *retrievaluc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(retrieval *retrievaluc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		retrieval: retrieval,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidFilter, http.StatusBadRequest, CodeInvalidFilter),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, CodeEmbeddingError),
		sentinelHandler(domain.ErrUpstream, http.StatusBadGateway, CodeUpstreamError),
	}
	return s
}

// Routes registers the API routes on a chi router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/retrieve", s.Retrieve)
	r.Post("/v1/recent", s.Recent)
	r.Get("/health", s.Health)
	r.Get("/metrics", s.Metrics)
}

// RetrieveRequest is the POST /v1/retrieve body.
type RetrieveRequest struct {
	Query   string         `json:"query"`
	UserID  string         `json:"user_id"`
	Filters map[string]any `json:"filters,omitempty"`
	Limit   int            `json:"limit,omitempty"`
}

// RecentRequest is the POST /v1/recent body.
type RecentRequest struct {
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
	Limit          int    `json:"limit,omitempty"`
}

// ChunkResponse is one resolved content chunk in API responses.
type ChunkResponse struct {
	Content            string            `json:"content"`
	Source             string            `json:"source"`
	IngestionTimestamp time.Time         `json:"ingestion_timestamp"`
	ContentTimestamp   time.Time         `json:"content_timestamp"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// RetrieveResponse is the POST /v1/retrieve and /v1/recent response body.
type RetrieveResponse struct {
	Results []ChunkResponse `json:"results"`
	Count   int             `json:"count"`
}

// Retrieve handles POST /v1/retrieve.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "user_id is required")
		return
	}

	filters, err := filter.FromMap(req.Filters)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	domReq, err := domret.NewRequest(req.Query, req.UserID, filters, req.Limit)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyQuery) {
			s.handleDomainError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	chunks, err := s.retrieval.Fetch(r.Context(), domReq)
	if err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues("retrieve", "error").Inc()
		s.handleDomainError(w, err)
		return
	}

	metrics.RetrievalRequestsTotal.WithLabelValues("retrieve", "success").Inc()
	writeJSON(w, http.StatusOK, chunksToResponse(chunks))
}

// Recent handles POST /v1/recent.
func (s *Server) Recent(w http.ResponseWriter, r *http.Request) {
	var req RecentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "user_id is required")
		return
	}
	if req.ConversationID == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "conversation_id is required")
		return
	}

	chunks, err := s.retrieval.FetchRecent(r.Context(), req.UserID, req.ConversationID, req.Limit)
	if err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues("recent", "error").Inc()
		s.handleDomainError(w, err)
		return
	}

	metrics.RetrievalRequestsTotal.WithLabelValues("recent", "success").Inc()
	writeJSON(w, http.StatusOK, chunksToResponse(chunks))
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func chunksToResponse(chunks []domret.Chunk) RetrieveResponse {
	results := make([]ChunkResponse, len(chunks))
	for i, c := range chunks {
		results[i] = ChunkResponse{
			Content:            c.Content,
			Source:             c.Source.String(),
			IngestionTimestamp: c.IngestedAt.UTC(),
			ContentTimestamp:   c.ContentAt.UTC(),
			Metadata:           c.Metadata,
		}
		metrics.RetrievalResultsTotal.WithLabelValues(c.Source.String()).Inc()
	}
	return RetrieveResponse{Results: results, Count: len(results)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyQuery,
		domain.ErrInvalidFilter,
		domain.ErrEmbeddingProvider,
		domain.ErrUpstream,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
