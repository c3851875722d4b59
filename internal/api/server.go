// Package api exposes the HTTP interface for the harvest service.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sgg-bj/lawharvest/internal/lawdoc"
	"github.com/sgg-bj/lawharvest/internal/metrics"
	"github.com/sgg-bj/lawharvest/internal/ratelimit"
	"github.com/sgg-bj/lawharvest/internal/scan"
)

// Processor runs the per-document pipeline. The orchestrator satisfies it.
type Processor interface {
	Process(ctx context.Context, documentID string, force bool) lawdoc.ProcessResult
}

// Server wires HTTP handlers to the stores and the pipeline.
type Server struct {
	router    chi.Router
	found     lawdoc.FoundStore
	ranges    lawdoc.RangeStore
	processor Processor
	limiter   *ratelimit.Controller
	logger    *zap.Logger

	mu       sync.RWMutex
	lastRuns []scan.Report
}

// maxStoredRuns bounds the in-memory run history served by /v1/scan/stats.
const maxStoredRuns = 20

// NewServer constructs a Server with middleware and routes.
func NewServer(
	found lawdoc.FoundStore,
	ranges lawdoc.RangeStore,
	processor Processor,
	limiter *ratelimit.Controller,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		found:     found,
		ranges:    ranges,
		processor: processor,
		limiter:   limiter,
		logger:    logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.listDocuments)
			r.Post("/{document_id}/process", s.processDocument)
		})
		r.Get("/ranges", s.listRanges)
		r.Get("/scan/stats", s.scanStats)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// RecordRun appends a completed scan report to the stats history.
func (s *Server) RecordRun(report scan.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRuns = append(s.lastRuns, report)
	if len(s.lastRuns) > maxStoredRuns {
		s.lastRuns = s.lastRuns[len(s.lastRuns)-maxStoredRuns:]
	}
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) processDocument(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "document_id")
	if _, err := lawdoc.ParseIdentifier(documentID); err != nil {
		writeError(s.logger, w, http.StatusBadRequest, err.Error())
		return
	}
	force := r.URL.Query().Get("force") == "true"

	result := s.processor.Process(r.Context(), documentID, force)
	status := http.StatusOK
	if !result.Success && strings.Contains(result.Message, "not reachable upstream") {
		status = http.StatusNotFound
	}
	writeJSON(s.logger, w, status, result)
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := lawdoc.FoundFilter{
		Type:  lawdoc.DocumentType(q.Get("type")),
		Stage: lawdoc.Stage(q.Get("stage")),
	}
	if filter.Type != "" && !lawdoc.ValidType(filter.Type) {
		writeError(s.logger, w, http.StatusBadRequest, "unknown document type")
		return
	}
	if raw := q.Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			writeError(s.logger, w, http.StatusBadRequest, "invalid year")
			return
		}
		filter.Year = year
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(s.logger, w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	docs, err := s.found.List(r.Context(), filter)
	if err != nil {
		writeError(s.logger, w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []lawdoc.FoundRecord{}
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

func (s *Server) listRanges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	docType := lawdoc.DocumentType(q.Get("type"))
	if !lawdoc.ValidType(docType) {
		writeError(s.logger, w, http.StatusBadRequest, "unknown document type")
		return
	}
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "invalid year")
		return
	}

	ranges, err := s.ranges.Ranges(r.Context(), docType, year)
	if err != nil {
		writeError(s.logger, w, http.StatusInternalServerError, "failed to list ranges")
		return
	}
	if ranges == nil {
		ranges = []lawdoc.NotFoundRange{}
	}
	absent := 0
	for _, nr := range ranges {
		absent += nr.DocumentCount
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{
		"ranges":       ranges,
		"count":        len(ranges),
		"absent_total": absent,
	})
}

func (s *Server) scanStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	runs := make([]scan.Report, len(s.lastRuns))
	copy(runs, s.lastRuns)
	s.mu.RUnlock()

	payload := map[string]any{"last_runs": runs}
	if s.limiter != nil {
		stats := s.limiter.Snapshot()
		payload["rate_limit"] = map[string]any{
			"total_requests": stats.TotalRequests,
			"count_429":      stats.Count429,
			"rate_429":       stats.Rate429,
			"current_delay":  stats.CurrentDelay.String(),
		}
	}
	writeJSON(s.logger, w, http.StatusOK, payload)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.status, time.Since(start))
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(s.logger, w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type requestIDKey struct{}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
