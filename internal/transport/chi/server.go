package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mailrag/internal/domain"
	"github.com/kailas-cloud/mailrag/internal/domain/evidence"
	"github.com/kailas-cloud/mailrag/internal/domain/style"
	domusage "github.com/kailas-cloud/mailrag/internal/domain/usage"
	logpkg "github.com/kailas-cloud/mailrag/internal/logger"
	draftuc "github.com/kailas-cloud/mailrag/internal/usecase/draft"
	healthuc "github.com/kailas-cloud/mailrag/internal/usecase/health"
)

// maxBodyBytes leaves room for JSON escaping of a maximum size message.
const maxBodyBytes = 4 * draftuc.MaxMessageBytes

// statusClientClosedRequest is the de facto status for requests abandoned by the client.
const statusClientClosedRequest = 499

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the drafting API.
type Server struct {
	draft         Drafter
	retriever     Retriever
	health        HealthReporter
	usage         UsageReporter
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	draft Drafter, retriever Retriever, health HealthReporter, usage UsageReporter, logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		draft:     draft,
		retriever: retriever,
		health:    health,
		usage:     usage,
		logger:    logger,
	}
	// Order matters: quota and rate limit errors also carry the embedding sentinel.
	s.errorHandlers = []errorHandler{
		sentinelHandler(context.Canceled, statusClientClosedRequest),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest),
		sentinelHandler(domain.ErrQuotaExceeded, http.StatusTooManyRequests),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests),
		sentinelHandler(domain.ErrEmbeddingFailure, http.StatusBadGateway),
		sentinelHandler(domain.ErrGenerationFailure, http.StatusBadGateway),
		sentinelHandler(domain.ErrRetrievalFailure, http.StatusServiceUnavailable),
	}
	return s
}

// Chat handles POST /api/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.draft.Draft(ctx, draftuc.Request{
		Message: req.Message,
		Style:   style.Parse(req.ReplyType),
	})
	setUsageHeaders(w, usage, true)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res.Reply)
}

// Retrieve handles GET /api/v1/retrieve. It runs the ranker only and returns
// the evidence with its per-path scores.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	var q string
	if err := runtime.BindQueryParameter("form", true, true, "q", r.URL.Query(), &q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid query parameter q")
		return
	}
	var limit *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, "invalid query parameter limit")
		return
	}

	if strings.TrimSpace(q) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if len(q) > draftuc.MaxMessageBytes {
		writeError(w, http.StatusBadRequest, "query too large")
		return
	}
	if limit != nil && *limit <= 0 {
		writeError(w, http.StatusBadRequest, "limit must be positive")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	set, err := s.retriever.Retrieve(ctx, q)
	setUsageHeaders(w, usage, false)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if limit != nil && *limit < set.Len() {
		set = evidence.NewSet(set.Entries()[:*limit], set.Degraded()...)
	}

	writeJSON(w, http.StatusOK, evidenceToResponse(set))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Usage handles GET /api/v1/usage.
func (s *Server) Usage(w http.ResponseWriter, r *http.Request) {
	var raw string
	if err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid query parameter period")
		return
	}
	period, err := domusage.ParsePeriod(raw)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, usageToResponse(s.usage.GetReports(r.Context(), period)))
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.Usage, generation bool) {
	if usage == nil {
		return
	}
	if usage.Embedded {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.EmbeddingTokens))
	}
	if generation && usage.GenerationTokens > 0 {
		w.Header().Set("X-Generation-Tokens", strconv.Itoa(usage.GenerationTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	}
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrQuotaExceeded,
		domain.ErrRateLimited,
		domain.ErrEmbeddingFailure,
		domain.ErrGenerationFailure,
		domain.ErrRetrievalFailure,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
