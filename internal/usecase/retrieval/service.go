package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/mailrag/internal/domain"
	"github.com/kailas-cloud/mailrag/internal/domain/document"
	"github.com/kailas-cloud/mailrag/internal/domain/evidence"
	logpkg "github.com/kailas-cloud/mailrag/internal/logger"
	"github.com/kailas-cloud/mailrag/internal/metrics"
)

// PathResult is the outcome of one search path. A nil Err with no Docs is a
// successful search with zero matches, never a failure.
type PathResult struct {
	Path    evidence.Path
	Docs    []document.Document
	Err     error
	Skipped bool
}

// Failed reports whether the path call failed.
func (r PathResult) Failed() bool { return r.Err != nil }

// errPathSkipped marks a path that had nothing to search for.
var errPathSkipped = errors.New("path not searched: no keywords or zero result limit")

// Service is the hybrid ranker: it embeds a query, searches both paths
// concurrently and fuses the rankings into an evidence set.
type Service struct {
	store  Store
	embed  Embedder
	cfg    Config
	logger *zap.Logger
}

// New creates a retrieval service.
func New(store Store, embed Embedder, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, embed: embed, cfg: cfg, logger: logger}
}

// Config returns the ranking parameters in use.
func (s *Service) Config() Config { return s.cfg }

// Retrieve returns at most OutputLimit fused evidence items for the query.
// A failure of one path yields a degraded set built from the other path; a
// failure of both yields a *StoreError.
func (s *Service) Retrieve(ctx context.Context, query string) (evidence.Set, error) {
	log := logpkg.FromContextOr(ctx, s.logger)

	vec, err := s.embedQuery(ctx, query)
	if err != nil {
		return evidence.Set{}, err
	}

	vr, kr := s.searchBoth(ctx, vec, s.keywords(query))
	if err := ctx.Err(); err != nil {
		return evidence.Set{}, fmt.Errorf("retrieve: %w", err)
	}

	var degraded []evidence.Path
	for _, r := range []PathResult{vr, kr} {
		if r.Failed() {
			degraded = append(degraded, r.Path)
			metrics.RetrievalPathFailuresTotal.WithLabelValues(string(r.Path)).Inc()
			log.Warn("Search path failed",
				zap.String("path", string(r.Path)),
				zap.Error(r.Err),
			)
			continue
		}
		metrics.RetrievalPathHits.WithLabelValues(string(r.Path)).Observe(float64(len(r.Docs)))
	}

	// A skipped path contributes no evidence, so it cannot rescue a failed one.
	if (vr.Failed() || vr.Skipped) && (kr.Failed() || kr.Skipped) && (vr.Failed() || kr.Failed()) {
		return evidence.Set{}, &StoreError{
			Vector:  &PathError{Path: vr.Path, Err: pathCause(vr)},
			Keyword: &PathError{Path: kr.Path, Err: pathCause(kr)},
		}
	}

	fused := fuse(toHits(vr.Docs), toHits(kr.Docs), s.cfg)
	metrics.RetrievalEvidenceSize.Observe(float64(len(fused)))

	log.Debug("Evidence fused",
		zap.Int("vector_hits", len(vr.Docs)),
		zap.Int("keyword_hits", len(kr.Docs)),
		zap.Int("evidence", len(fused)),
	)

	return evidence.NewSet(fused, degraded...), nil
}

func (s *Service) embedQuery(ctx context.Context, query string) ([]float32, error) {
	res, err := s.embed.Embed(ctx, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("embed query: %w", ctxErr)
		}
		return nil, &EmbeddingError{Reason: "provider error", Err: err}
	}
	domain.UsageFromContext(ctx).AddEmbeddingTokens(res.TotalTokens)

	vec := res.Embedding
	if len(vec) == 0 {
		return nil, &EmbeddingError{Reason: "empty vector"}
	}
	if s.cfg.Dimensions > 0 && len(vec) != s.cfg.Dimensions {
		return nil, &EmbeddingError{
			Reason: fmt.Sprintf("vector length %d, want %d", len(vec), s.cfg.Dimensions),
		}
	}
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &EmbeddingError{Reason: fmt.Sprintf("non-finite component at %d", i)}
		}
	}
	return vec, nil
}

func (s *Service) keywords(query string) []string {
	if s.cfg.KeywordFromQuery {
		return strings.Fields(query)
	}
	return s.cfg.Keywords
}

// searchBoth runs the vector and keyword paths concurrently. Each goroutine
// writes only its own PathResult.
func (s *Service) searchBoth(ctx context.Context, vec []float32, keywords []string) (PathResult, PathResult) {
	vr := PathResult{Path: evidence.PathVector}
	kr := PathResult{Path: evidence.PathKeyword}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		start := time.Now()
		vr.Docs, vr.Err = s.store.VectorSearch(ctx, vec, s.cfg.VectorCandidateLimit, s.cfg.VectorResultLimit)
		vr.Err = storeErr(vr.Err)
		metrics.RetrievalPathDuration.WithLabelValues(string(evidence.PathVector)).Observe(time.Since(start).Seconds())
	}()
	go func() {
		defer wg.Done()
		if len(keywords) == 0 || s.cfg.KeywordResultLimit == 0 {
			kr.Skipped = true
			return
		}
		start := time.Now()
		kr.Docs, kr.Err = s.store.KeywordSearch(ctx, keywords, s.cfg.KeywordResultLimit)
		kr.Err = storeErr(kr.Err)
		metrics.RetrievalPathDuration.WithLabelValues(string(evidence.PathKeyword)).Observe(time.Since(start).Seconds())
	}()
	wg.Wait()

	if vr.Err != nil {
		vr.Docs = nil
	}
	if kr.Err != nil {
		kr.Docs = nil
	}
	return vr, kr
}

func pathCause(r PathResult) error {
	if r.Skipped {
		return errPathSkipped
	}
	return r.Err
}

func storeErr(err error) error {
	if err == nil || errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}
