// Package ingest embeds chunk records and writes them to the document store.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/mailrag/internal/domain"
	dombatch "github.com/kailas-cloud/mailrag/internal/domain/batch"
	"github.com/kailas-cloud/mailrag/internal/domain/document"
)

// DefaultMaxBatchSize is the number of chunks embedded and written per round.
const DefaultMaxBatchSize = 64

// Service indexes chunks with per-item error reporting.
type Service struct {
	writer       ChunkWriter
	embed        domain.Embedder
	maxBatchSize int
	logger       *zap.Logger
}

// New creates an ingest service.
func New(writer ChunkWriter, embed domain.Embedder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{writer: writer, embed: embed, maxBatchSize: DefaultMaxBatchSize, logger: logger}
}

// WithMaxBatchSize configures the per-round batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// Ingest validates, embeds and writes records. The result slice is aligned with
// records. A quota or rate-limit error fails every remaining record without
// further provider calls.
func (s *Service) Ingest(ctx context.Context, records []Record) []dombatch.Result {
	results := make([]dombatch.Result, len(records))

	var cascade error
	for offset := 0; offset < len(records); offset += s.maxBatchSize {
		end := min(offset+s.maxBatchSize, len(records))

		if cascade == nil {
			if err := ctx.Err(); err != nil {
				cascade = err
			}
		}
		if cascade != nil {
			for i := offset; i < end; i++ {
				results[i] = dombatch.NewError(recordRef(records[i], i), fmt.Errorf("skipped: %w", cascade))
			}
			continue
		}

		cascade = s.ingestBatch(ctx, records[offset:end], results[offset:end], offset)
	}

	sum := dombatch.Summarize(results)
	s.logger.Info("Ingest finished",
		zap.Int("total", sum.Total()),
		zap.Int("ok", sum.OK),
		zap.Int("failed", sum.Failed),
	)
	return results
}

// ingestBatch fills results for one round and returns an error that must stop
// all further rounds.
func (s *Service) ingestBatch(
	ctx context.Context, records []Record, results []dombatch.Result, offset int,
) error {
	valid := make([]document.Document, 0, len(records))
	validIdx := make([]int, 0, len(records))

	for i, rec := range records {
		d, err := rec.Document()
		if err != nil {
			results[i] = dombatch.NewError(recordRef(rec, offset+i), err)
			continue
		}
		valid = append(valid, d)
		validIdx = append(validIdx, i)
	}
	if len(valid) == 0 {
		return nil
	}

	texts := make([]string, len(valid))
	for i, d := range valid {
		texts[i] = d.Content()
	}

	emb, err := s.batchEmbed(ctx, texts)
	if err != nil {
		for j, i := range validIdx {
			results[i] = dombatch.NewError(valid[j].ID(), fmt.Errorf("vectorize: %w", err))
		}
		if isCascade(err) {
			return err
		}
		return nil
	}
	domain.UsageFromContext(ctx).AddEmbeddingTokens(emb.TotalTokens)

	for j := range valid {
		valid[j] = valid[j].WithEmbedding(emb.Embeddings[j])
	}

	if err := s.writer.WriteChunks(ctx, valid); err != nil {
		for j, i := range validIdx {
			results[i] = dombatch.NewError(valid[j].ID(), fmt.Errorf("write: %w", err))
		}
		return nil
	}

	for j, i := range validIdx {
		results[i] = dombatch.NewOK(valid[j].ID())
	}
	s.logger.Debug("Chunks indexed", zap.Int("offset", offset), zap.Int("count", len(valid)))
	return nil
}

func (s *Service) batchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	var (
		res domain.BatchEmbeddingResult
		err error
	)
	if be, ok := s.embed.(domain.BatchEmbedder); ok {
		res, err = be.BatchEmbed(ctx, texts)
	} else {
		res, err = domain.BatchFallback(ctx, s.embed, texts)
	}
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	if len(res.Embeddings) != len(texts) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf(
			"got %d embeddings for %d chunks: %w", len(res.Embeddings), len(texts), domain.ErrEmbeddingFailure)
	}
	for i, v := range res.Embeddings {
		if len(v) == 0 {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("empty embedding for chunk %d: %w", i, domain.ErrEmbeddingFailure)
		}
	}
	return res, nil
}

func isCascade(err error) bool {
	return errors.Is(err, domain.ErrQuotaExceeded) ||
		errors.Is(err, domain.ErrRateLimited) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// recordRef names a record in results even when it has no usable ID.
func recordRef(rec Record, i int) string {
	if rec.ID != "" {
		return rec.ID
	}
	if rec.Content != "" && rec.Source != "" && rec.Page >= 0 {
		return document.DeriveID(rec.Source, rec.Page, rec.Content)
	}
	return fmt.Sprintf("#%d", i)
}
