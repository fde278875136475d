// Package draft orchestrates a reply: retrieve evidence, build the grounded prompt,
// generate, and format the answer with its image excerpts.
package draft

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/mailrag/internal/domain"
	"github.com/kailas-cloud/mailrag/internal/domain/evidence"
	"github.com/kailas-cloud/mailrag/internal/domain/prompt"
	"github.com/kailas-cloud/mailrag/internal/domain/reply"
	"github.com/kailas-cloud/mailrag/internal/domain/style"
	logpkg "github.com/kailas-cloud/mailrag/internal/logger"
)

// MaxMessageBytes bounds the inbound mail.
const MaxMessageBytes = 64 << 10

// Retriever produces the evidence set for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (evidence.Set, error)
}

// Request is an inbound drafting request.
type Request struct {
	Message string
	Style   style.Style
}

// Result is a drafted reply together with the evidence it was grounded on.
type Result struct {
	Reply    reply.Reply
	Evidence evidence.Set
}

// Service drafts email replies.
type Service struct {
	retriever Retriever
	generator domain.Generator
	logger    *zap.Logger
}

// New creates a drafting service.
func New(r Retriever, g domain.Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{retriever: r, generator: g, logger: logger}
}

// Draft runs the full pipeline. Any failure aborts the request; a reply is never
// rendered from a failed generation.
func (s *Service) Draft(ctx context.Context, req Request) (Result, error) {
	log := logpkg.FromContextOr(ctx, s.logger)

	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return Result{}, fmt.Errorf("%w: message is required", domain.ErrInvalidRequest)
	}
	if len(req.Message) > MaxMessageBytes {
		return Result{}, fmt.Errorf("%w: message exceeds %d bytes", domain.ErrInvalidRequest, MaxMessageBytes)
	}
	st := req.Style
	if !st.IsValid() {
		st = style.Default
	}

	set, err := s.retriever.Retrieve(ctx, req.Message)
	if err != nil {
		return Result{}, fmt.Errorf("retrieve: %w", err)
	}

	start := time.Now()
	gen, err := s.generator.Generate(ctx, prompt.Build(set, st), prompt.UserMessage(req.Message))
	if err != nil {
		return Result{}, generationErr(err)
	}

	out := reply.Format(gen.Text, set)

	log.Info("Reply drafted",
		zap.String("style", string(st)),
		zap.Int("evidence", set.Len()),
		zap.Int("images", len(out.Images)),
		zap.Bool("degraded", set.IsDegraded()),
		zap.Duration("generation_duration", time.Since(start)),
	)

	return Result{Reply: out, Evidence: set}, nil
}

// generationErr guarantees provider failures carry ErrGenerationFailure while
// leaving cancellation and quota errors recognizable.
func generationErr(err error) error {
	switch {
	case errors.Is(err, domain.ErrGenerationFailure),
		errors.Is(err, domain.ErrQuotaExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("generate: %w", err)
	default:
		return fmt.Errorf("generate: %w: %w", domain.ErrGenerationFailure, err)
	}
}
