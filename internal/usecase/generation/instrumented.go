package generation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/mailrag/internal/domain"
	"github.com/kailas-cloud/mailrag/internal/metrics"
)

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// InstrumentedGenerator enforces the generation token budget and feeds the
// per-request usage collector. Transport metrics live in transport/openai.
type InstrumentedGenerator struct {
	inner    domain.Generator
	provider string
	budget   BudgetChecker
	logger   *zap.Logger
}

// NewInstrumentedGenerator wraps a generator. A nil budget disables enforcement.
func NewInstrumentedGenerator(
	inner domain.Generator, provider string, budget BudgetChecker, logger *zap.Logger,
) *InstrumentedGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedGenerator{inner: inner, provider: provider, budget: budget, logger: logger}
}

// Generate checks the budget, delegates, and records consumed tokens.
func (g *InstrumentedGenerator) Generate(ctx context.Context, prompt, userText string) (domain.GenerationResult, error) {
	if g.budget != nil {
		if err := g.budget.Check(ctx); err != nil {
			g.logger.Error("Budget exceeded", zap.String("provider", g.provider), zap.Error(err))
			return domain.GenerationResult{}, fmt.Errorf("budget check: %w", err)
		}
	}

	start := time.Now()
	res, err := g.inner.Generate(ctx, prompt, userText)
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("generate: %w", err)
	}

	total := res.PromptTokens + res.CompletionTokens
	domain.UsageFromContext(ctx).AddGenerationTokens(total)

	if g.budget != nil && total > 0 {
		g.budget.Record(int64(total))
		metrics.TokenBudgetRemaining.WithLabelValues(g.provider, "daily").Set(float64(g.budget.RemainingDaily()))
		metrics.TokenBudgetRemaining.WithLabelValues(g.provider, "monthly").Set(float64(g.budget.RemainingMonthly()))
	}

	g.logger.Debug("Generation completed",
		zap.String("provider", g.provider),
		zap.Duration("duration", time.Since(start)),
		zap.Int("prompt_tokens", res.PromptTokens),
		zap.Int("completion_tokens", res.CompletionTokens),
	)

	return res, nil
}
