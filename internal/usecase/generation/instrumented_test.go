package generation

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/mailrag/internal/domain"
	"github.com/kailas-cloud/mailrag/internal/usecase/budget"
)

type mockGenerator struct {
	res   domain.GenerationResult
	err   error
	calls int
}

func (m *mockGenerator) Generate(context.Context, string, string) (domain.GenerationResult, error) {
	m.calls++
	return m.res, m.err
}

func newTracker(daily int64) *budget.Tracker {
	return budget.NewTracker(budget.Options{
		Provider: "openai-chat", DailyLimit: daily, Action: budget.ActionReject,
	}, zap.NewNop())
}

func TestGenerate_RecordsUsageAndBudget(t *testing.T) {
	inner := &mockGenerator{res: domain.GenerationResult{Text: "hi", PromptTokens: 100, CompletionTokens: 20}}
	tracker := newTracker(1000)
	g := NewInstrumentedGenerator(inner, "openai-chat", tracker, zap.NewNop())

	ctx, usage := domain.NewContextWithUsage(context.Background())
	res, err := g.Generate(ctx, "p", "u")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "hi" {
		t.Errorf("Text = %q", res.Text)
	}
	if usage.GenerationTokens != 120 {
		t.Errorf("usage = %d, want 120", usage.GenerationTokens)
	}
	if tracker.RemainingDaily() != 880 {
		t.Errorf("remaining = %d, want 880", tracker.RemainingDaily())
	}
}

func TestGenerate_BudgetRejects(t *testing.T) {
	inner := &mockGenerator{}
	tracker := newTracker(10)
	tracker.Record(10)
	g := NewInstrumentedGenerator(inner, "openai-chat", tracker, nil)

	_, err := g.Generate(context.Background(), "p", "u")
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if inner.calls != 0 {
		t.Errorf("provider must not be called when over budget")
	}
}

func TestGenerate_InnerError(t *testing.T) {
	inner := &mockGenerator{err: domain.ErrGenerationFailure}
	g := NewInstrumentedGenerator(inner, "openai-chat", nil, nil)

	_, err := g.Generate(context.Background(), "p", "u")
	if !errors.Is(err, domain.ErrGenerationFailure) {
		t.Fatalf("expected ErrGenerationFailure, got %v", err)
	}
}

func TestGenerate_NoUsageCollector(t *testing.T) {
	inner := &mockGenerator{res: domain.GenerationResult{PromptTokens: 1}}
	g := NewInstrumentedGenerator(inner, "openai-chat", nil, nil)

	if _, err := g.Generate(context.Background(), "p", "u"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
