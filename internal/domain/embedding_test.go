package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    []string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = append(s.got, text)
	return s.result, s.err
}

type stubBatchEmbedder struct {
	stubEmbedder
	batchResult BatchEmbeddingResult
	batchErr    error
	batchTexts  []string
}

func (s *stubBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	s.batchTexts = texts
	return s.batchResult, s.batchErr
}

func TestInstructionEmbedder_Embed(t *testing.T) {
	tests := []struct {
		name        string
		instruction string
		want        string
	}{
		{"prefix", "query: ", "query: refund policy"},
		{"empty", "", "refund policy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2}}}
			res, err := NewInstructionEmbedder(inner, tt.instruction).Embed(context.Background(), "refund policy")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if inner.got[0] != tt.want {
				t.Errorf("inner got %q, want %q", inner.got[0], tt.want)
			}
			if len(res.Embedding) != 2 {
				t.Errorf("expected 2-element vector, got %d", len(res.Embedding))
			}
		})
	}
}

func TestInstructionEmbedder_EmbedError(t *testing.T) {
	innerErr := errors.New("provider down")
	_, err := NewInstructionEmbedder(&stubEmbedder{err: innerErr}, "q: ").Embed(context.Background(), "x")
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestBatchFallback(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1}, PromptTokens: 4, TotalTokens: 4}}
	res, err := BatchFallback(context.Background(), inner, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 3 || res.TotalTokens != 12 || res.PromptTokens != 12 {
		t.Errorf("unexpected result: %+v", res)
	}

	innerErr := errors.New("fail")
	if _, err := BatchFallback(context.Background(), &stubEmbedder{err: innerErr}, []string{"a"}); !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestInstructionEmbedder_BatchEmbed(t *testing.T) {
	t.Run("native batch", func(t *testing.T) {
		inner := &stubBatchEmbedder{batchResult: BatchEmbeddingResult{Embeddings: [][]float32{{0.1}, {0.2}}}}
		res, err := NewInstructionEmbedder(inner, "doc: ").BatchEmbed(context.Background(), []string{"a", "b"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Embeddings) != 2 {
			t.Fatalf("expected 2 embeddings, got %d", len(res.Embeddings))
		}
		if inner.batchTexts[0] != "doc: a" || inner.batchTexts[1] != "doc: b" {
			t.Errorf("expected prefixed texts, got %v", inner.batchTexts)
		}
	})

	t.Run("fallback", func(t *testing.T) {
		inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.5}, TotalTokens: 3}}
		res, err := NewInstructionEmbedder(inner, "doc: ").BatchEmbed(context.Background(), []string{"a", "b"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.TotalTokens != 6 || len(inner.got) != 2 {
			t.Errorf("fallback did not embed per text: %+v, calls=%v", res, inner.got)
		}
	})

	t.Run("error", func(t *testing.T) {
		innerErr := errors.New("batch fail")
		inner := &stubBatchEmbedder{batchErr: innerErr}
		_, err := NewInstructionEmbedder(inner, "x").BatchEmbed(context.Background(), []string{"a"})
		if !errors.Is(err, innerErr) {
			t.Errorf("expected wrapped error, got %v", err)
		}
	})
}

func TestUsage_Context(t *testing.T) {
	if UsageFromContext(context.Background()) != nil {
		t.Fatal("expected nil usage on bare context")
	}

	ctx, u := NewContextWithUsage(context.Background())
	UsageFromContext(ctx).AddEmbeddingTokens(7)
	UsageFromContext(ctx).AddEmbeddingTokens(0)
	UsageFromContext(ctx).AddGenerationTokens(120)

	if u.EmbeddingTokens != 7 || u.GenerationTokens != 120 || !u.Embedded {
		t.Errorf("unexpected usage: %+v", u)
	}

	var nilUsage *Usage
	nilUsage.AddEmbeddingTokens(1)
	nilUsage.AddGenerationTokens(1)
}
