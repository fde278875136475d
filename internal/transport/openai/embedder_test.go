package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mailrag/internal/domain"
	"github.com/kailas-cloud/mailrag/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()
	os.Exit(m.Run())
}

// embeddingServer answers /embeddings with whatever reply builds from the decoded request.
func embeddingServer(t *testing.T, reply func(req goopenai.EmbeddingRequest) goopenai.EmbeddingResponse) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req goopenai.EmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply(req))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func vectors(tokens int, vecs ...[]float32) goopenai.EmbeddingResponse {
	resp := goopenai.EmbeddingResponse{Object: "list", Model: "text-embedding-3-small"}
	for i, v := range vecs {
		resp.Data = append(resp.Data, goopenai.Embedding{Object: "embedding", Embedding: v, Index: i})
	}
	resp.Usage.PromptTokens = tokens
	resp.Usage.TotalTokens = tokens
	return resp
}

func newTestEmbedder(baseURL string, dims int) *Embedder {
	return NewEmbedder(&Config{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		Model:      "text-embedding-3-small",
		Dimensions: dims,
		Provider:   "test",
		Logger:     zap.NewNop(),
	})
}

func TestEmbedder_Embed(t *testing.T) {
	var got goopenai.EmbeddingRequest
	srv := embeddingServer(t, func(req goopenai.EmbeddingRequest) goopenai.EmbeddingResponse {
		got = req
		return vectors(12, []float32{0.1, 0.2, 0.3, 0.4})
	})

	res, err := newTestEmbedder(srv.URL, 4).Embed(context.Background(), "What is our ESG policy?")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if got.Model != "text-embedding-3-small" || got.Dimensions != 4 {
		t.Errorf("request model/dimensions = %s/%d", got.Model, got.Dimensions)
	}
	if got.EncodingFormat != goopenai.EmbeddingEncodingFormatFloat {
		t.Errorf("encoding format = %q, want float", got.EncodingFormat)
	}
	if len(res.Embedding) != 4 || res.Embedding[3] != 0.4 {
		t.Errorf("embedding = %v", res.Embedding)
	}
	if res.PromptTokens != 12 || res.TotalTokens != 12 {
		t.Errorf("usage = %d/%d, want 12/12", res.PromptTokens, res.TotalTokens)
	}
}

func TestEmbedder_OmitsDimensionsWhenUnset(t *testing.T) {
	var got goopenai.EmbeddingRequest
	srv := embeddingServer(t, func(req goopenai.EmbeddingRequest) goopenai.EmbeddingResponse {
		got = req
		return vectors(1, []float32{1})
	})

	if _, err := newTestEmbedder(srv.URL, 0).Embed(context.Background(), "x"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if got.Dimensions != 0 {
		t.Errorf("dimensions = %d, want omitted", got.Dimensions)
	}
}

func TestEmbedder_BatchEmbed_OrdersByIndex(t *testing.T) {
	srv := embeddingServer(t, func(goopenai.EmbeddingRequest) goopenai.EmbeddingResponse {
		resp := vectors(20, []float32{0.1, 0.2}, []float32{0.3, 0.4}, []float32{0.5, 0.6})
		resp.Data[0], resp.Data[2] = resp.Data[2], resp.Data[0]
		return resp
	})

	res, err := newTestEmbedder(srv.URL, 2).BatchEmbed(context.Background(), []string{"chunk a", "chunk b", "chunk c"})
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	for i, want := range []float32{0.1, 0.3, 0.5} {
		if res.Embeddings[i][0] != want {
			t.Errorf("embeddings[%d][0] = %f, want %f", i, res.Embeddings[i][0], want)
		}
	}
	if res.TotalTokens != 20 {
		t.Errorf("TotalTokens = %d, want 20", res.TotalTokens)
	}
}

func TestEmbedder_BatchEmbed_Empty(t *testing.T) {
	res, err := newTestEmbedder("http://unused", 0).BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Embeddings != nil {
		t.Errorf("expected nil embeddings for empty input, got %v", res.Embeddings)
	}
}

func TestEmbedder_BatchEmbed_MalformedResponse(t *testing.T) {
	tests := []struct {
		name  string
		reply goopenai.EmbeddingResponse
	}{
		{"count mismatch", vectors(5, []float32{0.1})},
		{"duplicate index", func() goopenai.EmbeddingResponse {
			r := vectors(5, []float32{0.1}, []float32{0.2})
			r.Data[1].Index = 0
			return r
		}()},
		{"index out of range", func() goopenai.EmbeddingResponse {
			r := vectors(5, []float32{0.1}, []float32{0.2})
			r.Data[1].Index = 7
			return r
		}()},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := embeddingServer(t, func(goopenai.EmbeddingRequest) goopenai.EmbeddingResponse { return tc.reply })

			_, err := newTestEmbedder(srv.URL, 0).BatchEmbed(context.Background(), []string{"a", "b"})
			if !errors.Is(err, domain.ErrEmbeddingFailure) {
				t.Fatalf("expected ErrEmbeddingFailure, got %v", err)
			}
		})
	}
}

func TestEmbedder_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limit exceeded", "type": "rate_limit_error"},
		})
	}))
	defer srv.Close()

	_, err := newTestEmbedder(srv.URL, 0).Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingFailure) {
		t.Errorf("expected ErrEmbeddingFailure, got %v", err)
	}
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestEmbedder_NebiusDetailError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"model not found"}`))
	}))
	defer server.Close()

	emb := NewEmbedder(&Config{APIKey: "k", BaseURL: server.URL, Model: "m", Provider: "test"})

	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingFailure) {
		t.Fatalf("expected ErrEmbeddingFailure, got %v", err)
	}
	if errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("400 must not be tagged as rate limited")
	}
}

func TestEmbedder_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	}))
	defer server.Close()

	emb := NewEmbedder(&Config{APIKey: "k", BaseURL: server.URL, Model: "m", Provider: "test"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := emb.Embed(ctx, "hello")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExtractDetail(t *testing.T) {
	if got := extractDetail([]byte(`{"detail":"boom"}`)); got != "boom" {
		t.Errorf("extractDetail = %q", got)
	}
	if got := extractDetail([]byte(`not json`)); got != "" {
		t.Errorf("extractDetail = %q, want empty", got)
	}
}
