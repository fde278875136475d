package retrieval

import (
	"context"

	"github.com/kailas-cloud/mailrag/internal/domain"
	"github.com/kailas-cloud/mailrag/internal/domain/document"
)

// Store is the document store contract for the two search paths.
// Implementations wrap failures with domain.ErrStoreUnavailable.
type Store interface {
	// VectorSearch returns the nearest documents by cosine similarity, best first.
	VectorSearch(ctx context.Context, vector []float32, candidateLimit, resultLimit int) ([]document.Document, error)
	// KeywordSearch returns documents matching the keywords, best first.
	KeywordSearch(ctx context.Context, keywords []string, resultLimit int) ([]document.Document, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
