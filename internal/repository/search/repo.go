package search

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/mailrag/internal/db"
	"github.com/kailas-cloud/mailrag/internal/domain"
	"github.com/kailas-cloud/mailrag/internal/domain/document"
	"github.com/kailas-cloud/mailrag/internal/repository/chunk"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Repo implements usecase/retrieval.Store on top of the chunk index.
type Repo struct {
	store store
	keys  chunk.Keys
}

// New creates a search repository.
func New(s store, keys chunk.Keys) *Repo {
	return &Repo{store: s, keys: keys}
}

// VectorSearch runs an approximate nearest-neighbour query. candidateLimit widens the
// HNSW exploration (EF_RUNTIME) and resultLimit caps the returned chunks.
func (r *Repo) VectorSearch(
	ctx context.Context, vector []float32, candidateLimit, resultLimit int,
) ([]document.Document, error) {
	q := &db.KNNQuery{
		IndexName:    r.keys.IndexName(),
		VectorField:  chunk.FieldVector,
		Vector:       vector,
		K:            resultLimit,
		EFRuntime:    max(candidateLimit, resultLimit),
		ReturnFields: chunk.ReturnFields,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %w", domain.ErrStoreUnavailable, err)
	}
	return r.toDocuments(sr), nil
}

// KeywordSearch returns chunks containing any of the keywords, best text score first.
func (r *Repo) KeywordSearch(ctx context.Context, keywords []string, resultLimit int) ([]document.Document, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	q := &db.TextQuery{
		IndexName:    r.keys.IndexName(),
		Field:        chunk.FieldContent,
		Terms:        keywords,
		TopK:         resultLimit,
		ReturnFields: chunk.ReturnFields,
	}

	sr, err := r.store.SearchText(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: keyword search: %w", domain.ErrStoreUnavailable, err)
	}
	return r.toDocuments(sr), nil
}

func (r *Repo) toDocuments(sr *db.SearchResult) []document.Document {
	if sr == nil {
		return nil
	}
	docs := make([]document.Document, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		docs = append(docs, chunk.FromHash(r.keys.ChunkID(e.Key), e.Fields))
	}
	return docs
}
