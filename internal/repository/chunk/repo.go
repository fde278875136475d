package chunk

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/mailrag/internal/db"
	"github.com/kailas-cloud/mailrag/internal/domain"
	"github.com/kailas-cloud/mailrag/internal/domain/document"
)

// store is the consumer interface for chunk persistence (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// IndexOptions tunes the HNSW vector field.
type IndexOptions struct {
	Dimensions     int
	M              int
	EFConstruction int
}

// Repo writes chunks as Redis hashes covered by one FT index.
type Repo struct {
	store store
	keys  Keys
}

// New creates a chunk repository.
func New(s store, keys Keys) *Repo {
	return &Repo{store: s, keys: keys}
}

// IndexDefinition returns the FT schema for chunks.
func (r *Repo) IndexDefinition(opts IndexOptions) (*db.IndexDefinition, error) {
	def, err := db.NewIndex(r.keys.IndexName()).
		Prefix(r.keys.ChunkPrefix()).
		TextNoStem(FieldContent).
		Tag(FieldSource).
		Numeric(FieldPage).
		Tag(FieldIsImage).
		VectorHNSW(FieldVector, opts.Dimensions, db.DistanceCosine, opts.M, opts.EFConstruction).
		Build()
	if err != nil {
		return nil, fmt.Errorf("chunk index definition: %w", err)
	}
	return def, nil
}

// EnsureIndex creates the chunk index unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context, opts IndexOptions) (bool, error) {
	def, err := r.IndexDefinition(opts)
	if err != nil {
		return false, err
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("%w: create index: %w", domain.ErrStoreUnavailable, err)
	}
	return true, nil
}

// DropIndex removes the chunk index, keeping the stored hashes.
func (r *Repo) DropIndex(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.keys.IndexName()); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("%w: drop index: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// WriteChunks upserts chunks in one pipelined round-trip.
func (r *Repo) WriteChunks(ctx context.Context, docs []document.Document) error {
	if len(docs) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, len(docs))
	for i, d := range docs {
		items[i] = db.HashSetItem{Key: r.keys.ChunkKey(d.ID()), Fields: ToHash(d)}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("%w: write chunks: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Get loads a stored chunk by ID.
func (r *Repo) Get(ctx context.Context, id string) (document.Document, error) {
	fields, err := r.store.HGetAll(ctx, r.keys.ChunkKey(id))
	if err != nil {
		return document.Document{}, fmt.Errorf("%w: get chunk %s: %w", domain.ErrStoreUnavailable, id, err)
	}
	if len(fields) == 0 {
		return document.Document{}, fmt.Errorf("chunk %s: %w", id, db.ErrKeyNotFound)
	}
	return FromHash(id, fields), nil
}

// Count returns the number of indexed chunks.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.keys.IndexName(), "*")
	if err != nil {
		return 0, fmt.Errorf("%w: count chunks: %w", domain.ErrStoreUnavailable, err)
	}
	return n, nil
}
