// Package atlas stores and searches chunks in a MongoDB Atlas collection using
// $vectorSearch for the vector path and Atlas Search for the keyword path.
package atlas

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mailrag/internal/domain"
	"github.com/kailas-cloud/mailrag/internal/domain/document"
)

// Default Atlas index names.
const (
	DefaultVectorIndex = "cosine_search"
	DefaultTextIndex   = "name_search"
)

// Config describes the Atlas deployment.
type Config struct {
	URI         string
	Database    string
	Collection  string
	VectorIndex string
	TextIndex   string
}

// Repo implements the retrieval store and the ingest chunk writer on a Mongo collection.
type Repo struct {
	coll        *mongo.Collection
	vectorIndex string
	textIndex   string
	logger      *zap.Logger
}

// Connect dials the cluster, verifies it answers, and returns a repo over the configured collection.
func Connect(ctx context.Context, cfg Config, timeout time.Duration, logger *zap.Logger) (*Repo, *mongo.Client, error) {
	if cfg.URI == "" || cfg.Database == "" || cfg.Collection == "" {
		return nil, nil, fmt.Errorf("atlas: uri, database and collection are required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetTimeout(timeout))
	if err != nil {
		return nil, nil, fmt.Errorf("atlas connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("atlas ping: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	return New(coll, cfg.VectorIndex, cfg.TextIndex, logger), client, nil
}

// New wraps an existing collection. Empty index names fall back to the defaults.
func New(coll *mongo.Collection, vectorIndex, textIndex string, logger *zap.Logger) *Repo {
	if vectorIndex == "" {
		vectorIndex = DefaultVectorIndex
	}
	if textIndex == "" {
		textIndex = DefaultTextIndex
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{coll: coll, vectorIndex: vectorIndex, textIndex: textIndex, logger: logger}
}

// VectorSearch returns up to resultLimit chunks nearest to vector.
func (r *Repo) VectorSearch(
	ctx context.Context, vector []float32, candidateLimit, resultLimit int,
) ([]document.Document, error) {
	docs, err := r.aggregate(ctx, vectorPipeline(r.vectorIndex, vector, candidateLimit, resultLimit))
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %w", domain.ErrStoreUnavailable, err)
	}
	return docs, nil
}

// KeywordSearch returns up to resultLimit chunks matching any keyword, best text score first.
func (r *Repo) KeywordSearch(ctx context.Context, keywords []string, resultLimit int) ([]document.Document, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	docs, err := r.aggregate(ctx, keywordPipeline(r.textIndex, keywords, resultLimit))
	if err != nil {
		return nil, fmt.Errorf("%w: keyword search: %w", domain.ErrStoreUnavailable, err)
	}
	return docs, nil
}

func (r *Repo) aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]document.Document, error) {
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	defer func() { _ = cur.Close(context.Background()) }()

	var rows []chunkDoc
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	docs := make([]document.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row.toDocument())
	}
	return docs, nil
}

// WriteChunks upserts chunks by ID in a single unordered bulk write.
func (r *Repo) WriteChunks(ctx context.Context, docs []document.Document) error {
	if len(docs) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, len(docs))
	for i, d := range docs {
		models[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "_id", Value: d.ID()}}).
			SetReplacement(toChunkDoc(d)).
			SetUpsert(true)
	}

	res, err := r.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("%w: write chunks: %w", domain.ErrStoreUnavailable, err)
	}
	r.logger.Debug("Chunks written",
		zap.Int64("upserted", res.UpsertedCount),
		zap.Int64("modified", res.ModifiedCount),
	)
	return nil
}

// Count returns the number of stored chunks.
func (r *Repo) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("%w: count chunks: %w", domain.ErrStoreUnavailable, err)
	}
	return n, nil
}

// Ping checks that the cluster answers.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.coll.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("atlas ping: %w", err)
	}
	return nil
}
