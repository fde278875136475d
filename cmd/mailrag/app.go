package main

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mailrag/internal/config"
	redisdb "github.com/kailas-cloud/mailrag/internal/db/redis"
	"github.com/kailas-cloud/mailrag/internal/domain"
	"github.com/kailas-cloud/mailrag/internal/domain/document"
	"github.com/kailas-cloud/mailrag/internal/metrics"
	"github.com/kailas-cloud/mailrag/internal/repository/atlas"
	budgetrepo "github.com/kailas-cloud/mailrag/internal/repository/budget"
	"github.com/kailas-cloud/mailrag/internal/repository/chunk"
	"github.com/kailas-cloud/mailrag/internal/repository/embcache"
	"github.com/kailas-cloud/mailrag/internal/repository/search"
	openaiTransport "github.com/kailas-cloud/mailrag/internal/transport/openai"
	budgetuc "github.com/kailas-cloud/mailrag/internal/usecase/budget"
	draftuc "github.com/kailas-cloud/mailrag/internal/usecase/draft"
	embeddinguc "github.com/kailas-cloud/mailrag/internal/usecase/embedding"
	generationuc "github.com/kailas-cloud/mailrag/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/mailrag/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/mailrag/internal/usecase/ingest"
	"github.com/kailas-cloud/mailrag/internal/usecase/retrieval"
	usageuc "github.com/kailas-cloud/mailrag/internal/usecase/usage"
)

// generationProvider names the chat completion budget, separate from the embedding one.
const generationProvider = "openai-chat"

// Budget counter key lifetimes: one spare day / one spare month after the period ends.
const (
	budgetDailyTTL   = 48 * time.Hour
	budgetMonthlyTTL = 62 * 24 * time.Hour
)

// chunkStore is what the selected document store backend provides.
type chunkStore interface {
	retrieval.Store
	ingestuc.ChunkWriter
	healthuc.DBPinger
}

// redisChunkStore joins the Redis search and write repositories into one backend.
type redisChunkStore struct {
	*search.Repo
	chunks *chunk.Repo
	store  *redisdb.Store
}

func (r *redisChunkStore) WriteChunks(ctx context.Context, docs []document.Document) error {
	return r.chunks.WriteChunks(ctx, docs)
}

func (r *redisChunkStore) Ping(ctx context.Context) error { return r.store.Ping(ctx) }

// app is the composition root shared by every subcommand.
type app struct {
	cfg    config.Config
	logger *zap.Logger

	redis  *redisdb.Store // nil unless Redis is configured
	mongo  *mongo.Client  // nil unless the atlas driver is selected
	chunks *chunk.Repo    // nil unless the redis driver is selected
	store  chunkStore

	queryEmbedder domain.Embedder
	docEmbedder   domain.Embedder
	baseEmbedder  *openaiTransport.Embedder
	generator     *openaiTransport.Generator

	retrieval *retrieval.Service
	draft     *draftuc.Service
	ingest    *ingestuc.Service
	health    *healthuc.Service
	usage     *usageuc.Service
}

// newApp connects the document store and assembles the services.
func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()
	metrics.RegisterGenerationMetrics()

	if err := a.connect(ctx); err != nil {
		a.Close()
		return nil, err
	}

	embBudget := a.newTracker(ctx, cfg.Embedding.Provider, cfg.Embedding.Budget)
	genBudget := a.newTracker(ctx, generationProvider, cfg.Generation.Budget)

	a.buildEmbedders(embBudget)

	a.generator = openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:      cfg.Generation.APIKey,
		BaseURL:     cfg.Generation.BaseURL,
		Model:       cfg.Generation.Model,
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: *cfg.Generation.Temperature,
		Logger:      logger,
	})
	generator := generationuc.NewInstrumentedGenerator(a.generator, generationProvider, genBudget, logger)

	rcfg := retrievalConfig(cfg)
	if err := rcfg.Validate(); err != nil {
		a.Close()
		return nil, fmt.Errorf("retrieval config: %w", err)
	}
	a.retrieval = retrieval.New(a.store, a.queryEmbedder, rcfg, logger)
	a.draft = draftuc.New(a.retrieval, generator, logger)
	a.ingest = ingestuc.New(a.store, a.docEmbedder, logger).WithMaxBatchSize(cfg.Index.MaxBatchSize)
	a.health = healthuc.New(a.store).
		WithChecker("embedding", a.baseEmbedder).
		WithChecker("generation", a.generator)
	a.usage = usageuc.New(embBudget, genBudget)

	logger.Info("Services assembled",
		zap.String("driver", cfg.Database.Driver),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("generation_model", a.generator.Model()),
		zap.Bool("query_cache", cfg.Embedding.CacheTTLSec > 0 && a.redis != nil),
	)
	return a, nil
}

func (a *app) connect(ctx context.Context) error {
	cfg := a.cfg
	timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second

	// Redis carries the chunk index for the redis driver, and the query cache and
	// budget counters for any driver when addresses are configured.
	if len(cfg.Database.Addrs) > 0 {
		store, err := redisdb.NewStore(redisdb.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return fmt.Errorf("create redis store: %w", err)
		}
		a.redis = store
		if err := store.WaitForReady(ctx, timeout); err != nil {
			return fmt.Errorf("redis not ready: %w", err)
		}
		a.logger.Info("Connected to redis", zap.Strings("addrs", cfg.Database.Addrs))
	}

	switch cfg.Database.Driver {
	case config.DriverRedis:
		keys := chunk.Keys{Prefix: cfg.Storage.KeyPrefix}
		a.chunks = chunk.New(a.redis, keys)
		a.store = &redisChunkStore{
			Repo:   search.New(a.redis, keys),
			chunks: a.chunks,
			store:  a.redis,
		}
	case config.DriverAtlas:
		repo, client, err := atlas.Connect(ctx, atlas.Config{
			URI:         cfg.Database.URI,
			Database:    cfg.Database.Database,
			Collection:  cfg.Database.Collection,
			VectorIndex: cfg.Database.VectorIndex,
			TextIndex:   cfg.Database.TextIndex,
		}, timeout, a.logger)
		if err != nil {
			return err
		}
		a.mongo = client
		a.store = repo
		a.logger.Info("Connected to atlas",
			zap.String("database", cfg.Database.Database),
			zap.String("collection", cfg.Database.Collection),
		)
	default:
		return fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	return nil
}

// newTracker counts usage for every provider; limits apply only when configured.
func (a *app) newTracker(ctx context.Context, provider string, bc config.BudgetConfig) *budgetuc.Tracker {
	t := budgetuc.NewTracker(budgetuc.Options{
		Provider:     provider,
		KeyPrefix:    a.cfg.Storage.KeyPrefix,
		DailyLimit:   bc.DailyTokenLimit,
		MonthlyLimit: bc.MonthlyTokenLimit,
		Action:       budgetuc.ParseAction(bc.Action),
	}, a.logger)
	if a.redis != nil {
		t.WithStore(ctx, budgetrepo.New(a.redis, budgetDailyTTL, budgetMonthlyTTL))
	}
	if bc.Enabled() {
		a.logger.Info("Token budget enforced",
			zap.String("provider", provider),
			zap.Int64("daily_limit", bc.DailyTokenLimit),
			zap.Int64("monthly_limit", bc.MonthlyTokenLimit),
			zap.String("action", string(budgetuc.ParseAction(bc.Action))),
		)
	}
	return t
}

// buildEmbedders assembles the decorator chains:
// query: OpenAI -> Cached -> Instrumented -> Instruction; documents: OpenAI -> Instrumented.
func (a *app) buildEmbedders(budget *budgetuc.Tracker) {
	cfg := a.cfg.Embedding
	a.baseEmbedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     a.logger,
	})

	var query domain.Embedder = a.baseEmbedder
	if a.redis != nil && cfg.CacheTTLSec > 0 {
		query = embcache.New(a.baseEmbedder, a.redis, embcache.Options{
			Prefix: a.cfg.Storage.KeyPrefix,
			Model:  cfg.Model,
			TTL:    time.Duration(cfg.CacheTTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, a.logger)
	}
	query = embeddinguc.NewInstrumentedEmbedder(query, cfg.Provider, cfg.Model, budget, a.logger)
	if cfg.QueryInstruction != "" {
		query = domain.NewInstructionEmbedder(query, cfg.QueryInstruction)
	}
	a.queryEmbedder = query

	a.docEmbedder = embeddinguc.NewInstrumentedEmbedder(a.baseEmbedder, cfg.Provider, cfg.Model, budget, a.logger)
}

// ensureIndex creates the Redis chunk index. Atlas indexes are managed in Atlas itself.
func (a *app) ensureIndex(ctx context.Context) error {
	if a.chunks == nil {
		return nil
	}
	created, err := a.chunks.EnsureIndex(ctx, chunk.IndexOptions{
		Dimensions:     a.cfg.Embedding.Dimensions,
		M:              a.cfg.Index.HNSWM,
		EFConstruction: a.cfg.Index.HNSWEFConstruct,
	})
	if err != nil {
		return fmt.Errorf("ensure chunk index: %w", err)
	}
	if created {
		a.logger.Info("Chunk index created", zap.Int("dimensions", a.cfg.Embedding.Dimensions))
	}
	return nil
}

// Close releases store connections.
func (a *app) Close() {
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mongo.Disconnect(ctx); err != nil {
			a.logger.Warn("Atlas disconnect failed", zap.Error(err))
		}
	}
	if a.redis != nil {
		a.redis.Close()
	}
}

func retrievalConfig(cfg config.Config) retrieval.Config {
	r := cfg.Retrieval
	return retrieval.Config{
		VectorCandidateLimit: r.VectorCandidateLimit,
		VectorResultLimit:    r.VectorResultLimit,
		KeywordResultLimit:   r.KeywordResultLimit,
		OutputLimit:          r.OutputLimit,
		VectorWeight:         *r.VectorWeight,
		KeywordWeight:        *r.KeywordWeight,
		RankSmoothing:        r.RankSmoothing,
		Keywords:             r.Keywords,
		KeywordFromQuery:     r.KeywordFromQuery,
		Dimensions:           cfg.Embedding.Dimensions,
	}
}
