package chunk

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/mailrag/internal/db"
	"github.com/kailas-cloud/mailrag/internal/domain"
	"github.com/kailas-cloud/mailrag/internal/domain/document"
)

func TestKeys(t *testing.T) {
	k := Keys{Prefix: "mailrag:"}
	assert.Equal(t, "mailrag:chunks:idx", k.IndexName())
	assert.Equal(t, "mailrag:chunk:", k.ChunkPrefix())
	assert.Equal(t, "mailrag:chunk:abc", k.ChunkKey("abc"))
	assert.Equal(t, "abc", k.ChunkID("mailrag:chunk:abc"))
	assert.Equal(t, "other:abc", k.ChunkID("other:abc"))
}

func TestHashRoundTrip(t *testing.T) {
	d, err := document.New("c1", "ESG report text", "report.pdf", 3)
	require.NoError(t, err)
	d = d.WithEmbedding([]float32{0.5, -1}).WithImage("aGVsbG8=")

	fields := ToHash(d)
	assert.Equal(t, "true", fields[FieldIsImage])
	assert.Equal(t, "3", fields[FieldPage])

	got := FromHash("c1", fields)
	assert.Equal(t, d.Content(), got.Content())
	assert.Equal(t, d.Source(), got.Source())
	assert.Equal(t, 3, got.Page())
	assert.True(t, got.IsImage())
	assert.Equal(t, "aGVsbG8=", got.Image())
	assert.Equal(t, []float32{0.5, -1}, got.Embedding())
}

func TestToHash_TextChunkOmitsImage(t *testing.T) {
	d, err := document.New("c1", "text", "a.pdf", 0)
	require.NoError(t, err)

	fields := ToHash(d)
	assert.Equal(t, "false", fields[FieldIsImage])
	assert.NotContains(t, fields, FieldImage)
	assert.NotContains(t, fields, FieldVector)
}

func TestFromHash_MalformedPage(t *testing.T) {
	got := FromHash("x", map[string]string{FieldContent: "c", FieldSource: "s", FieldPage: "n/a"})
	assert.Equal(t, 0, got.Page())
	assert.False(t, got.IsImage())
}

func TestEnsureIndex_Created(t *testing.T) {
	repo, ms := newTestRepo(t)
	var captured *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		captured = def
		return nil
	}

	created, err := repo.EnsureIndex(context.Background(), testIndexOptions)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, captured)
	assert.Equal(t, "mailrag:chunks:idx", captured.Name)
	assert.Equal(t, []string{"mailrag:chunk:"}, captured.Prefixes)
	require.Len(t, captured.Fields, 5)
	assert.Equal(t, FieldVector, captured.Fields[4].Name)
	assert.Equal(t, 4, captured.Fields[4].VectorDim)
}

func TestEnsureIndex_AlreadyExists(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.createIndexFn = func(context.Context, *db.IndexDefinition) error {
		return &db.Error{Op: db.OpCreateIndex, Err: db.ErrIndexExists}
	}

	created, err := repo.EnsureIndex(context.Background(), testIndexOptions)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestEnsureIndex_InvalidDimensions(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.EnsureIndex(context.Background(), IndexOptions{Dimensions: 0})
	require.Error(t, err)
}

func TestEnsureIndex_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.createIndexFn = func(context.Context, *db.IndexDefinition) error {
		return errors.New("connection refused")
	}

	_, err := repo.EnsureIndex(context.Background(), testIndexOptions)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestDropIndex_NotFoundIsNoop(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.dropIndexFn = func(context.Context, string) error { return db.ErrIndexNotFound }

	require.NoError(t, repo.DropIndex(context.Background()))
}

func TestWriteChunks(t *testing.T) {
	repo, ms := newTestRepo(t)
	var got []db.HashSetItem
	ms.hsetMultiFn = func(_ context.Context, items []db.HashSetItem) error {
		got = items
		return nil
	}

	a, _ := document.New("a", "first", "a.pdf", 1)
	b, _ := document.New("b", "second", "b.pdf", 2)
	require.NoError(t, repo.WriteChunks(context.Background(), []document.Document{a, b}))

	require.Len(t, got, 2)
	assert.Equal(t, "mailrag:chunk:a", got[0].Key)
	assert.Equal(t, "second", got[1].Fields[FieldContent])
}

func TestWriteChunks_EmptySkipsStore(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hsetMultiFn = func(context.Context, []db.HashSetItem) error {
		t.Fatal("store should not be called")
		return nil
	}
	require.NoError(t, repo.WriteChunks(context.Background(), nil))
}

func TestWriteChunks_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hsetMultiFn = func(context.Context, []db.HashSetItem) error { return errors.New("boom") }

	a, _ := document.New("a", "first", "a.pdf", 1)
	err := repo.WriteChunks(context.Background(), []document.Document{a})
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestGet(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		if key != "mailrag:chunk:a" {
			return map[string]string{}, nil
		}
		return map[string]string{FieldContent: "first", FieldSource: "a.pdf", FieldPage: "1"}, nil
	}

	d, err := repo.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "first", d.Content())

	_, err = repo.Get(context.Background(), "missing")
	require.ErrorIs(t, err, db.ErrKeyNotFound)
}

func TestCount(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchCountFn = func(_ context.Context, index, query string) (int, error) {
		assert.Equal(t, "mailrag:chunks:idx", index)
		assert.Equal(t, "*", query)
		return 42, nil
	}

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}
