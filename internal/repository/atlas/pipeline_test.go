package atlas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kailas-cloud/mailrag/internal/domain/document"
)

func stageValue(t *testing.T, stage bson.D, key string) bson.D {
	t.Helper()
	require.Len(t, stage, 1)
	require.Equal(t, key, stage[0].Key)
	v, ok := stage[0].Value.(bson.D)
	require.True(t, ok, "stage %s value is %T", key, stage[0].Value)
	return v
}

func lookup(d bson.D, key string) any {
	for _, e := range d {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

func TestVectorPipeline(t *testing.T) {
	vec := []float32{0.1, 0.2}
	p := vectorPipeline("cosine_search", vec, 600, 50)
	require.Len(t, p, 2)

	vs := stageValue(t, p[0], "$vectorSearch")
	assert.Equal(t, "cosine_search", lookup(vs, "index"))
	assert.Equal(t, FieldEmbedding, lookup(vs, "path"))
	assert.Equal(t, vec, lookup(vs, "queryVector"))
	assert.Equal(t, 600, lookup(vs, "numCandidates"))
	assert.Equal(t, 50, lookup(vs, "limit"))

	proj := stageValue(t, p[1], "$project")
	assert.Nil(t, lookup(proj, FieldEmbedding), "embedding must not be returned")
	assert.Equal(t, 1, lookup(proj, FieldContent))
}

func TestVectorPipeline_CandidatesNeverBelowLimit(t *testing.T) {
	p := vectorPipeline("idx", []float32{1}, 5, 50)
	vs := stageValue(t, p[0], "$vectorSearch")
	assert.Equal(t, 50, lookup(vs, "numCandidates"))
}

func TestKeywordPipeline(t *testing.T) {
	p := keywordPipeline("name_search", []string{"ESG", "climate"}, 20)
	require.Len(t, p, 3)

	search := stageValue(t, p[0], "$search")
	assert.Equal(t, "name_search", lookup(search, "index"))
	text, ok := lookup(search, "text").(bson.D)
	require.True(t, ok)
	assert.Equal(t, "ESG climate", lookup(text, "query"))
	assert.Equal(t, FieldContent, lookup(text, "path"))

	require.Len(t, p[1], 1)
	assert.Equal(t, "$limit", p[1][0].Key)
	assert.Equal(t, 20, p[1][0].Value)
}

func TestChunkDocRoundTrip(t *testing.T) {
	d := document.Reconstruct("c1", "chart", []float32{1, 2}, true, "aW1n", "report.pdf", 7)
	got := toChunkDoc(d).toDocument()

	assert.Equal(t, "c1", got.ID())
	assert.Equal(t, "chart", got.Content())
	assert.Equal(t, "report.pdf", got.Source())
	assert.Equal(t, 7, got.Page())
	assert.True(t, got.IsImage())
	assert.Equal(t, "aW1n", got.Image())
	assert.Equal(t, []float32{1, 2}, got.Embedding())
}

func TestIDString(t *testing.T) {
	oid := primitive.NewObjectID()
	assert.Equal(t, oid.Hex(), idString(oid))
	assert.Equal(t, "abc", idString("abc"))
	assert.Equal(t, "", idString(nil))
	assert.Equal(t, "42", idString(int32(42)))
}
