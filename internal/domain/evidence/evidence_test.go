package evidence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kailas-cloud/mailrag/internal/domain/document"
)

func doc(id, source string, page int) document.Document {
	return document.Reconstruct(id, "content "+id, nil, false, "", source, page)
}

func TestScored_Combined(t *testing.T) {
	s := Scored{VectorScore: 0.1 / 60, KeywordScore: 0.9 / 60}
	assert.InDelta(t, 0.016667, s.Combined(), 1e-6)

	vectorOnly := Scored{VectorScore: 0.1 / 60}
	assert.Equal(t, vectorOnly.VectorScore, vectorOnly.Combined())
}

func TestSet_CitationsDedup(t *testing.T) {
	set := NewSet([]Scored{
		{Doc: doc("a", "r.pdf", 1)},
		{Doc: doc("b", "r.pdf", 1)},
		{Doc: doc("c", "r.pdf", 2)},
		{Doc: doc("d", "s.pdf", 1)},
	})

	got := set.Citations()
	assert.Equal(t, []document.Citation{
		{Source: "r.pdf", Page: 1},
		{Source: "r.pdf", Page: 2},
		{Source: "s.pdf", Page: 1},
	}, got)
	assert.LessOrEqual(t, len(got), set.Len())
}

func TestSet_Empty(t *testing.T) {
	var set Set
	assert.Equal(t, 0, set.Len())
	assert.Empty(t, set.Citations())
	assert.Empty(t, set.Documents())
	assert.False(t, set.IsDegraded())
}

func TestSet_Degraded(t *testing.T) {
	set := NewSet(nil, PathKeyword)
	assert.True(t, set.IsDegraded())
	assert.Equal(t, []Path{PathKeyword}, set.Degraded())
}

func TestSet_DocumentsKeepOrder(t *testing.T) {
	set := NewSet([]Scored{{Doc: doc("b", "x", 1)}, {Doc: doc("a", "x", 2)}})
	docs := set.Documents()
	assert.Equal(t, "b", docs[0].ID())
	assert.Equal(t, "a", docs[1].ID())
}
