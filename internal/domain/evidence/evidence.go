// Package evidence holds the request-scoped ranking values produced by hybrid retrieval.
package evidence

import "github.com/kailas-cloud/mailrag/internal/domain/document"

// Path names one of the two independent search paths.
type Path string

const (
	// PathVector is nearest-neighbour search over stored embeddings.
	PathVector Path = "vector"
	// PathKeyword is full-text search over document content.
	PathKeyword Path = "keyword"
)

// Hit is a document annotated with its 0-based rank on one search path.
type Hit struct {
	Doc  document.Document
	Rank int
}

// Scored is a document with per-path reciprocal-rank scores.
// A path that did not return the document contributes exactly 0.
type Scored struct {
	Doc          document.Document
	VectorScore  float64
	KeywordScore float64
}

// Combined returns the fused score.
func (s Scored) Combined() float64 {
	return s.VectorScore + s.KeywordScore
}

// Set is an ordered, duplicate-free list of scored evidence.
type Set struct {
	entries  []Scored
	degraded []Path
}

// NewSet wraps already ordered entries. degraded lists the paths that failed.
func NewSet(entries []Scored, degraded ...Path) Set {
	return Set{entries: entries, degraded: degraded}
}

// Entries returns the evidence in descending combined score order.
func (s Set) Entries() []Scored { return s.entries }

// Len returns the number of evidence items.
func (s Set) Len() int { return len(s.entries) }

// Degraded returns the search paths that failed while building the set.
func (s Set) Degraded() []Path { return s.degraded }

// IsDegraded reports whether the set was built from a single path after the other failed.
func (s Set) IsDegraded() bool { return len(s.degraded) > 0 }

// Documents returns the evidence documents in order.
func (s Set) Documents() []document.Document {
	docs := make([]document.Document, len(s.entries))
	for i, e := range s.entries {
		docs[i] = e.Doc
	}
	return docs
}

// Citations returns the distinct (source, page) pairs of the emitted evidence in first-seen order.
func (s Set) Citations() []document.Citation {
	seen := make(map[document.Citation]struct{}, len(s.entries))
	out := make([]document.Citation, 0, len(s.entries))
	for _, e := range s.entries {
		c := e.Doc.Citation()
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
