package retrieval

import (
	"slices"

	"github.com/kailas-cloud/mailrag/internal/domain/document"
	"github.com/kailas-cloud/mailrag/internal/domain/evidence"
)

// rankScore converts a 0-based rank into a weighted reciprocal-rank score.
func rankScore(weight float64, rank int, smoothing float64) float64 {
	return weight / (float64(rank) + smoothing)
}

// toHits ranks documents in store order. A repeated ID keeps its first (best) rank.
// Ranks are store positions, so a dropped repeat leaves a gap (0, 2, 3); keep the
// gap rather than renumbering, it matches the store's own array index.
func toHits(docs []document.Document) []evidence.Hit {
	hits := make([]evidence.Hit, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for rank, d := range docs {
		if _, ok := seen[d.ID()]; ok {
			continue
		}
		seen[d.ID()] = struct{}{}
		hits = append(hits, evidence.Hit{Doc: d, Rank: rank})
	}
	return hits
}

// fuse merges both paths by document ID with weighted reciprocal-rank fusion.
// A document missing from a path scores 0 on it. The result is sorted by combined
// score descending; ties keep first-encountered order, vector hits first.
func fuse(vector, keyword []evidence.Hit, cfg Config) []evidence.Scored {
	acc := make(map[string]*evidence.Scored, len(vector)+len(keyword))
	order := make([]*evidence.Scored, 0, len(vector)+len(keyword))

	entry := func(d document.Document) *evidence.Scored {
		if s, ok := acc[d.ID()]; ok {
			return s
		}
		s := &evidence.Scored{Doc: d}
		acc[d.ID()] = s
		order = append(order, s)
		return s
	}

	for _, h := range vector {
		entry(h.Doc).VectorScore = rankScore(cfg.VectorWeight, h.Rank, cfg.RankSmoothing)
	}
	for _, h := range keyword {
		entry(h.Doc).KeywordScore = rankScore(cfg.KeywordWeight, h.Rank, cfg.RankSmoothing)
	}

	fused := make([]evidence.Scored, len(order))
	for i, s := range order {
		fused[i] = *s
	}

	slices.SortStableFunc(fused, func(a, b evidence.Scored) int {
		ca, cb := a.Combined(), b.Combined()
		switch {
		case ca > cb:
			return -1
		case ca < cb:
			return 1
		default:
			return 0
		}
	})

	if len(fused) > cfg.OutputLimit {
		fused = fused[:cfg.OutputLimit]
	}
	return fused
}
