package retrieval

import (
	"errors"
	"fmt"
)

// Default ranking parameters.
const (
	DefaultVectorCandidateLimit = 600
	DefaultVectorResultLimit    = 50
	DefaultKeywordResultLimit   = 20
	DefaultOutputLimit          = 10
	DefaultVectorWeight         = 0.1
	DefaultKeywordWeight        = 0.9
	DefaultRankSmoothing        = 60
)

// DefaultKeywords is the domain keyword set used by the keyword path.
var DefaultKeywords = []string{"ESG"}

// Config holds hybrid ranking parameters.
type Config struct {
	VectorCandidateLimit int
	VectorResultLimit    int
	KeywordResultLimit   int
	OutputLimit          int
	VectorWeight         float64
	KeywordWeight        float64
	RankSmoothing        float64
	// Keywords is the fixed keyword set searched on every request.
	Keywords []string
	// KeywordFromQuery searches the live query text instead of Keywords.
	KeywordFromQuery bool
	// Dimensions is the expected query vector length. Zero disables the check.
	Dimensions int
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		VectorCandidateLimit: DefaultVectorCandidateLimit,
		VectorResultLimit:    DefaultVectorResultLimit,
		KeywordResultLimit:   DefaultKeywordResultLimit,
		OutputLimit:          DefaultOutputLimit,
		VectorWeight:         DefaultVectorWeight,
		KeywordWeight:        DefaultKeywordWeight,
		RankSmoothing:        DefaultRankSmoothing,
		Keywords:             append([]string(nil), DefaultKeywords...),
	}
}

// Validate checks the parameters are usable.
func (c Config) Validate() error {
	var errs []error
	if c.VectorCandidateLimit < c.VectorResultLimit {
		errs = append(errs, fmt.Errorf("vector candidate limit %d below result limit %d",
			c.VectorCandidateLimit, c.VectorResultLimit))
	}
	if c.VectorResultLimit < 0 || c.KeywordResultLimit < 0 {
		errs = append(errs, errors.New("path result limits must be non-negative"))
	}
	if c.OutputLimit <= 0 {
		errs = append(errs, errors.New("output limit must be positive"))
	}
	if c.VectorWeight < 0 || c.KeywordWeight < 0 {
		errs = append(errs, errors.New("path weights must be non-negative"))
	}
	if c.RankSmoothing <= 0 {
		errs = append(errs, errors.New("rank smoothing must be positive"))
	}
	if c.Dimensions < 0 {
		errs = append(errs, errors.New("dimensions must be non-negative"))
	}
	return errors.Join(errs...)
}
