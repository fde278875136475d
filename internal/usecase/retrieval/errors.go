package retrieval

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/mailrag/internal/domain"
	"github.com/kailas-cloud/mailrag/internal/domain/evidence"
)

// EmbeddingError reports a query that could not be vectorized.
type EmbeddingError struct {
	Reason string
	Err    error
}

func (e *EmbeddingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("embed query: %s: %v", e.Reason, e.Err)
	}
	return "embed query: " + e.Reason
}

func (e *EmbeddingError) Unwrap() []error {
	if e.Err != nil {
		return []error{domain.ErrEmbeddingFailure, e.Err}
	}
	return []error{domain.ErrEmbeddingFailure}
}

// PathError reports the failure of a single search path.
type PathError struct {
	Path evidence.Path
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s path: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// StoreError reports that both search paths failed and no evidence exists.
type StoreError struct {
	Vector  *PathError
	Keyword *PathError
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("retrieval failed: %v; %v", e.Vector, e.Keyword)
}

func (e *StoreError) Unwrap() []error {
	return []error{domain.ErrRetrievalFailure, errors.Join(e.Vector, e.Keyword)}
}
