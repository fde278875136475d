package domain

import "errors"

var (
	// ErrInvalidRequest signals a malformed inbound request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEmbeddingFailure signals that the query could not be vectorized.
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrStoreUnavailable signals a failed document store call on one search path.
	ErrStoreUnavailable = errors.New("document store unavailable")
	// ErrRetrievalFailure signals that no evidence could be gathered at all.
	ErrRetrievalFailure = errors.New("retrieval failure")
	// ErrGenerationFailure signals a failed generation model call.
	ErrGenerationFailure = errors.New("generation failure")
	// ErrRateLimited signals a provider rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrQuotaExceeded signals an exhausted daily or monthly token budget.
	ErrQuotaExceeded = errors.New("token quota exceeded")
)
