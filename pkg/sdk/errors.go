package pensieve

import "github.com/pensieve-cloud/pensieve/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrEmptyQuery        = domain.ErrEmptyQuery
	ErrInvalidFilter     = domain.ErrInvalidFilter
	ErrUpstream          = domain.ErrUpstream
	ErrEmbeddingProvider = domain.ErrEmbeddingProvider
)
