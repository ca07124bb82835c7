package health

import "context"

// IndexPinger checks vector index availability.
type IndexPinger interface {
	Ping(ctx context.Context) error
}

// ContentPinger checks authoritative content store availability.
type ContentPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
