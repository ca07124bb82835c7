// Package health aggregates per-backend availability checks into a single
// service status.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	index     IndexPinger
	content   ContentPinger
	embedding EmbeddingChecker
}

// New creates a Service. content and embedding can be nil.
func New(index IndexPinger, content ContentPinger, embedding EmbeddingChecker) *Service {
	return &Service{index: index, content: content, embedding: embedding}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.index.Ping(ctx); err != nil {
		checks["vector_index"] = CheckError
	} else {
		checks["vector_index"] = CheckOK
	}

	if s.content != nil {
		if err := s.content.Ping(ctx); err != nil {
			checks["content_store"] = CheckError
		} else {
			checks["content_store"] = CheckOK
		}
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
