package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a failing dependency; local search still works.
	Degraded Status = "degraded"
	// Unhealthy indicates the local index directory is unusable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Check names.
const (
	CheckLocal     = "index_storage"
	CheckBlob      = "blob_store"
	CheckEmbedding = "embedding"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	local     LocalChecker
	blob      BlobPinger
	embedding EmbeddingChecker
}

// New creates a Service. blob and embedding can be nil.
func New(local LocalChecker, blob BlobPinger, embedding EmbeddingChecker) *Service {
	return &Service{local: local, blob: blob, embedding: embedding}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks[CheckLocal] = result(s.local.Init())
	if s.blob != nil {
		checks[CheckBlob] = result(s.blob.Ping(ctx))
	}
	if s.embedding != nil {
		checks[CheckEmbedding] = result(s.embedding.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[CheckLocal] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
