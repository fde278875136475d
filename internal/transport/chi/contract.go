package chi

import (
	"context"

	"github.com/kailas-cloud/mailrag/internal/domain/evidence"
	domusage "github.com/kailas-cloud/mailrag/internal/domain/usage"
	draftuc "github.com/kailas-cloud/mailrag/internal/usecase/draft"
	healthuc "github.com/kailas-cloud/mailrag/internal/usecase/health"
)

// Drafter produces a reply for an inbound mail.
type Drafter interface {
	Draft(ctx context.Context, req draftuc.Request) (draftuc.Result, error)
}

// Retriever runs hybrid retrieval without generation.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (evidence.Set, error)
}

// HealthReporter aggregates component checks.
type HealthReporter interface {
	Check(ctx context.Context) healthuc.Report
}

// UsageReporter reports token consumption per provider.
type UsageReporter interface {
	GetReports(ctx context.Context, period domusage.Period) []domusage.Report
}
