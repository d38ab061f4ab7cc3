package ledger

import (
	"context"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/erp/lotledger/internal/application/ledger")

// Metrics receives ledger commit outcomes
type Metrics interface {
	// EventsCommitted counts events written for a source type
	EventsCommitted(ctx context.Context, sourceType string, count int)
	// DuplicateSuppressed counts operations answered from the log
	DuplicateSuppressed(ctx context.Context)
	// CommitRetried counts attempts repeated after a version conflict
	CommitRetried(ctx context.Context)
	// CommitRejected counts commits refused with a domain error code
	CommitRejected(ctx context.Context, code string)
}

type noopMetrics struct{}

func (noopMetrics) EventsCommitted(context.Context, string, int) {}
func (noopMetrics) DuplicateSuppressed(context.Context)          {}
func (noopMetrics) CommitRetried(context.Context)                {}
func (noopMetrics) CommitRejected(context.Context, string)       {}
