package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// LedgerMetrics records ledger commit outcomes as OpenTelemetry counters
type LedgerMetrics struct {
	eventsCommitted     *Counter
	duplicatesSuppressed *Counter
	commitRetries       *Counter
	commitRejections    *Counter
	importRows          *Counter
}

// NewLedgerMetrics creates the ledger counters on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &LedgerMetrics{}
	var err error
	if m.eventsCommitted, err = NewCounter(meter, "ledger.events.committed",
		"Ledger events appended, by source type", "{event}"); err != nil {
		return nil, err
	}
	if m.duplicatesSuppressed, err = NewCounter(meter, "ledger.duplicates.suppressed",
		"Operations answered from the log instead of being applied again", "{operation}"); err != nil {
		return nil, err
	}
	if m.commitRetries, err = NewCounter(meter, "ledger.commit.retries",
		"Commit attempts repeated after a version conflict", "{attempt}"); err != nil {
		return nil, err
	}
	if m.commitRejections, err = NewCounter(meter, "ledger.commit.rejections",
		"Commits refused, by error code", "{operation}"); err != nil {
		return nil, err
	}
	if m.importRows, err = NewCounter(meter, "ledger.import.rows",
		"Import rows by kind and outcome", "{row}"); err != nil {
		return nil, err
	}
	return m, nil
}

// EventsCommitted implements ledger.Metrics
func (m *LedgerMetrics) EventsCommitted(ctx context.Context, sourceType string, count int) {
	m.eventsCommitted.Add(ctx, int64(count), AttrSourceType.String(sourceType))
}

// DuplicateSuppressed implements ledger.Metrics
func (m *LedgerMetrics) DuplicateSuppressed(ctx context.Context) {
	m.duplicatesSuppressed.Inc(ctx)
}

// CommitRetried implements ledger.Metrics
func (m *LedgerMetrics) CommitRetried(ctx context.Context) {
	m.commitRetries.Inc(ctx)
}

// CommitRejected implements ledger.Metrics
func (m *LedgerMetrics) CommitRejected(ctx context.Context, code string) {
	if code == "" {
		code = "internal"
	}
	m.commitRejections.Inc(ctx, AttrErrorCode.String(code))
}

// ImportRow counts one import row by kind and outcome
func (m *LedgerMetrics) ImportRow(ctx context.Context, kind, outcome string) {
	m.importRows.Inc(ctx, AttrRowKind.String(kind), AttrOutcome.String(outcome))
}
