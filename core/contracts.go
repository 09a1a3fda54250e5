package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// SyncLogStore is the durable, append/update-only record of delivery
// attempts. A row is created before any network call is attempted and
// mutated exactly once per completed attempt.
type SyncLogStore interface {
	Create(ctx context.Context, event SyncEvent) (SyncLogEntry, error)
	Complete(
		ctx context.Context,
		logID string,
		status SyncStatus,
		response *string,
		errorMessage *string,
	) (SyncLogEntry, error)
	MarkRetryPending(ctx context.Context, logID string) (SyncLogEntry, error)
	Get(ctx context.Context, logID string) (SyncLogEntry, error)
	List(ctx context.Context, filter SyncLogFilter) (SyncLogPage, error)
	Statistics(ctx context.Context, dateFrom *time.Time, dateTo *time.Time) (SyncStatistics, error)
}

// SyncLogReader is the read-only slice of SyncLogStore consumed by the query
// surface and dashboards.
type SyncLogReader interface {
	Get(ctx context.Context, logID string) (SyncLogEntry, error)
	List(ctx context.Context, filter SyncLogFilter) (SyncLogPage, error)
	Statistics(ctx context.Context, dateFrom *time.Time, dateTo *time.Time) (SyncStatistics, error)
}

// TokenIssuer mints a short-lived bearer credential for one outbound call.
// Tokens are never cached or persisted.
type TokenIssuer interface {
	Generate(ctx context.Context, subject string, scope string) (string, error)
}

// Dispatcher performs the outbound HTTP POST. It owns no retry policy;
// retry is strictly an orchestrator-level concern.
type Dispatcher interface {
	Send(ctx context.Context, req DispatchRequest) (DispatchResponse, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
