package query

import (
	"context"
	"time"

	"github.com/goliatone/go-aisync/core"
)

type SyncLogReader interface {
	Get(ctx context.Context, logID string) (core.SyncLogEntry, error)
	List(ctx context.Context, filter core.SyncLogFilter) (core.SyncLogPage, error)
	Statistics(ctx context.Context, dateFrom *time.Time, dateTo *time.Time) (core.SyncStatistics, error)
}

type GetSyncLogQuery struct {
	reader SyncLogReader
}

func NewGetSyncLogQuery(reader SyncLogReader) *GetSyncLogQuery {
	return &GetSyncLogQuery{reader: reader}
}

func (q *GetSyncLogQuery) Query(ctx context.Context, msg GetSyncLogMessage) (core.SyncLogEntry, error) {
	if q == nil || q.reader == nil {
		return core.SyncLogEntry{}, queryDependencyError("query: sync log reader is required")
	}
	return q.reader.Get(ctx, msg.LogID)
}

type ListSyncLogsQuery struct {
	reader SyncLogReader
}

func NewListSyncLogsQuery(reader SyncLogReader) *ListSyncLogsQuery {
	return &ListSyncLogsQuery{reader: reader}
}

func (q *ListSyncLogsQuery) Query(ctx context.Context, msg ListSyncLogsMessage) (core.SyncLogPage, error) {
	if q == nil || q.reader == nil {
		return core.SyncLogPage{}, queryDependencyError("query: sync log reader is required")
	}
	return q.reader.List(ctx, msg.Filter)
}

type SyncStatisticsQuery struct {
	reader SyncLogReader
}

func NewSyncStatisticsQuery(reader SyncLogReader) *SyncStatisticsQuery {
	return &SyncStatisticsQuery{reader: reader}
}

func (q *SyncStatisticsQuery) Query(ctx context.Context, msg SyncStatisticsMessage) (core.SyncStatistics, error) {
	if q == nil || q.reader == nil {
		return core.SyncStatistics{}, queryDependencyError("query: sync log reader is required")
	}
	return q.reader.Statistics(ctx, msg.DateFrom, msg.DateTo)
}
