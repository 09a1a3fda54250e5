package query

import (
	"github.com/goliatone/go-aisync/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Querier[GetSyncLogMessage, core.SyncLogEntry]       = (*GetSyncLogQuery)(nil)
	_ gocmd.Querier[ListSyncLogsMessage, core.SyncLogPage]      = (*ListSyncLogsQuery)(nil)
	_ gocmd.Querier[SyncStatisticsMessage, core.SyncStatistics] = (*SyncStatisticsQuery)(nil)
)
