package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-aisync/core"
)

const (
	TypeGetSyncLog     = "aisync.query.sync_log.get"
	TypeListSyncLogs   = "aisync.query.sync_log.list"
	TypeSyncStatistics = "aisync.query.sync_log.statistics"
)

type GetSyncLogMessage struct {
	LogID string
}

func (GetSyncLogMessage) Type() string { return TypeGetSyncLog }

func (m GetSyncLogMessage) Validate() error {
	if strings.TrimSpace(m.LogID) == "" {
		return queryInvalidInputError("query: log id is required")
	}
	return nil
}

type ListSyncLogsMessage struct {
	Filter core.SyncLogFilter
}

func (ListSyncLogsMessage) Type() string { return TypeListSyncLogs }

func (m ListSyncLogsMessage) Validate() error {
	if m.Filter.Page < 0 {
		return queryInvalidInputError("query: page must be >= 0")
	}
	if m.Filter.PerPage < 0 {
		return queryInvalidInputError("query: per_page must be >= 0")
	}
	if status := strings.TrimSpace(string(m.Filter.Status)); status != "" && !m.Filter.Status.Valid() {
		return queryInvalidInputError(fmt.Sprintf("query: unknown sync status %q", status))
	}
	if m.Filter.DateFrom != nil && m.Filter.DateTo != nil && m.Filter.DateTo.Before(*m.Filter.DateFrom) {
		return queryInvalidInputError("query: date_to must not precede date_from")
	}
	return nil
}

type SyncStatisticsMessage struct {
	DateFrom *time.Time
	DateTo   *time.Time
}

func (SyncStatisticsMessage) Type() string { return TypeSyncStatistics }

func (m SyncStatisticsMessage) Validate() error {
	if m.DateFrom != nil && m.DateTo != nil && m.DateTo.Before(*m.DateFrom) {
		return queryInvalidInputError("query: date_to must not precede date_from")
	}
	return nil
}
