package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-aisync/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const syncLogCacheKeyPrefix = "go-aisync::sync_log::v1"

// CachedSyncLogReader fronts the read surface with a cache so dashboard
// polling does not hammer the log table. List stays uncached; its filter
// space is too wide for useful keys. Writers invalidate entries after each
// completion through Invalidate.
type CachedSyncLogReader struct {
	base  core.SyncLogReader
	cache repositorycache.CacheService
}

func NewCachedSyncLogReader(
	base core.SyncLogReader,
	cacheService repositorycache.CacheService,
) (*CachedSyncLogReader, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base sync log reader is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: sync log cache service is required")
	}
	return &CachedSyncLogReader{base: base, cache: cacheService}, nil
}

// SyncLogCacheKey returns the deterministic key for one log entry:
// go-aisync::sync_log::v1::entry::<log_id> with the id URL-path escaped.
func SyncLogCacheKey(logID string) (string, error) {
	logID = strings.TrimSpace(logID)
	if logID == "" {
		return "", fmt.Errorf("sqlstore: log id is required")
	}
	return syncLogCacheKeyPrefix + "::entry::" + url.PathEscape(logID), nil
}

// SyncStatisticsCacheKey returns the key for one statistics window. Open
// range bounds serialize as "-" so the full-table roll-up has a stable key.
func SyncStatisticsCacheKey(dateFrom *time.Time, dateTo *time.Time) string {
	return syncLogCacheKeyPrefix + "::stats::" +
		formatRangeBound(dateFrom) + "::" + formatRangeBound(dateTo)
}

func (r *CachedSyncLogReader) Get(ctx context.Context, logID string) (core.SyncLogEntry, error) {
	if r == nil || r.base == nil || r.cache == nil {
		return core.SyncLogEntry{}, fmt.Errorf("sqlstore: cached sync log reader is not configured")
	}
	cacheKey, err := SyncLogCacheKey(logID)
	if err != nil {
		return core.SyncLogEntry{}, err
	}
	entry, err := repositorycache.GetOrFetch(ctx, r.cache, cacheKey, func(ctx context.Context) (core.SyncLogEntry, error) {
		return r.base.Get(ctx, logID)
	})
	if err != nil {
		return core.SyncLogEntry{}, err
	}
	return cloneSyncLogEntry(entry), nil
}

func (r *CachedSyncLogReader) List(ctx context.Context, filter core.SyncLogFilter) (core.SyncLogPage, error) {
	if r == nil || r.base == nil {
		return core.SyncLogPage{}, fmt.Errorf("sqlstore: cached sync log reader is not configured")
	}
	return r.base.List(ctx, filter)
}

func (r *CachedSyncLogReader) Statistics(
	ctx context.Context,
	dateFrom *time.Time,
	dateTo *time.Time,
) (core.SyncStatistics, error) {
	if r == nil || r.base == nil || r.cache == nil {
		return core.SyncStatistics{}, fmt.Errorf("sqlstore: cached sync log reader is not configured")
	}
	cacheKey := SyncStatisticsCacheKey(dateFrom, dateTo)
	stats, err := repositorycache.GetOrFetch(ctx, r.cache, cacheKey, func(ctx context.Context) (core.SyncStatistics, error) {
		return r.base.Statistics(ctx, dateFrom, dateTo)
	})
	if err != nil {
		return core.SyncStatistics{}, err
	}
	return cloneSyncStatistics(stats), nil
}

// Invalidate drops the cached entry and the open-range statistics window for
// one log id. Bounded statistics windows age out on their own TTL.
func (r *CachedSyncLogReader) Invalidate(ctx context.Context, logID string) error {
	if r == nil || r.cache == nil {
		return fmt.Errorf("sqlstore: cached sync log reader is not configured")
	}
	cacheKey, err := SyncLogCacheKey(logID)
	if err != nil {
		return err
	}
	if err := r.cache.Delete(ctx, cacheKey); err != nil {
		return err
	}
	return r.cache.Delete(ctx, SyncStatisticsCacheKey(nil, nil))
}

func formatRangeBound(bound *time.Time) string {
	if bound == nil {
		return "-"
	}
	return strconv.FormatInt(bound.UTC().Unix(), 10)
}

func cloneSyncLogEntry(entry core.SyncLogEntry) core.SyncLogEntry {
	cloned := entry
	cloned.Payload = copyAnyMap(entry.Payload)
	if entry.Response != nil {
		value := *entry.Response
		cloned.Response = &value
	}
	if entry.ErrorMessage != nil {
		value := *entry.ErrorMessage
		cloned.ErrorMessage = &value
	}
	if entry.ProcessedAt != nil {
		value := *entry.ProcessedAt
		cloned.ProcessedAt = &value
	}
	return cloned
}

func cloneSyncStatistics(stats core.SyncStatistics) core.SyncStatistics {
	cloned := stats
	cloned.ByStatus = make(map[string]int, len(stats.ByStatus))
	for key, value := range stats.ByStatus {
		cloned.ByStatus[key] = value
	}
	cloned.ByEventType = make(map[string]int, len(stats.ByEventType))
	for key, value := range stats.ByEventType {
		cloned.ByEventType[key] = value
	}
	return cloned
}

var _ core.SyncLogReader = (*CachedSyncLogReader)(nil)
