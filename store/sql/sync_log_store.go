package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-aisync/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const defaultListPerPage = 25

// SyncLogStore persists one row per logical event. The row is created in the
// pending state before any network attempt; every completed attempt mutates
// the same row exactly once. Rows are never deleted.
type SyncLogStore struct {
	db   *bun.DB
	repo repository.Repository[*syncLogRecord]
	now  func() time.Time
}

func NewSyncLogStore(db *bun.DB) (*SyncLogStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*syncLogRecord](db, syncLogHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid sync log repository wiring: %w", err)
		}
	}
	return &SyncLogStore{
		db:   db,
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the store clock. Tests use this to pin timestamps.
func (s *SyncLogStore) WithClock(now func() time.Time) *SyncLogStore {
	if s != nil && now != nil {
		s.now = now
	}
	return s
}

// Create inserts a fresh pending row with a zero retry count. The returned
// entry carries the generated log id callers hold for retry and lookup.
func (s *SyncLogStore) Create(ctx context.Context, event core.SyncEvent) (core.SyncLogEntry, error) {
	if s == nil || s.db == nil {
		return core.SyncLogEntry{}, fmt.Errorf("sqlstore: sync log store is not configured")
	}
	if err := event.Validate(); err != nil {
		return core.SyncLogEntry{}, err
	}

	record := &syncLogRecord{
		ID:         uuid.NewString(),
		EventType:  strings.TrimSpace(string(event.EventType)),
		EntityType: strings.TrimSpace(string(event.EntityType)),
		EntityID:   strings.TrimSpace(event.EntityID),
		Payload:    copyAnyMap(event.Payload),
		Status:     string(core.SyncStatusPending),
		RetryCount: 0,
		CreatedAt:  s.timeNow(),
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return core.SyncLogEntry{}, err
	}
	return syncLogToDomain(record), nil
}

// Complete settles one attempt: it stamps the terminal status, stores the
// remote response or error message, sets processed_at, and increments
// retry_count. The increment happens here and only here so the counter means
// "completed attempts", not "scheduled attempts".
func (s *SyncLogStore) Complete(
	ctx context.Context,
	logID string,
	status core.SyncStatus,
	response *string,
	errorMessage *string,
) (core.SyncLogEntry, error) {
	if s == nil || s.db == nil {
		return core.SyncLogEntry{}, fmt.Errorf("sqlstore: sync log store is not configured")
	}
	logID = strings.TrimSpace(logID)
	if logID == "" {
		return core.SyncLogEntry{}, fmt.Errorf("sqlstore: log id is required")
	}
	if !status.Valid() || status == core.SyncStatusPending {
		return core.SyncLogEntry{}, fmt.Errorf("%w: %q is not a terminal status", core.ErrInvalidSyncStatus, status)
	}

	now := s.timeNow()
	res, err := s.db.NewUpdate().
		Model((*syncLogRecord)(nil)).
		Set("status = ?", string(status)).
		Set("response = ?", response).
		Set("error_message = ?", errorMessage).
		Set("processed_at = ?", now).
		Set("retry_count = retry_count + 1").
		Where("id = ?", logID).
		Exec(ctx)
	if err != nil {
		return core.SyncLogEntry{}, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return core.SyncLogEntry{}, fmt.Errorf("%w: %q", core.ErrSyncLogNotFound, logID)
	}
	return s.Get(ctx, logID)
}

// MarkRetryPending flips a failed row back to pending without touching the
// retry counter, response, or error message; the following Complete records
// the attempt's outcome. Only failed rows are eligible.
func (s *SyncLogStore) MarkRetryPending(ctx context.Context, logID string) (core.SyncLogEntry, error) {
	if s == nil || s.db == nil {
		return core.SyncLogEntry{}, fmt.Errorf("sqlstore: sync log store is not configured")
	}
	logID = strings.TrimSpace(logID)
	if logID == "" {
		return core.SyncLogEntry{}, fmt.Errorf("sqlstore: log id is required")
	}

	res, err := s.db.NewUpdate().
		Model((*syncLogRecord)(nil)).
		Set("status = ?", string(core.SyncStatusPending)).
		Where("id = ?", logID).
		Where("status = ?", string(core.SyncStatusFailed)).
		Exec(ctx)
	if err != nil {
		return core.SyncLogEntry{}, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		if _, getErr := s.Get(ctx, logID); getErr != nil {
			return core.SyncLogEntry{}, getErr
		}
		return core.SyncLogEntry{}, fmt.Errorf("%w: %q is not in the failed state", core.ErrSyncLogNotRetryable, logID)
	}
	return s.Get(ctx, logID)
}

func (s *SyncLogStore) Get(ctx context.Context, logID string) (core.SyncLogEntry, error) {
	if s == nil || s.db == nil {
		return core.SyncLogEntry{}, fmt.Errorf("sqlstore: sync log store is not configured")
	}
	logID = strings.TrimSpace(logID)
	if logID == "" {
		return core.SyncLogEntry{}, fmt.Errorf("sqlstore: log id is required")
	}

	record := &syncLogRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", logID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.SyncLogEntry{}, fmt.Errorf("%w: %q", core.ErrSyncLogNotFound, logID)
		}
		return core.SyncLogEntry{}, err
	}
	return syncLogToDomain(record), nil
}

// List returns one page of the audit trail, newest first.
func (s *SyncLogStore) List(ctx context.Context, filter core.SyncLogFilter) (core.SyncLogPage, error) {
	if s == nil || s.repo == nil {
		return core.SyncLogPage{}, fmt.Errorf("sqlstore: sync log store is not configured")
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = defaultListPerPage
	}
	offset := (page - 1) * perPage

	selectors := []repository.SelectCriteria{
		repository.OrderBy("created_at DESC"),
		repository.SelectPaginate(perPage, offset),
	}
	if status := strings.TrimSpace(string(filter.Status)); status != "" {
		selectors = append(selectors, repository.SelectBy("status", "=", status))
	}
	if eventType := strings.TrimSpace(string(filter.EventType)); eventType != "" {
		selectors = append(selectors, repository.SelectBy("event_type", "=", eventType))
	}
	if entityType := strings.TrimSpace(string(filter.EntityType)); entityType != "" {
		selectors = append(selectors, repository.SelectBy("entity_type", "=", entityType))
	}
	if filter.DateFrom != nil {
		selectors = append(selectors, repository.SelectByTimetz("created_at", ">=", filter.DateFrom.UTC()))
	}
	if filter.DateTo != nil {
		selectors = append(selectors, repository.SelectByTimetz("created_at", "<=", filter.DateTo.UTC()))
	}

	records, total, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return core.SyncLogPage{}, err
	}
	entries := make([]core.SyncLogEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, syncLogToDomain(record))
	}
	return core.SyncLogPage{
		Entries: entries,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		HasNext: offset+len(entries) < total,
	}, nil
}

// Statistics aggregates the trail in two queries: one roll-up for totals and
// retry math, one grouped count per event type. An empty table yields the
// zero value with allocated maps, never an error.
func (s *SyncLogStore) Statistics(
	ctx context.Context,
	dateFrom *time.Time,
	dateTo *time.Time,
) (core.SyncStatistics, error) {
	if s == nil || s.db == nil {
		return core.SyncStatistics{}, fmt.Errorf("sqlstore: sync log store is not configured")
	}

	var (
		total      int
		pending    int
		success    int
		failed     int
		avgRetries float64
		maxRetries int
	)
	rollup := s.db.NewSelect().
		Model((*syncLogRecord)(nil)).
		ColumnExpr("COUNT(*) AS total").
		ColumnExpr("COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS pending", string(core.SyncStatusPending)).
		ColumnExpr("COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS success", string(core.SyncStatusSuccess)).
		ColumnExpr("COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS failed", string(core.SyncStatusFailed)).
		ColumnExpr("COALESCE(AVG(retry_count), 0.0) AS avg_retries").
		ColumnExpr("COALESCE(MAX(retry_count), 0) AS max_retries")
	rollup = applyStatisticsRange(rollup, dateFrom, dateTo)
	if err := rollup.Scan(ctx, &total, &pending, &success, &failed, &avgRetries, &maxRetries); err != nil {
		return core.SyncStatistics{}, err
	}

	type eventTypeCount struct {
		EventType string `bun:"event_type"`
		Count     int    `bun:"count"`
	}
	var byEventType []eventTypeCount
	grouped := s.db.NewSelect().
		Model((*syncLogRecord)(nil)).
		Column("event_type").
		ColumnExpr("COUNT(*) AS count").
		Group("event_type")
	grouped = applyStatisticsRange(grouped, dateFrom, dateTo)
	if err := grouped.Scan(ctx, &byEventType); err != nil {
		return core.SyncStatistics{}, err
	}

	stats := core.SyncStatistics{
		Total:         total,
		Pending:       pending,
		Success:       success,
		Failed:        failed,
		AvgRetryCount: avgRetries,
		MaxRetryCount: maxRetries,
		ByStatus: map[string]int{
			string(core.SyncStatusPending): pending,
			string(core.SyncStatusSuccess): success,
			string(core.SyncStatusFailed):  failed,
		},
		ByEventType: map[string]int{},
	}
	for _, row := range byEventType {
		stats.ByEventType[row.EventType] = row.Count
	}
	return stats, nil
}

func applyStatisticsRange(query *bun.SelectQuery, dateFrom *time.Time, dateTo *time.Time) *bun.SelectQuery {
	if dateFrom != nil {
		query = query.Where("created_at >= ?", dateFrom.UTC())
	}
	if dateTo != nil {
		query = query.Where("created_at <= ?", dateTo.UTC())
	}
	return query
}

func (s *SyncLogStore) timeNow() time.Time {
	if s == nil || s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

func syncLogToDomain(record *syncLogRecord) core.SyncLogEntry {
	if record == nil {
		return core.SyncLogEntry{}
	}
	entry := core.SyncLogEntry{
		ID:         record.ID,
		EventType:  core.EventType(record.EventType),
		EntityType: core.EntityType(record.EntityType),
		EntityID:   record.EntityID,
		Payload:    copyAnyMap(record.Payload),
		Status:     core.SyncStatus(record.Status),
		RetryCount: record.RetryCount,
		CreatedAt:  record.CreatedAt,
	}
	if record.Response != nil {
		value := *record.Response
		entry.Response = &value
	}
	if record.ErrorMessage != nil {
		value := *record.ErrorMessage
		entry.ErrorMessage = &value
	}
	if record.ProcessedAt != nil {
		value := *record.ProcessedAt
		entry.ProcessedAt = &value
	}
	return entry
}

func copyAnyMap(source map[string]any) map[string]any {
	result := make(map[string]any, len(source))
	for key, value := range source {
		result[key] = value
	}
	return result
}

var _ core.SyncLogStore = (*SyncLogStore)(nil)
