package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidEventType    = errors.New("core: invalid event type")
	ErrInvalidEntityType   = errors.New("core: invalid entity type")
	ErrInvalidSyncStatus   = errors.New("core: invalid sync status")
	ErrSyncLogNotFound     = errors.New("core: sync log entry not found")
	ErrRetryLimitExceeded  = errors.New("core: retry limit exceeded")
	ErrSyncLogNotRetryable = errors.New("core: sync log entry is not retryable")
)

type EventType string

const (
	EventTypeActivityCreated EventType = "activity.created"
	EventTypeMealRecorded    EventType = "meal.recorded"
	EventTypeNapRecorded     EventType = "nap.recorded"
	EventTypeCheckIn         EventType = "attendance.check_in"
	EventTypeCheckOut        EventType = "attendance.check_out"
	EventTypePhotoUploaded   EventType = "photo.uploaded"
)

type EntityType string

const (
	EntityTypeActivity   EntityType = "activity"
	EntityTypeMeal       EntityType = "meal"
	EntityTypeNap        EntityType = "nap"
	EntityTypeAttendance EntityType = "attendance"
	EntityTypePhoto      EntityType = "photo"
)

type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusFailed  SyncStatus = "failed"
)

func (s SyncStatus) Valid() bool {
	switch s {
	case SyncStatusPending, SyncStatusSuccess, SyncStatusFailed:
		return true
	}
	return false
}

// SyncEvent is the ephemeral per-call input to a dispatch. The payload is
// opaque to this subsystem; it is serialized as-is into the log row and the
// outbound envelope.
type SyncEvent struct {
	EventType  EventType
	EntityType EntityType
	EntityID   string
	Payload    map[string]any
}

func (e SyncEvent) Validate() error {
	if strings.TrimSpace(string(e.EventType)) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidEventType)
	}
	if strings.TrimSpace(string(e.EntityType)) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidEntityType)
	}
	if strings.TrimSpace(e.EntityID) == "" {
		return fmt.Errorf("core: entity id is required")
	}
	return nil
}

// SyncLogEntry is the durable audit record of one dispatch attempt chain.
// One logical event owns exactly one row; retries reuse the row and
// accumulate RetryCount across completions. Rows are never deleted.
type SyncLogEntry struct {
	ID           string
	EventType    EventType
	EntityType   EntityType
	EntityID     string
	Payload      map[string]any
	Status       SyncStatus
	Response     *string
	ErrorMessage *string
	RetryCount   int
	CreatedAt    time.Time
	ProcessedAt  *time.Time
}

// Event rebuilds the originally stored event for replay. Retry always
// replays the persisted payload, never a caller-supplied override.
func (e SyncLogEntry) Event() SyncEvent {
	return SyncEvent{
		EventType:  e.EventType,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Payload:    e.Payload,
	}
}

// WebhookEnvelope is the outbound wire body for POST {base}/api/v1/webhook.
type WebhookEnvelope struct {
	EventType  string         `json:"event_type"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Payload    map[string]any `json:"payload"`
	Timestamp  string         `json:"timestamp"`
}

// DispatchReceipt is returned to async callers immediately after the log row
// exists and the network call has been fired; it carries no network result.
type DispatchReceipt struct {
	LogID string
	Async bool
}

// DispatchOutcome is the fully resolved terminal result of one attempt.
type DispatchOutcome struct {
	LogID        string
	Status       SyncStatus
	StatusCode   int
	Response     string
	ErrorMessage string
}

type SyncLogFilter struct {
	Status     SyncStatus
	EventType  EventType
	EntityType EntityType
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PerPage    int
}

type SyncLogPage struct {
	Entries []SyncLogEntry
	Page    int
	PerPage int
	Total   int
	HasNext bool
}

// SyncStatistics aggregates the log store for dashboards. An empty result
// set yields the zero value, never an error.
type SyncStatistics struct {
	Total         int
	Pending       int
	Success       int
	Failed        int
	AvgRetryCount float64
	MaxRetryCount int
	ByStatus      map[string]int
	ByEventType   map[string]int
}

type DispatchRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Body                 []byte
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

// DispatchResponse is any HTTP response the remote produced, 2xx or not.
// Rejections are results, not errors; only connection-level failures surface
// as errors from the dispatcher.
type DispatchResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

func (r DispatchResponse) Accepted() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
