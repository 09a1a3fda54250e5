package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

// syncLogRecord is append/update-only; rows are never deleted. It is the
// durable state machine behind every dispatch attempt.
type syncLogRecord struct {
	bun.BaseModel `bun:"table:ai_sync_logs,alias:asl"`

	ID           string         `bun:"id,pk"`
	EventType    string         `bun:"event_type,notnull"`
	EntityType   string         `bun:"entity_type,notnull"`
	EntityID     string         `bun:"entity_id,notnull"`
	Payload      map[string]any `bun:"payload,type:jsonb,notnull"`
	Status       string         `bun:"status,notnull"`
	Response     *string        `bun:"response"`
	ErrorMessage *string        `bun:"error_message"`
	RetryCount   int            `bun:"retry_count,notnull"`
	CreatedAt    time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	ProcessedAt  *time.Time     `bun:"processed_at,nullzero"`
}
