package gojob

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-aisync/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
)

// JobIDRetrySync identifies scheduled retry executions on the host queue.
const JobIDRetrySync = "aisync.sync_log.retry"

const (
	paramLogID   = "log_id"
	paramAttempt = "attempt"
)

// RetryBackoff computes the delay before replaying a failed sync log entry.
// The delay doubles per completed attempt, starting at Initial and capped at
// Max. Zero values fall back to the service retry delay semantics.
type RetryBackoff struct {
	Initial time.Duration
	Max     time.Duration
}

// BackoffFromConfig derives the queue backoff from the service configuration:
// the configured retry delay seeds the first attempt and also bounds the cap
// at eight times the seed.
func BackoffFromConfig(cfg core.Config) RetryBackoff {
	initial := cfg.RetryDelay()
	if initial <= 0 {
		initial = 30 * time.Second
	}
	return RetryBackoff{
		Initial: initial,
		Max:     initial * 8,
	}
}

func (p RetryBackoff) NextDelay(attempt int) time.Duration {
	initial := p.Initial
	if initial <= 0 {
		initial = 30 * time.Second
	}
	maximum := p.Max
	if maximum <= 0 {
		maximum = 8 * initial
	}
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maximum {
			return maximum
		}
	}
	if delay > maximum {
		return maximum
	}
	return delay
}

// RetryMessage builds the queue execution message for one scheduled replay.
// The idempotency key pins (log id, attempt) so a crashed scheduler cannot
// double-enqueue the same replay.
func RetryMessage(logID string, attempt int) (*job.ExecutionMessage, error) {
	logID = strings.TrimSpace(logID)
	if logID == "" {
		return nil, fmt.Errorf("gojob: log id is required")
	}
	if attempt < 0 {
		attempt = 0
	}
	return &job.ExecutionMessage{
		JobID: JobIDRetrySync,
		Parameters: map[string]any{
			paramLogID:   logID,
			paramAttempt: attempt,
		},
		IdempotencyKey: JobIDRetrySync + "::" + logID + "::" + strconv.Itoa(attempt),
	}, nil
}

// ParseRetryMessage recovers the log id and attempt from a queue message.
func ParseRetryMessage(msg *job.ExecutionMessage) (string, int, error) {
	if msg == nil {
		return "", 0, fmt.Errorf("gojob: execution message is required")
	}
	if strings.TrimSpace(msg.JobID) != JobIDRetrySync {
		return "", 0, fmt.Errorf("gojob: unexpected job id %q", msg.JobID)
	}
	logID := parameterString(msg.Parameters, paramLogID)
	if logID == "" {
		return "", 0, fmt.Errorf("gojob: retry message is missing log_id")
	}
	attempt := parameterInt(msg.Parameters, paramAttempt)
	return logID, attempt, nil
}

// NackOptionsForAttempt shapes the requeue decision after a failed replay:
// backoff-delayed requeue below the attempt ceiling, dead-letter at it.
func NackOptionsForAttempt(backoff RetryBackoff, maxAttempts int, attempt int, cause error) queue.NackOptions {
	opts := queue.NackOptions{
		Delay:   backoff.NextDelay(attempt),
		Requeue: true,
	}
	if cause != nil {
		opts.Reason = strings.TrimSpace(cause.Error())
	}
	if maxAttempts > 0 && attempt >= maxAttempts {
		opts.Requeue = false
		opts.DeadLetter = true
		opts.Delay = 0
	}
	return opts
}

// RetryScheduler enqueues delayed replays of failed sync log entries onto a
// go-job queue. It owns no clock and no loop; the host worker drains the
// queue and calls the webhook service's Retry.
type RetryScheduler struct {
	enqueuer queue.Enqueuer
	backoff  RetryBackoff
	logger   job.Logger
}

type SchedulerOption func(*RetryScheduler)

// WithSchedulerLogger attaches a go-job logger, typically bridged through
// gologger.RetryWorkerLogging.
func WithSchedulerLogger(logger job.Logger) SchedulerOption {
	return func(s *RetryScheduler) {
		s.logger = logger
	}
}

func NewRetryScheduler(enqueuer queue.Enqueuer, backoff RetryBackoff, opts ...SchedulerOption) (*RetryScheduler, error) {
	if enqueuer == nil {
		return nil, fmt.Errorf("gojob: enqueuer is required")
	}
	scheduler := &RetryScheduler{enqueuer: enqueuer, backoff: backoff}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(scheduler)
	}
	return scheduler, nil
}

// ScheduleRetry enqueues one replay for entry and returns the backoff delay
// the host worker should honor before executing it.
func (s *RetryScheduler) ScheduleRetry(ctx context.Context, entry core.SyncLogEntry) (time.Duration, error) {
	if s == nil || s.enqueuer == nil {
		return 0, fmt.Errorf("gojob: retry scheduler is not configured")
	}
	if entry.Status != core.SyncStatusFailed {
		return 0, fmt.Errorf("gojob: sync log entry %q is not in the failed state", entry.ID)
	}
	msg, err := RetryMessage(entry.ID, entry.RetryCount)
	if err != nil {
		return 0, err
	}
	if err := s.enqueuer.Enqueue(ctx, msg); err != nil {
		return 0, err
	}
	delay := s.backoff.NextDelay(entry.RetryCount)
	if s.logger != nil {
		s.logger.Info("sync log retry scheduled",
			"log_id", entry.ID,
			"attempt", entry.RetryCount,
			"delay", delay.String(),
		)
	}
	return delay, nil
}

func parameterString(params map[string]any, key string) string {
	if len(params) == 0 {
		return ""
	}
	value, ok := params[key]
	if !ok || value == nil {
		return ""
	}
	text := strings.TrimSpace(fmt.Sprint(value))
	if text == "<nil>" {
		return ""
	}
	return text
}

func parameterInt(params map[string]any, key string) int {
	switch value := params[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
