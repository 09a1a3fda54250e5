package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// WebhookPath is appended to the configured base URL for every dispatch.
	WebhookPath = "/api/v1/webhook"

	HeaderWebhookEvent = "X-Webhook-Event"

	TokenSubjectAISync = "ai-sync"
	TokenScopeWebhook  = "webhook"
)

// Service orchestrates webhook dispatch: guard evaluation, token minting,
// log-row creation, the outbound call, and the exactly-once completion of
// each attempt. It owns the process-local pending set drained by
// AwaitPending; the set is never exposed outside the service.
type Service struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	store           SyncLogStore
	issuer          TokenIssuer
	dispatcher      Dispatcher
	now             func() time.Time

	mu      sync.Mutex
	pending map[string]chan DispatchOutcome
}

type preparedDispatch struct {
	entry   SyncLogEntry
	request DispatchRequest
}

// DispatchAsync fires one webhook delivery without blocking the caller. The
// log row exists with status pending before the network call is issued; the
// receipt carries the row id so callers can observe the outcome later
// through the log. Post-dispatch faults never propagate back here.
func (s *Service) DispatchAsync(ctx context.Context, event SyncEvent) (DispatchReceipt, error) {
	if s == nil {
		return DispatchReceipt{}, fmt.Errorf("core: sync service is not configured")
	}
	prepared, err := s.prepare(ctx, event)
	if err != nil {
		return DispatchReceipt{}, s.mapError(err)
	}

	ch := make(chan DispatchOutcome, 1)
	s.mu.Lock()
	s.pending[prepared.entry.ID] = ch
	s.mu.Unlock()

	go func() {
		// Detached from the caller's context: the caller has already been
		// answered by the time this settles.
		outcome := s.deliver(context.Background(), prepared)
		ch <- outcome
		close(ch)
		s.mu.Lock()
		delete(s.pending, outcome.LogID)
		s.mu.Unlock()
	}()

	return DispatchReceipt{LogID: prepared.entry.ID, Async: true}, nil
}

// DispatchSync runs the identical guard/token/log-creation steps but blocks
// on the HTTP call and returns the fully resolved outcome. Network faults
// and rejections come back inside the outcome, not as errors.
func (s *Service) DispatchSync(ctx context.Context, event SyncEvent) (DispatchOutcome, error) {
	if s == nil {
		return DispatchOutcome{}, fmt.Errorf("core: sync service is not configured")
	}
	prepared, err := s.prepare(ctx, event)
	if err != nil {
		return DispatchOutcome{}, s.mapError(err)
	}
	return s.deliver(ctx, prepared), nil
}

// Retry re-dispatches a failed row, reusing its id and replaying the
// originally stored payload. RetryCount stays untouched until the next
// completion increments it.
func (s *Service) Retry(ctx context.Context, logID string) (DispatchOutcome, error) {
	if s == nil || s.store == nil {
		return DispatchOutcome{}, fmt.Errorf("core: sync service is not configured")
	}
	logID = strings.TrimSpace(logID)
	if logID == "" {
		return DispatchOutcome{}, s.mapError(guardError(
			"core: log id is required",
			goerrors.CategoryBadInput,
			SyncErrorBadInput,
		))
	}

	entry, err := s.store.Get(ctx, logID)
	if err != nil {
		return DispatchOutcome{}, s.mapError(err)
	}
	if entry.Status != SyncStatusFailed {
		return DispatchOutcome{}, s.mapError(guardError(
			fmt.Sprintf("core: sync log entry %q is not failed", logID),
			goerrors.CategoryNotFound,
			SyncErrorNotFound,
		))
	}
	if entry.RetryCount >= s.maxRetryAttempts() {
		return DispatchOutcome{}, s.mapError(guardError(
			fmt.Sprintf("core: sync log entry %q exceeded %d retry attempts", logID, s.maxRetryAttempts()),
			goerrors.CategoryConflict,
			SyncErrorRetryLimit,
		))
	}

	token, err := s.checkGuards(ctx)
	if err != nil {
		return DispatchOutcome{}, s.mapError(err)
	}

	entry, err = s.store.MarkRetryPending(ctx, logID)
	if err != nil {
		return DispatchOutcome{}, s.mapError(persistenceError(err, "core: reset sync log entry for retry"))
	}

	request, err := s.buildRequest(entry, token)
	if err != nil {
		return DispatchOutcome{}, s.mapError(s.abortPrepared(ctx, entry, err))
	}
	return s.deliver(ctx, preparedDispatch{entry: entry, request: request}), nil
}

// AwaitPending is the shutdown/batch barrier: it blocks until every
// in-flight async dispatch has settled, clears the pending set, and returns
// the collected outcomes. Individual failures are collected, never raised.
func (s *Service) AwaitPending(ctx context.Context) []DispatchOutcome {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	channels := make([]chan DispatchOutcome, 0, len(s.pending))
	for _, ch := range s.pending {
		channels = append(channels, ch)
	}
	s.pending = map[string]chan DispatchOutcome{}
	s.mu.Unlock()

	outcomes := make([]DispatchOutcome, 0, len(channels))
	for _, ch := range channels {
		select {
		case outcome := <-ch:
			outcomes = append(outcomes, outcome)
		case <-ctx.Done():
			s.logError(ctx, "await pending interrupted", map[string]any{
				"drained": len(outcomes),
				"total":   len(channels),
				"error":   ctx.Err().Error(),
			})
			return outcomes
		}
	}
	return outcomes
}

// PendingCount reports the number of async dispatches not yet settled.
func (s *Service) PendingCount() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

// prepare evaluates the fail-fast guards in order, mints the per-call token,
// and creates the pending log row. Guard failures have no side effects; a
// missing signing secret aborts before any row exists.
func (s *Service) prepare(ctx context.Context, event SyncEvent) (preparedDispatch, error) {
	if err := event.Validate(); err != nil {
		return preparedDispatch{}, guardError(err.Error(), goerrors.CategoryBadInput, SyncErrorBadInput)
	}
	token, err := s.checkGuards(ctx)
	if err != nil {
		return preparedDispatch{}, err
	}

	entry, err := s.store.Create(ctx, event)
	if err != nil {
		return preparedDispatch{}, persistenceError(err, "core: create sync log entry")
	}

	request, err := s.buildRequest(entry, token)
	if err != nil {
		return preparedDispatch{}, s.abortPrepared(ctx, entry, err)
	}
	return preparedDispatch{entry: entry, request: request}, nil
}

func (s *Service) checkGuards(ctx context.Context) (string, error) {
	if !s.config.SyncEnabled {
		return "", guardError(
			"core: ai sync is disabled",
			goerrors.CategoryOperation,
			SyncErrorDisabled,
		)
	}
	if strings.TrimSpace(s.config.AIServiceURL) == "" {
		return "", guardError(
			"core: ai service url is not configured",
			goerrors.CategoryOperation,
			SyncErrorURLMissing,
		)
	}
	if s.dispatcher == nil || s.issuer == nil || s.store == nil {
		return "", guardError(
			"core: sync http client could not be initialized",
			goerrors.CategoryInternal,
			SyncErrorInitFailed,
		)
	}

	token, err := s.issuer.Generate(ctx, TokenSubjectAISync, TokenScopeWebhook)
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *Service) buildRequest(entry SyncLogEntry, token string) (DispatchRequest, error) {
	envelope := WebhookEnvelope{
		EventType:  string(entry.EventType),
		EntityType: string(entry.EntityType),
		EntityID:   entry.EntityID,
		Payload:    entry.Payload,
		Timestamp:  s.timeNow().Format(time.RFC3339),
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return DispatchRequest{}, fmt.Errorf("core: marshal webhook envelope: %w", err)
	}

	return DispatchRequest{
		Method: http.MethodPost,
		URL:    strings.TrimRight(strings.TrimSpace(s.config.AIServiceURL), "/") + WebhookPath,
		Headers: map[string]string{
			"Authorization":    "Bearer " + token,
			"Content-Type":     "application/json",
			HeaderWebhookEvent: string(entry.EventType),
		},
		Body:    body,
		Timeout: s.config.WebhookTimeout(),
	}, nil
}

// abortPrepared settles a row whose request could not even be built, so the
// audit trail never holds a pending row for an attempt that was not fired.
func (s *Service) abortPrepared(ctx context.Context, entry SyncLogEntry, cause error) error {
	message := cause.Error()
	if _, completeErr := s.store.Complete(ctx, entry.ID, SyncStatusFailed, nil, &message); completeErr != nil {
		s.logError(ctx, "abort prepared dispatch", map[string]any{
			"log_id": entry.ID,
			"error":  completeErr.Error(),
		})
	}
	return cause
}

// deliver performs one attempt and settles its log row exactly once. The
// rejected/undeliverable distinction drives what gets persisted: rejections
// keep the response body, faults carry only a message.
func (s *Service) deliver(ctx context.Context, prepared preparedDispatch) DispatchOutcome {
	startedAt := s.timeNow()
	outcome := DispatchOutcome{LogID: prepared.entry.ID}

	var response *string
	var errorMessage *string
	res, err := s.dispatcher.Send(ctx, prepared.request)
	switch {
	case err != nil:
		outcome.Status = SyncStatusFailed
		outcome.ErrorMessage = err.Error()
		errorMessage = &outcome.ErrorMessage
	case res.Accepted():
		outcome.Status = SyncStatusSuccess
		outcome.StatusCode = res.StatusCode
		outcome.Response = string(res.Body)
		response = &outcome.Response
	default:
		outcome.Status = SyncStatusFailed
		outcome.StatusCode = res.StatusCode
		outcome.Response = string(res.Body)
		outcome.ErrorMessage = fmt.Sprintf("HTTP %d error", res.StatusCode)
		response = &outcome.Response
		errorMessage = &outcome.ErrorMessage
	}

	if _, completeErr := s.store.Complete(
		ctx,
		prepared.entry.ID,
		outcome.Status,
		response,
		errorMessage,
	); completeErr != nil {
		s.logError(ctx, "complete sync log entry", map[string]any{
			"log_id": prepared.entry.ID,
			"status": string(outcome.Status),
			"error":  completeErr.Error(),
		})
	}

	s.observeDispatch(ctx, startedAt, "dispatch", outcome)
	return outcome
}

func (s *Service) maxRetryAttempts() int {
	if s.config.MaxRetryAttempts > 0 {
		return s.config.MaxRetryAttempts
	}
	return DefaultMaxRetryAttempts
}

func (s *Service) timeNow() time.Time {
	if s != nil && s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func persistenceError(source error, message string) error {
	return goerrors.Wrap(source, goerrors.CategoryOperation, message).
		WithCode(http.StatusInternalServerError).
		WithTextCode(SyncErrorPersistence)
}
