package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type memSyncLogStore struct {
	mu      sync.Mutex
	entries map[string]SyncLogEntry
	seq     int

	createErr   error
	completeErr error
}

func newMemSyncLogStore() *memSyncLogStore {
	return &memSyncLogStore{entries: map[string]SyncLogEntry{}}
}

func (s *memSyncLogStore) Create(_ context.Context, event SyncEvent) (SyncLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return SyncLogEntry{}, s.createErr
	}
	s.seq++
	entry := SyncLogEntry{
		ID:         "log-" + strconv.Itoa(s.seq),
		EventType:  event.EventType,
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		Payload:    event.Payload,
		Status:     SyncStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	s.entries[entry.ID] = entry
	return entry, nil
}

func (s *memSyncLogStore) Complete(
	_ context.Context,
	logID string,
	status SyncStatus,
	response *string,
	errorMessage *string,
) (SyncLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completeErr != nil {
		return SyncLogEntry{}, s.completeErr
	}
	entry, ok := s.entries[logID]
	if !ok {
		return SyncLogEntry{}, fmt.Errorf("%w: %q", ErrSyncLogNotFound, logID)
	}
	now := time.Now().UTC()
	entry.Status = status
	entry.Response = response
	entry.ErrorMessage = errorMessage
	entry.ProcessedAt = &now
	entry.RetryCount++
	s.entries[logID] = entry
	return entry, nil
}

func (s *memSyncLogStore) MarkRetryPending(_ context.Context, logID string) (SyncLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[logID]
	if !ok {
		return SyncLogEntry{}, fmt.Errorf("%w: %q", ErrSyncLogNotFound, logID)
	}
	if entry.Status != SyncStatusFailed {
		return SyncLogEntry{}, fmt.Errorf("%w: %q", ErrSyncLogNotRetryable, logID)
	}
	entry.Status = SyncStatusPending
	s.entries[logID] = entry
	return entry, nil
}

func (s *memSyncLogStore) Get(_ context.Context, logID string) (SyncLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[logID]
	if !ok {
		return SyncLogEntry{}, fmt.Errorf("%w: %q", ErrSyncLogNotFound, logID)
	}
	return entry, nil
}

func (s *memSyncLogStore) List(_ context.Context, filter SyncLogFilter) (SyncLogPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]SyncLogEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		if filter.Status != "" && entry.Status != filter.Status {
			continue
		}
		entries = append(entries, entry)
	}
	return SyncLogPage{Entries: entries, Page: 1, PerPage: len(entries), Total: len(entries)}, nil
}

func (s *memSyncLogStore) Statistics(context.Context, *time.Time, *time.Time) (SyncStatistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := SyncStatistics{ByStatus: map[string]int{}, ByEventType: map[string]int{}}
	for _, entry := range s.entries {
		stats.Total++
		stats.ByStatus[string(entry.Status)]++
		stats.ByEventType[string(entry.EventType)]++
		switch entry.Status {
		case SyncStatusPending:
			stats.Pending++
		case SyncStatusSuccess:
			stats.Success++
		case SyncStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

func (s *memSyncLogStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *memSyncLogStore) get(t *testing.T, logID string) SyncLogEntry {
	t.Helper()
	entry, err := s.Get(context.Background(), logID)
	if err != nil {
		t.Fatalf("get %q: %v", logID, err)
	}
	return entry
}

type staticTokenIssuer struct {
	token string
	err   error
	calls int
}

func (i *staticTokenIssuer) Generate(context.Context, string, string) (string, error) {
	i.calls++
	if i.err != nil {
		return "", i.err
	}
	return i.token, nil
}

type stubDispatcher struct {
	mu        sync.Mutex
	requests  []DispatchRequest
	response  DispatchResponse
	err       error
	onRequest func(DispatchRequest)
}

func (d *stubDispatcher) Send(_ context.Context, req DispatchRequest) (DispatchResponse, error) {
	d.mu.Lock()
	d.requests = append(d.requests, req)
	d.mu.Unlock()
	if d.onRequest != nil {
		d.onRequest(req)
	}
	if d.err != nil {
		return DispatchResponse{}, d.err
	}
	return d.response, nil
}

func (d *stubDispatcher) lastRequest(t *testing.T) DispatchRequest {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.requests) == 0 {
		t.Fatalf("expected at least one dispatched request")
	}
	return d.requests[len(d.requests)-1]
}

func testEvent() SyncEvent {
	return SyncEvent{
		EventType:  EventTypeActivityCreated,
		EntityType: EntityTypeActivity,
		EntityID:   "activity-1",
		Payload:    map[string]any{"title": "painting"},
	}
}

func newTestService(t *testing.T, store SyncLogStore, issuer TokenIssuer, dispatcher Dispatcher) *Service {
	t.Helper()
	service, err := NewService(
		Config{
			SyncEnabled:  true,
			AIServiceURL: "https://ai.example.com/",
		},
		WithSyncLogStore(store),
		WithTokenIssuer(issuer),
		WithDispatcher(dispatcher),
		WithEnvLookup(noEnv),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func noEnv(string) (string, bool) { return "", false }

func TestDispatchSync_AcceptedResponse(t *testing.T) {
	store := newMemSyncLogStore()
	dispatcher := &stubDispatcher{
		response: DispatchResponse{StatusCode: 200, Body: []byte("OK")},
	}
	service := newTestService(t, store, &staticTokenIssuer{token: "tkn"}, dispatcher)

	outcome, err := service.DispatchSync(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("dispatch sync: %v", err)
	}
	if outcome.Status != SyncStatusSuccess {
		t.Fatalf("expected success, got %q", outcome.Status)
	}
	if outcome.Response != "OK" {
		t.Fatalf("unexpected response %q", outcome.Response)
	}

	entry := store.get(t, outcome.LogID)
	if entry.Status != SyncStatusSuccess {
		t.Fatalf("expected stored success, got %q", entry.Status)
	}
	if entry.Response == nil || *entry.Response != "OK" {
		t.Fatalf("expected stored response OK, got %v", entry.Response)
	}
	if entry.ErrorMessage != nil {
		t.Fatalf("expected no error message, got %q", *entry.ErrorMessage)
	}
	if entry.RetryCount != 1 {
		t.Fatalf("expected retry count 1 after first completion, got %d", entry.RetryCount)
	}
	if entry.ProcessedAt == nil {
		t.Fatalf("expected processed_at to be set")
	}
}

func TestDispatchSync_RejectedResponse(t *testing.T) {
	store := newMemSyncLogStore()
	dispatcher := &stubDispatcher{
		response: DispatchResponse{StatusCode: 503, Body: []byte("Service Unavailable")},
	}
	service := newTestService(t, store, &staticTokenIssuer{token: "tkn"}, dispatcher)

	outcome, err := service.DispatchSync(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("dispatch sync: %v", err)
	}
	if outcome.Status != SyncStatusFailed {
		t.Fatalf("expected failed, got %q", outcome.Status)
	}
	if outcome.ErrorMessage != "HTTP 503 error" {
		t.Fatalf("unexpected error message %q", outcome.ErrorMessage)
	}

	entry := store.get(t, outcome.LogID)
	if entry.Status != SyncStatusFailed {
		t.Fatalf("expected stored failed, got %q", entry.Status)
	}
	if entry.Response == nil || *entry.Response != "Service Unavailable" {
		t.Fatalf("expected rejection body to be stored, got %v", entry.Response)
	}
	if entry.ErrorMessage == nil || *entry.ErrorMessage != "HTTP 503 error" {
		t.Fatalf("expected stored error message, got %v", entry.ErrorMessage)
	}
}

func TestDispatchSync_ConnectionFault(t *testing.T) {
	store := newMemSyncLogStore()
	dispatcher := &stubDispatcher{err: errors.New("dial tcp: connection refused")}
	service := newTestService(t, store, &staticTokenIssuer{token: "tkn"}, dispatcher)

	outcome, err := service.DispatchSync(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("dispatch sync: %v", err)
	}
	if outcome.Status != SyncStatusFailed {
		t.Fatalf("expected failed, got %q", outcome.Status)
	}
	if !strings.Contains(outcome.ErrorMessage, "connection refused") {
		t.Fatalf("unexpected error message %q", outcome.ErrorMessage)
	}

	entry := store.get(t, outcome.LogID)
	if entry.Response != nil {
		t.Fatalf("expected no response body for a connection fault, got %q", *entry.Response)
	}
	if entry.ErrorMessage == nil {
		t.Fatalf("expected stored error message")
	}
}

func TestDispatchSync_RowPendingBeforeNetworkCall(t *testing.T) {
	store := newMemSyncLogStore()
	var statusAtSend SyncStatus
	dispatcher := &stubDispatcher{
		response: DispatchResponse{StatusCode: 200, Body: []byte("OK")},
	}
	dispatcher.onRequest = func(DispatchRequest) {
		store.mu.Lock()
		for _, entry := range store.entries {
			statusAtSend = entry.Status
		}
		store.mu.Unlock()
	}
	service := newTestService(t, store, &staticTokenIssuer{token: "tkn"}, dispatcher)

	if _, err := service.DispatchSync(context.Background(), testEvent()); err != nil {
		t.Fatalf("dispatch sync: %v", err)
	}
	if statusAtSend != SyncStatusPending {
		t.Fatalf("expected row to be pending at send time, got %q", statusAtSend)
	}
}

func TestDispatchSync_RequestShape(t *testing.T) {
	store := newMemSyncLogStore()
	dispatcher := &stubDispatcher{
		response: DispatchResponse{StatusCode: 200, Body: []byte("OK")},
	}
	service := newTestService(t, store, &staticTokenIssuer{token: "signed-token"}, dispatcher)

	if _, err := service.DispatchSync(context.Background(), testEvent()); err != nil {
		t.Fatalf("dispatch sync: %v", err)
	}

	req := dispatcher.lastRequest(t)
	if req.Method != "POST" {
		t.Fatalf("expected POST, got %q", req.Method)
	}
	if req.URL != "https://ai.example.com/api/v1/webhook" {
		t.Fatalf("unexpected url %q", req.URL)
	}
	if req.Headers["Authorization"] != "Bearer signed-token" {
		t.Fatalf("unexpected authorization header %q", req.Headers["Authorization"])
	}
	if req.Headers["Content-Type"] != "application/json" {
		t.Fatalf("unexpected content type %q", req.Headers["Content-Type"])
	}
	if req.Headers[HeaderWebhookEvent] != string(EventTypeActivityCreated) {
		t.Fatalf("unexpected event header %q", req.Headers[HeaderWebhookEvent])
	}

	var envelope WebhookEnvelope
	if err := json.Unmarshal(req.Body, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.EventType != string(EventTypeActivityCreated) {
		t.Fatalf("unexpected envelope event type %q", envelope.EventType)
	}
	if envelope.EntityType != string(EntityTypeActivity) {
		t.Fatalf("unexpected envelope entity type %q", envelope.EntityType)
	}
	if envelope.EntityID != "activity-1" {
		t.Fatalf("unexpected envelope entity id %q", envelope.EntityID)
	}
	if _, err := time.Parse(time.RFC3339, envelope.Timestamp); err != nil {
		t.Fatalf("timestamp is not RFC3339: %v", err)
	}
}

func TestDispatchAsync_SettlesThroughAwaitPending(t *testing.T) {
	store := newMemSyncLogStore()
	dispatcher := &stubDispatcher{
		response: DispatchResponse{StatusCode: 200, Body: []byte("OK")},
	}
	service := newTestService(t, store, &staticTokenIssuer{token: "tkn"}, dispatcher)

	receipt, err := service.DispatchAsync(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("dispatch async: %v", err)
	}
	if !receipt.Async || receipt.LogID == "" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}

	outcomes := service.AwaitPending(context.Background())
	if len(outcomes) != 1 {
		t.Fatalf("expected one settled outcome, got %d", len(outcomes))
	}
	if outcomes[0].LogID != receipt.LogID || outcomes[0].Status != SyncStatusSuccess {
		t.Fatalf("unexpected outcome %+v", outcomes[0])
	}
	if service.PendingCount() != 0 {
		t.Fatalf("expected pending set to drain, got %d", service.PendingCount())
	}

	entry := store.get(t, receipt.LogID)
	if entry.Status != SyncStatusSuccess {
		t.Fatalf("expected stored success, got %q", entry.Status)
	}
}

func TestDispatchAsync_FaultDoesNotPropagate(t *testing.T) {
	store := newMemSyncLogStore()
	dispatcher := &stubDispatcher{err: errors.New("dial tcp: timeout")}
	service := newTestService(t, store, &staticTokenIssuer{token: "tkn"}, dispatcher)

	receipt, err := service.DispatchAsync(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("dispatch async should not surface network faults: %v", err)
	}

	outcomes := service.AwaitPending(context.Background())
	if len(outcomes) != 1 || outcomes[0].Status != SyncStatusFailed {
		t.Fatalf("unexpected outcomes %+v", outcomes)
	}
	entry := store.get(t, receipt.LogID)
	if entry.Status != SyncStatusFailed {
		t.Fatalf("expected stored failed, got %q", entry.Status)
	}
}

func TestRetry_ReusesRowAndSucceeds(t *testing.T) {
	store := newMemSyncLogStore()
	dispatcher := &stubDispatcher{
		response: DispatchResponse{StatusCode: 500, Body: []byte("boom")},
	}
	service := newTestService(t, store, &staticTokenIssuer{token: "tkn"}, dispatcher)

	failed, err := service.DispatchSync(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("dispatch sync: %v", err)
	}
	if failed.Status != SyncStatusFailed {
		t.Fatalf("expected first attempt to fail, got %q", failed.Status)
	}

	dispatcher.response = DispatchResponse{StatusCode: 200, Body: []byte("OK")}
	outcome, err := service.Retry(context.Background(), failed.LogID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if outcome.Status != SyncStatusSuccess {
		t.Fatalf("expected retry success, got %q", outcome.Status)
	}
	if outcome.LogID != failed.LogID {
		t.Fatalf("retry must reuse the original row, got %q != %q", outcome.LogID, failed.LogID)
	}

	if store.count() != 1 {
		t.Fatalf("retry must not create a second row, got %d", store.count())
	}
	entry := store.get(t, failed.LogID)
	if entry.RetryCount != 2 {
		t.Fatalf("expected two completed attempts, got %d", entry.RetryCount)
	}
	if entry.Status != SyncStatusSuccess {
		t.Fatalf("expected stored success, got %q", entry.Status)
	}
}

func TestRetry_NonFailedRowRejected(t *testing.T) {
	store := newMemSyncLogStore()
	dispatcher := &stubDispatcher{
		response: DispatchResponse{StatusCode: 200, Body: []byte("OK")},
	}
	service := newTestService(t, store, &staticTokenIssuer{token: "tkn"}, dispatcher)

	outcome, err := service.DispatchSync(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("dispatch sync: %v", err)
	}

	if _, err := service.Retry(context.Background(), outcome.LogID); !IsTextCode(err, SyncErrorNotFound) {
		t.Fatalf("expected %s, got %v", SyncErrorNotFound, err)
	}
	entry := store.get(t, outcome.LogID)
	if entry.Status != SyncStatusSuccess || entry.RetryCount != 1 {
		t.Fatalf("rejected retry must not mutate the row, got %+v", entry)
	}
}

func TestRetry_UnknownRow(t *testing.T) {
	service := newTestService(t, newMemSyncLogStore(), &staticTokenIssuer{token: "tkn"}, &stubDispatcher{})

	if _, err := service.Retry(context.Background(), "missing"); !IsTextCode(err, SyncErrorNotFound) {
		t.Fatalf("expected %s, got %v", SyncErrorNotFound, err)
	}
}

func TestRetry_LimitExceeded(t *testing.T) {
	store := newMemSyncLogStore()
	dispatcher := &stubDispatcher{
		response: DispatchResponse{StatusCode: 500, Body: []byte("boom")},
	}
	service := newTestService(t, store, &staticTokenIssuer{token: "tkn"}, dispatcher)

	failed, err := service.DispatchSync(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("dispatch sync: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := service.Retry(context.Background(), failed.LogID); err != nil {
			t.Fatalf("retry %d: %v", i, err)
		}
	}
	entry := store.get(t, failed.LogID)
	if entry.RetryCount != 3 {
		t.Fatalf("expected three completed attempts, got %d", entry.RetryCount)
	}

	if _, err := service.Retry(context.Background(), failed.LogID); !IsTextCode(err, SyncErrorRetryLimit) {
		t.Fatalf("expected %s, got %v", SyncErrorRetryLimit, err)
	}
	after := store.get(t, failed.LogID)
	if after.RetryCount != 3 || after.Status != SyncStatusFailed {
		t.Fatalf("limit rejection must not mutate the row, got %+v", after)
	}
}

func TestDispatch_SyncDisabledGuard(t *testing.T) {
	store := newMemSyncLogStore()
	issuer := &staticTokenIssuer{token: "tkn"}
	service, err := NewService(
		Config{SyncEnabled: false, AIServiceURL: "https://ai.example.com"},
		WithSyncLogStore(store),
		WithTokenIssuer(issuer),
		WithDispatcher(&stubDispatcher{}),
		WithEnvLookup(noEnv),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := service.DispatchSync(context.Background(), testEvent()); !IsTextCode(err, SyncErrorDisabled) {
		t.Fatalf("expected %s, got %v", SyncErrorDisabled, err)
	}
	if store.count() != 0 {
		t.Fatalf("disabled sync must not create log rows, got %d", store.count())
	}
	if issuer.calls != 0 {
		t.Fatalf("disabled sync must not mint tokens, got %d calls", issuer.calls)
	}
}

func TestDispatch_URLMissingGuard(t *testing.T) {
	store := newMemSyncLogStore()
	service, err := NewService(
		Config{SyncEnabled: true},
		WithSyncLogStore(store),
		WithTokenIssuer(&staticTokenIssuer{token: "tkn"}),
		WithDispatcher(&stubDispatcher{}),
		WithEnvLookup(noEnv),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := service.DispatchSync(context.Background(), testEvent()); !IsTextCode(err, SyncErrorURLMissing) {
		t.Fatalf("expected %s, got %v", SyncErrorURLMissing, err)
	}
	if store.count() != 0 {
		t.Fatalf("missing url must not create log rows, got %d", store.count())
	}
}

func TestDispatch_InitFailedGuard(t *testing.T) {
	store := newMemSyncLogStore()
	service, err := NewService(
		Config{SyncEnabled: true, AIServiceURL: "https://ai.example.com"},
		WithSyncLogStore(store),
		WithTokenIssuer(&staticTokenIssuer{token: "tkn"}),
		WithEnvLookup(noEnv),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := service.DispatchSync(context.Background(), testEvent()); !IsTextCode(err, SyncErrorInitFailed) {
		t.Fatalf("expected %s, got %v", SyncErrorInitFailed, err)
	}
}

func TestDispatch_SecretMissingCreatesNoRow(t *testing.T) {
	store := newMemSyncLogStore()
	issuer := &staticTokenIssuer{
		err: guardError(
			"auth: jwt signing secret is not configured",
			goerrors.CategoryAuth,
			SyncErrorSecretMissing,
		),
	}
	service := newTestService(t, store, issuer, &stubDispatcher{})

	if _, err := service.DispatchSync(context.Background(), testEvent()); !IsTextCode(err, SyncErrorSecretMissing) {
		t.Fatalf("expected %s, got %v", SyncErrorSecretMissing, err)
	}
	if store.count() != 0 {
		t.Fatalf("missing secret must not create log rows, got %d", store.count())
	}
}

func TestDispatch_PersistenceFailure(t *testing.T) {
	store := newMemSyncLogStore()
	store.createErr = errors.New("disk full")
	service := newTestService(t, store, &staticTokenIssuer{token: "tkn"}, &stubDispatcher{})

	if _, err := service.DispatchSync(context.Background(), testEvent()); !IsTextCode(err, SyncErrorPersistence) {
		t.Fatalf("expected %s, got %v", SyncErrorPersistence, err)
	}
}

func TestDispatch_InvalidEventRejected(t *testing.T) {
	service := newTestService(t, newMemSyncLogStore(), &staticTokenIssuer{token: "tkn"}, &stubDispatcher{})

	if _, err := service.DispatchSync(context.Background(), SyncEvent{}); !IsTextCode(err, SyncErrorBadInput) {
		t.Fatalf("expected %s, got %v", SyncErrorBadInput, err)
	}
}

func TestAwaitPending_ManyConcurrentDispatches(t *testing.T) {
	store := newMemSyncLogStore()
	dispatcher := &stubDispatcher{
		response: DispatchResponse{StatusCode: 200, Body: []byte("OK")},
	}
	service := newTestService(t, store, &staticTokenIssuer{token: "tkn"}, dispatcher)

	const total = 16
	for i := 0; i < total; i++ {
		if _, err := service.DispatchAsync(context.Background(), testEvent()); err != nil {
			t.Fatalf("dispatch async %d: %v", i, err)
		}
	}

	outcomes := service.AwaitPending(context.Background())
	if len(outcomes) != total {
		t.Fatalf("expected %d outcomes, got %d", total, len(outcomes))
	}
	if service.PendingCount() != 0 {
		t.Fatalf("expected empty pending set, got %d", service.PendingCount())
	}
}

func TestEventConvenienceWrappers(t *testing.T) {
	store := newMemSyncLogStore()
	dispatcher := &stubDispatcher{
		response: DispatchResponse{StatusCode: 200, Body: []byte("OK")},
	}
	service := newTestService(t, store, &staticTokenIssuer{token: "tkn"}, dispatcher)

	cases := []struct {
		name       string
		dispatch   func() (DispatchReceipt, error)
		eventType  EventType
		entityType EntityType
	}{
		{"activity", func() (DispatchReceipt, error) {
			return service.SyncActivityEvent(context.Background(), "e1", nil)
		}, EventTypeActivityCreated, EntityTypeActivity},
		{"meal", func() (DispatchReceipt, error) {
			return service.SyncMealEvent(context.Background(), "e2", nil)
		}, EventTypeMealRecorded, EntityTypeMeal},
		{"nap", func() (DispatchReceipt, error) {
			return service.SyncNapEvent(context.Background(), "e3", nil)
		}, EventTypeNapRecorded, EntityTypeNap},
		{"check_in", func() (DispatchReceipt, error) {
			return service.SyncCheckInEvent(context.Background(), "e4", nil)
		}, EventTypeCheckIn, EntityTypeAttendance},
		{"check_out", func() (DispatchReceipt, error) {
			return service.SyncCheckOutEvent(context.Background(), "e5", nil)
		}, EventTypeCheckOut, EntityTypeAttendance},
		{"photo", func() (DispatchReceipt, error) {
			return service.SyncPhotoEvent(context.Background(), "e6", nil)
		}, EventTypePhotoUploaded, EntityTypePhoto},
	}

	for _, tc := range cases {
		receipt, err := tc.dispatch()
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		service.AwaitPending(context.Background())
		entry := store.get(t, receipt.LogID)
		if entry.EventType != tc.eventType || entry.EntityType != tc.entityType {
			t.Fatalf("%s: unexpected pair %q/%q", tc.name, entry.EventType, entry.EntityType)
		}
	}
}

type capturingMetricsRecorder struct {
	mu         sync.Mutex
	counters   map[string]int64
	histograms map[string]int
	lastTags   map[string]string
}

func newCapturingMetricsRecorder() *capturingMetricsRecorder {
	return &capturingMetricsRecorder{
		counters:   map[string]int64{},
		histograms: map[string]int{},
	}
}

func (r *capturingMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name] += value
	r.lastTags = tags
}

func (r *capturingMetricsRecorder) ObserveHistogram(_ context.Context, name string, _ float64, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histograms[name]++
}

func TestDispatchSync_RecordsMetrics(t *testing.T) {
	store := newMemSyncLogStore()
	dispatcher := &stubDispatcher{
		response: DispatchResponse{StatusCode: 200, Body: []byte("OK")},
	}
	recorder := newCapturingMetricsRecorder()
	service, err := NewService(
		Config{SyncEnabled: true, AIServiceURL: "https://ai.example.com/"},
		WithSyncLogStore(store),
		WithTokenIssuer(&staticTokenIssuer{token: "tkn"}),
		WithDispatcher(dispatcher),
		WithMetricsRecorder(recorder),
		WithEnvLookup(noEnv),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := service.DispatchSync(context.Background(), testEvent()); err != nil {
		t.Fatalf("dispatch sync: %v", err)
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if recorder.counters["aisync.dispatch.total"] != 1 {
		t.Fatalf("expected one dispatch counter, got %d", recorder.counters["aisync.dispatch.total"])
	}
	if recorder.histograms["aisync.dispatch.duration_ms"] != 1 {
		t.Fatalf("expected one duration observation, got %d", recorder.histograms["aisync.dispatch.duration_ms"])
	}
	if recorder.lastTags["operation"] != "dispatch" || recorder.lastTags["status"] != string(SyncStatusSuccess) {
		t.Fatalf("unexpected metric tags %v", recorder.lastTags)
	}
}
