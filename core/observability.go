package core

import (
	"context"
	"sort"
	"strings"
	"time"
)

func (s *Service) observeDispatch(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	outcome DispatchOutcome,
) {
	if s == nil {
		return
	}
	operation = strings.TrimSpace(operation)
	if operation == "" {
		operation = "dispatch"
	}

	fields := map[string]any{
		"log_id":      outcome.LogID,
		"status":      string(outcome.Status),
		"duration_ms": time.Since(startedAt).Milliseconds(),
	}
	if outcome.StatusCode > 0 {
		fields["status_code"] = outcome.StatusCode
	}
	if outcome.ErrorMessage != "" {
		fields["error"] = outcome.ErrorMessage
	}

	tags := map[string]string{
		"operation": operation,
		"status":    string(outcome.Status),
	}
	s.recordCounter(ctx, "aisync."+operation+".total", 1, tags)
	s.recordHistogram(ctx, "aisync."+operation+".duration_ms", float64(time.Since(startedAt).Milliseconds()), tags)

	if outcome.Status == SyncStatusFailed {
		s.logError(ctx, operation+" failed", fields)
		return
	}
	s.logInfo(ctx, operation+" succeeded", fields)
}

func (s *Service) logInfo(ctx context.Context, message string, fields map[string]any) {
	s.logWithLevel(ctx, "info", message, fields)
}

func (s *Service) logError(ctx context.Context, message string, fields map[string]any) {
	s.logWithLevel(ctx, "error", message, fields)
}

func (s *Service) logWithLevel(ctx context.Context, level string, message string, fields map[string]any) {
	if s == nil || s.logger == nil {
		return
	}
	logger := s.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		logger.Error(message, args...)
	default:
		logger.Info(message, args...)
	}
}

// NopMetricsRecorder drops every observation. It is the default recorder so
// dispatch paths never nil-check metrics.
type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

var _ MetricsRecorder = NopMetricsRecorder{}

func (s *Service) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if s == nil || s.metricsRecorder == nil {
		return
	}
	s.metricsRecorder.IncCounter(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func (s *Service) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if s == nil || s.metricsRecorder == nil {
		return
	}
	s.metricsRecorder.ObserveHistogram(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func cloneTags(tags map[string]string) map[string]string {
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}
