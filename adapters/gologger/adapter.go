package gologger

import (
	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

// Logger names used across the webhook pipeline. The retry worker logs under
// its own name so queue noise can be filtered from dispatch logs.
const (
	LoggerNameService     = "aisync"
	LoggerNameRetryWorker = "aisync.retry"
)

// ResolveService resolves the webhook service logger with deterministic
// precedence provider > logger > nop.
func ResolveService(provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(LoggerNameService, provider, logger)
}

// RetryWorkerLogging resolves the retry worker logger and bridges it to the
// go-job contracts the queue runtime consumes.
func RetryWorkerLogging(provider glog.LoggerProvider, logger glog.Logger) (job.LoggerProvider, job.Logger) {
	resolvedProvider, resolvedLogger := glog.Resolve(LoggerNameRetryWorker, provider, logger)
	return job.GoLoggerProvider(resolvedProvider), job.GoLogger(resolvedLogger)
}
