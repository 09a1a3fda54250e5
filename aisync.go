// Package aisync delivers school activity events to an external AI service
// over signed webhooks, with a durable per-event audit log, manual retry, and
// aggregate statistics.
package aisync

import "github.com/goliatone/go-aisync/core"

type Config = core.Config

type Option = core.Option

type Service = core.Service

type SyncEvent = core.SyncEvent
type SyncLogEntry = core.SyncLogEntry
type SyncLogFilter = core.SyncLogFilter
type SyncLogPage = core.SyncLogPage
type SyncStatistics = core.SyncStatistics

type SyncStatus = core.SyncStatus
type EventType = core.EventType
type EntityType = core.EntityType

type DispatchReceipt = core.DispatchReceipt
type DispatchOutcome = core.DispatchOutcome

type SyncLogStore = core.SyncLogStore
type SyncLogReader = core.SyncLogReader
type TokenIssuer = core.TokenIssuer
type Dispatcher = core.Dispatcher

var (
	WithLogger          = core.WithLogger
	WithLoggerProvider  = core.WithLoggerProvider
	WithMetricsRecorder = core.WithMetricsRecorder
	WithErrorMapper     = core.WithErrorMapper
	WithSyncLogStore    = core.WithSyncLogStore
	WithTokenIssuer     = core.WithTokenIssuer
	WithDispatcher      = core.WithDispatcher
	WithConfigProvider  = core.WithConfigProvider
	WithOptionsResolver = core.WithOptionsResolver
	WithEnvLookup       = core.WithEnvLookup
	WithClock           = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
