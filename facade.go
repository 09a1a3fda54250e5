package aisync

import (
	"fmt"

	aisynccommand "github.com/goliatone/go-aisync/command"
	aisyncquery "github.com/goliatone/go-aisync/query"
)

type Commands struct {
	DispatchEvent     *aisynccommand.DispatchEventCommand
	DispatchEventSync *aisynccommand.DispatchEventSyncCommand
	RetrySync         *aisynccommand.RetrySyncCommand
	DrainPending      *aisynccommand.DrainPendingCommand
}

type Queries struct {
	GetSyncLog     *aisyncquery.GetSyncLogQuery
	ListSyncLogs   *aisyncquery.ListSyncLogsQuery
	SyncStatistics *aisyncquery.SyncStatisticsQuery
}

// Facade bundles the command and query handlers around one webhook service.
// The read side needs a log reader; pass one through WithSyncLogReader or let
// the facade discover it when the service itself exposes the read surface.
type Facade struct {
	service  aisynccommand.DispatchingService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	logReader aisyncquery.SyncLogReader
}

func WithSyncLogReader(reader aisyncquery.SyncLogReader) FacadeOption {
	return func(options *facadeOptions) {
		options.logReader = reader
	}
}

func NewFacade(service aisynccommand.DispatchingService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("aisync: dispatching service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.logReader
	if reader == nil {
		if candidate, ok := service.(aisyncquery.SyncLogReader); ok {
			reader = candidate
		}
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		DispatchEvent:     aisynccommand.NewDispatchEventCommand(service),
		DispatchEventSync: aisynccommand.NewDispatchEventSyncCommand(service),
		RetrySync:         aisynccommand.NewRetrySyncCommand(service),
		DrainPending:      aisynccommand.NewDrainPendingCommand(service),
	}
	facade.queries = Queries{
		GetSyncLog:     aisyncquery.NewGetSyncLogQuery(reader),
		ListSyncLogs:   aisyncquery.NewListSyncLogsQuery(reader),
		SyncStatistics: aisyncquery.NewSyncStatisticsQuery(reader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() aisynccommand.DispatchingService {
	if f == nil {
		return nil
	}
	return f.service
}
