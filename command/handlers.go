package command

import (
	"context"

	"github.com/goliatone/go-aisync/core"
	gocmd "github.com/goliatone/go-command"
)

type DispatchingService interface {
	DispatchAsync(ctx context.Context, event core.SyncEvent) (core.DispatchReceipt, error)
	DispatchSync(ctx context.Context, event core.SyncEvent) (core.DispatchOutcome, error)
	Retry(ctx context.Context, logID string) (core.DispatchOutcome, error)
	AwaitPending(ctx context.Context) []core.DispatchOutcome
}

type DispatchEventCommand struct {
	service DispatchingService
}

func NewDispatchEventCommand(service DispatchingService) *DispatchEventCommand {
	return &DispatchEventCommand{service: service}
}

func (c *DispatchEventCommand) Execute(ctx context.Context, msg DispatchEventMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: dispatching service is required")
	}
	out, err := c.service.DispatchAsync(ctx, msg.Event)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DispatchEventSyncCommand struct {
	service DispatchingService
}

func NewDispatchEventSyncCommand(service DispatchingService) *DispatchEventSyncCommand {
	return &DispatchEventSyncCommand{service: service}
}

func (c *DispatchEventSyncCommand) Execute(ctx context.Context, msg DispatchEventSyncMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: dispatching service is required")
	}
	out, err := c.service.DispatchSync(ctx, msg.Event)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RetrySyncCommand struct {
	service DispatchingService
}

func NewRetrySyncCommand(service DispatchingService) *RetrySyncCommand {
	return &RetrySyncCommand{service: service}
}

func (c *RetrySyncCommand) Execute(ctx context.Context, msg RetrySyncMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: dispatching service is required")
	}
	out, err := c.service.Retry(ctx, msg.LogID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DrainPendingCommand struct {
	service DispatchingService
}

func NewDrainPendingCommand(service DispatchingService) *DrainPendingCommand {
	return &DrainPendingCommand{service: service}
}

func (c *DrainPendingCommand) Execute(ctx context.Context, _ DrainPendingMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: dispatching service is required")
	}
	storeResult(ctx, c.service.AwaitPending(ctx))
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
