package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-aisync/core"
)

const (
	TypeDispatchEvent     = "aisync.command.event.dispatch"
	TypeDispatchEventSync = "aisync.command.event.dispatch_sync"
	TypeRetrySync         = "aisync.command.sync_log.retry"
	TypeDrainPending      = "aisync.command.pending.drain"
)

// DispatchEventMessage fires an event at the webhook endpoint without waiting
// for the network result; the stored result is the dispatch receipt.
type DispatchEventMessage struct {
	Event core.SyncEvent
}

func (DispatchEventMessage) Type() string { return TypeDispatchEvent }

func (m DispatchEventMessage) Validate() error {
	return commandWrapValidation(m.Event.Validate(), "command: invalid sync event")
}

// DispatchEventSyncMessage blocks until the attempt settles; the stored
// result is the terminal dispatch outcome.
type DispatchEventSyncMessage struct {
	Event core.SyncEvent
}

func (DispatchEventSyncMessage) Type() string { return TypeDispatchEventSync }

func (m DispatchEventSyncMessage) Validate() error {
	return commandWrapValidation(m.Event.Validate(), "command: invalid sync event")
}

type RetrySyncMessage struct {
	LogID string
}

func (RetrySyncMessage) Type() string { return TypeRetrySync }

func (m RetrySyncMessage) Validate() error {
	if strings.TrimSpace(m.LogID) == "" {
		return fmt.Errorf("command: log id is required")
	}
	return nil
}

// DrainPendingMessage waits for every in-flight dispatch to settle.
type DrainPendingMessage struct{}

func (DrainPendingMessage) Type() string { return TypeDrainPending }

func (DrainPendingMessage) Validate() error { return nil }
