package command

import (
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Commander[DispatchEventMessage]     = (*DispatchEventCommand)(nil)
	_ gocmd.Commander[DispatchEventSyncMessage] = (*DispatchEventSyncCommand)(nil)
	_ gocmd.Commander[RetrySyncMessage]         = (*RetrySyncCommand)(nil)
	_ gocmd.Commander[DrainPendingMessage]      = (*DrainPendingCommand)(nil)
)
