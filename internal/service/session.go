package service

import (
	"context"

	"kernel-workspace-be/internal/pkg/logger"
	"kernel-workspace-be/pkg/approval"
	"kernel-workspace-be/pkg/events"
	"kernel-workspace-be/pkg/rag/history"
	"kernel-workspace-be/pkg/rag/workspace"
)

// Session is the mutable state shared by every request: uploaded files, the
// staged command and short-term memory. Each part guards itself.
type Session struct {
	Workspace *workspace.Registry
	Approval  *approval.Machine
	History   *history.Store
}

func NewSession(ws *workspace.Registry, machine *approval.Machine, store *history.Store) *Session {
	return &Session{
		Workspace: ws,
		Approval:  machine,
		History:   store,
	}
}

// emit publishes an event and logs instead of failing the caller.
func emit(ctx context.Context, publisher events.Publisher, log logger.ILogger, eventType string, data map[string]interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(context.WithoutCancel(ctx), events.New(eventType, data)); err != nil {
		log.Warn("Kernel", "Failed to publish event", map[string]interface{}{
			"event": eventType,
			"error": err.Error(),
		})
	}
}
