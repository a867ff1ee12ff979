package core

// EventLogger is the subset of the observability event log that core
// services need. Defining it here avoids importing the observability package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// Event types emitted by the session manager and facade.
const (
	EventSessionCreated  = "session.created"
	EventSessionUpdated  = "session.updated"
	EventSessionDeleted  = "session.deleted"
	EventSessionLoaded   = "session.loaded"
	EventSessionImported = "session.imported"
	EventSessionExported = "session.exported"
	EventLoopAdded       = "loop.added"
	EventLoopRemoved     = "loop.removed"
)

func logEvent(l EventLogger, eventType string, data map[string]any) {
	if l == nil {
		return
	}
	_ = l.LogEvent(eventType, data) // Non-fatal: observability must not block session changes.
}
