// Package feed subscribes to the push stream of remote task mutations
// and keeps the local board in step with it.
package feed

import (
	"context"

	"github.com/rs/zerolog"
)

type EventKind string

const (
	EventInsert EventKind = "INSERT"
	EventUpdate EventKind = "UPDATE"
	EventDelete EventKind = "DELETE"
)

// Event is one remote mutation notification. The payload carries no
// record data; the handler never trusts event contents beyond the kind
// and always re-fetches the full collection.
type Event struct {
	Kind EventKind
}

// Source delivers a stream of mutation events. The returned channel is
// closed when the subscription ends, whether by cancellation or by a
// transport failure.
type Source interface {
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// Resyncer is the board-side hook: a full fetch-and-replace of the task
// collection.
type Resyncer interface {
	Resync(ctx context.Context) error
}

// Notifier surfaces a human-facing message for a foreign-looking change.
type Notifier interface {
	Notify(kind EventKind)
}

// LogNotifier reports remote changes through the structured log. The
// feed cannot tell the client's own echoed writes from other users'
// changes, so every event is reported as foreign.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) Notify(kind EventKind) {
	var msg string
	switch kind {
	case EventInsert:
		msg = "new task added by another user"
	case EventUpdate:
		msg = "task updated by another user"
	case EventDelete:
		msg = "task deleted by another user"
	default:
		msg = "task collection changed by another user"
	}
	n.Logger.Info().
		Str("event", string(kind)).
		Msg(msg)
}
