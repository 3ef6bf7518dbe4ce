package orchestrator

import (
	"time"

	"compositor/internal/media"
)

// EventType is a job lifecycle transition.
type EventType string

const (
	EventQueued   EventType = "queued"
	EventStarted  EventType = "started"
	EventFinished EventType = "finished"
)

// Event is delivered to observers on every lifecycle transition. Result is set
// only for EventFinished.
type Event struct {
	Type          EventType
	JobID         int64
	CorrelationID string
	Kind          media.JobKind
	Output        string
	At            time.Time
	Result        *media.JobResult
}

// Observer receives job lifecycle events. Calls are made synchronously from
// the orchestrator goroutines and must not block for long.
type Observer interface {
	JobEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// JobEvent implements Observer.
func (f ObserverFunc) JobEvent(evt Event) { f(evt) }
