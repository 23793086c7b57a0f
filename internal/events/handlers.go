package events

import (
	"sync"

	"github.com/mattjoyce/retracer/internal/protocol"
)

// Handlers adapts run events to per-type callbacks. Nil callbacks are skipped.
type Handlers struct {
	OnStarted              func(runID, command string)
	OnStateCaptured        func(state *protocol.CapturedState)
	OnSnapshotsCaptured    func(snaps []protocol.SnapshotImage)
	OnReplayErrors         func(errs []protocol.ReplayError)
	OnFinished             func(summary string)
	OnLaunchOrRuntimeError func(message string)
}

// Publish implements Publisher.
func (h Handlers) Publish(ev Event) {
	switch ev.Type {
	case TypeRunStarted:
		if h.OnStarted != nil {
			h.OnStarted(ev.RunID, ev.Message)
		}
	case TypeStateCaptured:
		if h.OnStateCaptured != nil {
			h.OnStateCaptured(ev.State)
		}
	case TypeSnapshotsCaptured:
		if h.OnSnapshotsCaptured != nil {
			h.OnSnapshotsCaptured(ev.Snapshots)
		}
	case TypeReplayErrors:
		if h.OnReplayErrors != nil {
			h.OnReplayErrors(ev.Errors)
		}
	case TypeRunFinished:
		if h.OnFinished != nil {
			h.OnFinished(ev.Message)
		}
	case TypeRunFailed:
		if h.OnLaunchOrRuntimeError != nil {
			h.OnLaunchOrRuntimeError(ev.Message)
		}
	}
}

// Multi publishes each event to every publisher in order.
type Multi []Publisher

func (m Multi) Publish(ev Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(ev)
		}
	}
}

// Recorder keeps every published event. Useful for tests and one-shot CLI runs.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	evs := r.Events()
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}
