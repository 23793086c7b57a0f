package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mattjoyce/retracer/internal/protocol"
)

// Event types published for a replay run.
const (
	TypeRunStarted        = "run.started"
	TypeStateCaptured     = "state.captured"
	TypeSnapshotsCaptured = "snapshots.captured"
	TypeReplayErrors      = "replay.errors"
	TypeRunFinished       = "run.finished"
	TypeRunFailed         = "run.failed"
)

// Event is one notification about a run. Only the fields relevant to Type are set.
type Event struct {
	ID        int64                    `json:"id"`
	Type      string                   `json:"type"`
	RunID     string                   `json:"run_id"`
	At        time.Time                `json:"at"`
	Message   string                   `json:"message,omitempty"`
	State     *protocol.CapturedState  `json:"state,omitempty"`
	Snapshots []protocol.SnapshotImage `json:"snapshots,omitempty"`
	Errors    []protocol.ReplayError   `json:"errors,omitempty"`
}

// Publisher receives run events. Publish must not block for long.
type Publisher interface {
	Publish(ev Event)
}

// Hub is an in-memory pub/sub with a small ring buffer for late clients.
type Hub struct {
	nextID atomic.Int64

	mu    sync.Mutex
	ring  []Event
	start int
	size  int

	subs      map[int]chan Event
	nextSubID int
}

func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 100
	}
	return &Hub{
		ring: make([]Event, capacity),
		subs: make(map[int]chan Event),
	}
}

// Publish stamps ev with an ID and timestamp, buffers it and fans it out.
func (h *Hub) Publish(ev Event) {
	ev.ID = h.nextID.Add(1)
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	h.mu.Lock()
	h.pushLocked(ev)
	for _, ch := range h.subs {
		// Don't let slow clients block producers.
		select {
		case ch <- ev:
		default:
		}
	}
	h.mu.Unlock()
}

func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextSubID
	h.nextSubID++
	ch := make(chan Event, 128)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
		h.mu.Unlock()
	}

	return ch, cancel
}

// SnapshotSince returns buffered events with ID > lastID, oldest-first.
// If lastID is 0, the full ring buffer snapshot is returned.
func (h *Hub) SnapshotSince(lastID int64) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Event, 0, h.size)
	for i := 0; i < h.size; i++ {
		ev := h.ring[(h.start+i)%len(h.ring)]
		if lastID == 0 || ev.ID > lastID {
			out = append(out, ev)
		}
	}
	return out
}

func (h *Hub) pushLocked(ev Event) {
	capacity := len(h.ring)
	if capacity == 0 {
		return
	}

	if h.size < capacity {
		idx := (h.start + h.size) % capacity
		h.ring[idx] = ev
		h.size++
		return
	}

	// Overwrite oldest.
	h.ring[h.start] = ev
	h.start = (h.start + 1) % capacity
}
