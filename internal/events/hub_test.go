package events

import (
	"testing"
	"time"

	"github.com/mattjoyce/retracer/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPublishSubscribe(t *testing.T) {
	h := NewHub(10)
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish(Event{Type: TypeRunStarted, RunID: "r1"})
	h.Publish(Event{Type: TypeRunFinished, RunID: "r1", Message: "done"})

	for i, want := range []string{TypeRunStarted, TypeRunFinished} {
		select {
		case ev := <-ch:
			assert.Equal(t, want, ev.Type)
			assert.Equal(t, int64(i+1), ev.ID)
			assert.False(t, ev.At.IsZero())
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestHubCancelClosesChannel(t *testing.T) {
	h := NewHub(10)
	ch, cancel := h.Subscribe()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	// Publishing after cancel must not panic.
	h.Publish(Event{Type: TypeRunStarted})
	cancel()
}

func TestHubSnapshotSince(t *testing.T) {
	h := NewHub(3)
	for i := 0; i < 5; i++ {
		h.Publish(Event{Type: TypeRunStarted})
	}

	all := h.SnapshotSince(0)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{3, 4, 5}, []int64{all[0].ID, all[1].ID, all[2].ID})

	since := h.SnapshotSince(4)
	require.Len(t, since, 1)
	assert.Equal(t, int64(5), since[0].ID)
}

func TestHandlers(t *testing.T) {
	var got []string
	h := Handlers{
		OnStateCaptured: func(st *protocol.CapturedState) { got = append(got, "state") },
		OnReplayErrors: func(errs []protocol.ReplayError) {
			got = append(got, "errors:"+errs[0].Kind)
		},
		OnFinished:             func(summary string) { got = append(got, "finished:"+summary) },
		OnLaunchOrRuntimeError: func(msg string) { got = append(got, "failed:"+msg) },
	}

	st, err := protocol.ParseState([]byte(`{}`))
	require.NoError(t, err)

	h.Publish(Event{Type: TypeStateCaptured, State: st})
	h.Publish(Event{Type: TypeSnapshotsCaptured}) // no callback registered
	h.Publish(Event{Type: TypeReplayErrors, Errors: []protocol.ReplayError{{Kind: "GL_ERROR"}}})
	h.Publish(Event{Type: TypeRunFailed, Message: "boom"})
	h.Publish(Event{Type: TypeRunFinished, Message: "ok"})

	assert.Equal(t, []string{"state", "errors:GL_ERROR", "failed:boom", "finished:ok"}, got)
}

func TestMultiAndRecorder(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	m := Multi{a, nil, b}

	m.Publish(Event{Type: TypeRunStarted})
	m.Publish(Event{Type: TypeRunFinished})

	assert.Equal(t, []string{TypeRunStarted, TypeRunFinished}, a.Types())
	assert.Equal(t, a.Types(), b.Types())
}
