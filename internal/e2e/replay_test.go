package e2e

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattjoyce/retracer/internal/config"
	"github.com/mattjoyce/retracer/internal/dispatch"
	"github.com/mattjoyce/retracer/internal/doctor"
	"github.com/mattjoyce/retracer/internal/events"
	"github.com/mattjoyce/retracer/internal/log"
	"github.com/mattjoyce/retracer/internal/protocol"
	"github.com/mattjoyce/retracer/internal/replay"
)

// fixture is a config directory with a fake apitrace install and a trace file.
type fixture struct {
	cfg    *config.Config
	env    dispatch.Environment
	trace  string
	frames []protocol.SnapshotImage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log.Setup("ERROR", "json")

	root := t.TempDir()
	binDir := filepath.Join(root, "apitrace", "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatal(err)
	}

	frames := []protocol.SnapshotImage{
		{Width: 2, Height: 2, Channels: 1, Pixels: []byte{0, 64, 128, 255}},
		{Width: 1, Height: 1, Channels: 3, Pixels: []byte{10, 20, 30}},
	}
	var stream bytes.Buffer
	for _, f := range frames {
		if err := f.WritePNM(&stream); err != nil {
			t.Fatal(err)
		}
	}
	framesPath := filepath.Join(root, "frames.pnm")
	if err := os.WriteFile(framesPath, stream.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	// The fake retrace prints its argv to stderr as an error line so tests
	// can check what was launched.
	script := fmt.Sprintf(`#!/bin/sh
echo "0: argv: $*" >&2
case "$*" in
  *"-D "*) printf '{"parameters":{"GL_VIEWPORT":[0,0,640,480]},"textures":{"0":{}}}' ;;
  *"-s -"*) cat %q ;;
  *hang*) exec sleep 30 ;;
  *) printf 'Rendered 2 frames in 0.01 secs, average of 200 fps' ;;
esac
`, framesPath)
	if err := os.WriteFile(filepath.Join(binDir, "glretrace"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	cfgPath := filepath.Join(root, "config.yaml")
	cfgBody := "binary_dir: apitrace/bin\ntermination_grace: 1s\nreplay:\n  api: gl\n  double_buffered: false\n"
	if err := os.WriteFile(cfgPath, []byte(cfgBody), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}

	trace := filepath.Join(root, "game.trace")
	if err := os.WriteFile(trace, []byte("trace"), 0o644); err != nil {
		t.Fatal(err)
	}

	env := dispatch.NewEnvironment([]string{"PATH=/usr/bin:/bin"}, cfg.BinaryDir)
	return &fixture{cfg: cfg, env: env, trace: trace, frames: frames}
}

func (f *fixture) controller(pub events.Publisher) *dispatch.Controller {
	return dispatch.NewController(dispatch.NewExecLauncher(f.cfg.TerminationGrace), f.env, pub)
}

func collect(t *testing.T, sub <-chan events.Event) []events.Event {
	t.Helper()
	var out []events.Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev := <-sub:
			out = append(out, ev)
			if ev.Type == events.TypeRunFinished {
				return out
			}
		case <-timeout:
			t.Fatalf("timed out; got %d events", len(out))
			return nil
		}
	}
}

func types(evs []events.Event) []string {
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}

func TestReplay_PreflightThenSnapshots(t *testing.T) {
	f := newFixture(t)

	res := doctor.New(f.cfg, f.env, f.trace).Validate()
	if !res.Valid {
		t.Fatalf("doctor: %s", doctor.FormatHuman(res))
	}

	hub := events.NewHub(64)
	sub, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	opts := f.cfg.Options(f.trace)
	opts.CaptureSnapshots = true

	run, err := f.controller(hub).Start(context.Background(), opts)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	evs := collect(t, sub)

	want := []string{events.TypeRunStarted, events.TypeSnapshotsCaptured, events.TypeReplayErrors, events.TypeRunFinished}
	if fmt.Sprint(types(evs)) != fmt.Sprint(want) {
		t.Fatalf("event order = %v, want %v", types(evs), want)
	}

	snaps := evs[1].Snapshots
	if len(snaps) != len(f.frames) {
		t.Fatalf("got %d snapshots, want %d", len(snaps), len(f.frames))
	}
	for i := range snaps {
		if snaps[i].Digest() != f.frames[i].Digest() {
			t.Errorf("frame %d digest mismatch", i)
		}
	}

	argv := evs[2].Errors[0]
	if argv.Kind != "argv" || argv.Message != "-sb -s - "+f.trace {
		t.Errorf("launched with %+v", argv)
	}
	if evs[3].Message != protocol.MsgSnapshotsFetched {
		t.Errorf("finished message = %q", evs[3].Message)
	}
	if run.Outcome().Err != nil {
		t.Errorf("outcome error: %v", run.Outcome().Err)
	}

	// Late subscribers can replay the buffered history.
	if got := len(hub.SnapshotSince(0)); got != 4 {
		t.Errorf("SnapshotSince(0) = %d events, want 4", got)
	}
}

func TestReplay_StateLookup(t *testing.T) {
	f := newFixture(t)

	var state *protocol.CapturedState
	var finished string
	opts := f.cfg.Options(f.trace)
	opts.CaptureStateAt = replay.Call(4096)

	ctrl := f.controller(events.Handlers{
		OnStateCaptured: func(s *protocol.CapturedState) { state = s },
		OnFinished:      func(msg string) { finished = msg },
	})
	if _, err := ctrl.Start(context.Background(), opts); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := ctrl.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	if finished != protocol.MsgStateFetched {
		t.Fatalf("finished = %q", finished)
	}
	if state == nil {
		t.Fatal("no state captured")
	}
	if h, ok := state.Lookup("parameters.GL_VIEWPORT.3"); !ok || h.Int() != 480 {
		t.Errorf("viewport height = %v, %v", h, ok)
	}
	if len(state.Textures()) != 1 {
		t.Errorf("textures = %v", state.Textures())
	}
}

func TestReplay_ContextCancelTerminates(t *testing.T) {
	f := newFixture(t)

	hangTrace := filepath.Join(filepath.Dir(f.trace), "hang.trace")
	if err := os.WriteFile(hangTrace, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	rec := events.NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	run, err := f.controller(rec).Start(ctx, f.cfg.Options(hangTrace))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case <-run.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("run did not terminate after context cancel")
	}

	if got := run.Outcome().Summary; got != protocol.MsgTerminated {
		t.Errorf("summary = %q, want %q", got, protocol.MsgTerminated)
	}
	if got := rec.Types(); fmt.Sprint(got) != fmt.Sprint([]string{events.TypeRunStarted, events.TypeRunFinished}) {
		t.Errorf("events = %v", got)
	}
}
