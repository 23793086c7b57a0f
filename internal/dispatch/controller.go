package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/mattjoyce/retracer/internal/events"
	"github.com/mattjoyce/retracer/internal/log"
	"github.com/mattjoyce/retracer/internal/protocol"
	"github.com/mattjoyce/retracer/internal/replay"
)

// ErrRunActive is returned by Start while a previous run has not finished.
var ErrRunActive = errors.New("a replay run is already active")

// Run is one replay execution owned by a Controller.
type Run struct {
	ID      string
	Options replay.Options
	Command replay.Command

	done chan struct{}

	mu              sync.Mutex
	proc            Process
	cancelRequested bool
	outcome         protocol.Outcome
}

// Done is closed after the run's finished event has been published.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Outcome returns the decoded result. It is only meaningful after Done is closed.
func (r *Run) Outcome() protocol.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcome
}

// Cancel requests termination of the child. If the child has not been launched
// yet, termination is requested as soon as it is.
func (r *Run) Cancel() {
	r.mu.Lock()
	proc := r.proc
	r.cancelRequested = true
	r.mu.Unlock()

	if proc != nil {
		proc.RequestTermination()
	}
}

func (r *Run) attach(proc Process) {
	r.mu.Lock()
	r.proc = proc
	cancel := r.cancelRequested
	r.mu.Unlock()

	if cancel {
		proc.RequestTermination()
	}
}

// Controller launches replay runs one at a time and publishes their results.
type Controller struct {
	launcher Launcher
	env      Environment
	pub      events.Publisher
	logger   *slog.Logger

	mu     sync.Mutex
	active *Run
	last   *Run
}

// NewController creates a Controller. A nil publisher discards events.
func NewController(launcher Launcher, env Environment, pub events.Publisher) *Controller {
	if pub == nil {
		pub = events.Multi{}
	}
	return &Controller{
		launcher: launcher,
		env:      env,
		pub:      pub,
		logger:   log.WithComponent("dispatch"),
	}
}

// Start validates opts, then launches and decodes the run in the background.
// Options are copied; later changes by the caller do not affect the run.
func (c *Controller) Start(ctx context.Context, opts replay.Options) (*Run, error) {
	opts = opts.Clone()
	cmd, err := replay.BuildCommand(opts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.active != nil {
		c.mu.Unlock()
		return nil, ErrRunActive
	}
	run := &Run{
		ID:      uuid.NewString(),
		Options: opts,
		Command: cmd,
		done:    make(chan struct{}),
	}
	c.active = run
	c.last = run
	c.mu.Unlock()

	go c.execute(ctx, run)
	return run, nil
}

// Active returns the run in flight, or nil.
func (c *Controller) Active() *Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Cancel requests termination of the active run, if any.
func (c *Controller) Cancel() {
	if run := c.Active(); run != nil {
		run.Cancel()
	}
}

// Wait blocks until the most recently started run has published its finished
// event, or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	run := c.last
	c.mu.Unlock()
	if run == nil {
		return nil
	}
	select {
	case <-run.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) execute(ctx context.Context, run *Run) {
	logger := c.logger.With("run_id", run.ID)
	logger.Info("starting replay", "command", run.Command.String(), "mode", run.Options.Mode().String())
	c.publish(run, events.Event{Type: events.TypeRunStarted, Message: run.Command.String()})

	proc, err := c.launcher.Launch(ctx, run.Command, c.env)
	if err != nil {
		msg := fmt.Sprintf("Couldn't execute the replay file '%s'", run.Options.TraceFile)
		logger.Error("replay launch failed", "error", err)
		c.publish(run, events.Event{Type: events.TypeRunFailed, Message: msg})
		c.finish(run, protocol.Outcome{Summary: msg, Err: err})
		return
	}
	run.attach(proc)

	exit := <-proc.Done()
	if exit.State == StateTerminatedByRequest {
		logger.Info("replay terminated by request")
		c.finish(run, protocol.Outcome{Summary: protocol.MsgTerminated})
		return
	}
	if exit.Err != nil {
		logger.Warn("replay process I/O error", "error", exit.Err)
	}

	out := protocol.Decode(protocol.Input{
		Stdout:   exit.Stdout,
		Stderr:   exit.Stderr,
		Mode:     run.Options.Mode(),
		Crashed:  exit.State == StateCrashed,
		ExitCode: exit.ExitCode,
	})

	attrs := []any{"state", exit.State.String(), "exit_code", exit.ExitCode, "replay_errors", len(out.Errors)}
	switch {
	case out.Err == nil:
		logger.Info("replay finished", attrs...)
	case errors.Is(out.Err, protocol.ErrMalformedHeader):
		logger.Warn("invalid snapshot stream encountered", append(attrs, "snapshots", len(out.Snapshots), "error", out.Err)...)
	default:
		logger.Warn("replay failed", append(attrs, "error", out.Err)...)
	}

	if out.State != nil {
		c.publish(run, events.Event{Type: events.TypeStateCaptured, State: out.State})
	}
	if out.Snapshots != nil {
		c.publish(run, events.Event{Type: events.TypeSnapshotsCaptured, Snapshots: out.Snapshots})
	}
	if len(out.Errors) > 0 {
		c.publish(run, events.Event{Type: events.TypeReplayErrors, Errors: out.Errors})
	}
	c.finish(run, out)
}

// finish records the outcome, frees the controller for the next run and
// publishes the terminal event.
func (c *Controller) finish(run *Run, out protocol.Outcome) {
	run.mu.Lock()
	run.outcome = out
	run.mu.Unlock()

	c.mu.Lock()
	if c.active == run {
		c.active = nil
	}
	c.mu.Unlock()

	c.publish(run, events.Event{Type: events.TypeRunFinished, Message: out.Summary})
	close(run.done)
}

func (c *Controller) publish(run *Run, ev events.Event) {
	ev.RunID = run.ID
	c.pub.Publish(ev)
}
